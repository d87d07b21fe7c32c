package main

import (
	"net/http"
	"strings"
	"time"

	"zeptical/models"
	"zeptical/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenTTL = 24 * time.Hour
	ctxUserID      = "userID"
)

var errBadToken = apperr.New(apperr.KindUnauthorized, "Please authenticate using a valid token")

func (s *server) issueAccessToken(userID uint) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(accessTokenTTL).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

func (s *server) jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			respondErr(c, s.log, errBadToken)
			return
		}
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			respondErr(c, s.log, errBadToken)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondErr(c, s.log, errBadToken)
			return
		}
		// numeric claims decode as float64
		id, _ := claims["id"].(float64)
		if id <= 0 {
			respondErr(c, s.log, errBadToken)
			return
		}
		c.Set(ctxUserID, uint(id))
		c.Next()
	}
}

// userID returns the caller set by jwtAuthMiddleware.
func userID(c *gin.Context) uint {
	v, _ := c.Get(ctxUserID)
	id, _ := v.(uint)
	return id
}

type tokenPair struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user,omitempty"`
}

func (s *server) tokensFor(c *gin.Context, u *models.User) (*tokenPair, error) {
	access, err := s.issueAccessToken(u.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnknown, "failed to generate token")
	}
	refresh, err := s.accounts.IssueRefreshToken(c.Request.Context(), u.ID)
	if err != nil {
		return nil, err
	}
	return &tokenPair{Token: access, RefreshToken: refresh, User: u}, nil
}

func (s *server) loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	user, err := s.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	pair, err := s.tokensFor(c, user)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, pair, "Loggedin successfully")
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func (s *server) refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	user, next, err := s.accounts.RotateRefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	access, err := s.issueAccessToken(user.ID)
	if err != nil {
		respondErr(c, s.log, apperr.Wrap(err, apperr.KindUnknown, "failed to generate token"))
		return
	}
	respondOK(c, tokenPair{Token: access, RefreshToken: next}, "")
}

func (s *server) logoutHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	if err := s.accounts.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		respondErr(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Msg: "refresh token revoked"})
}
