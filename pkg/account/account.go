// Package account manages users: credentials, basic details and refresh tokens.
package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"zeptical/models"
	"zeptical/pkg/apperr"
	"zeptical/pkg/asset"
	"zeptical/pkg/logger"
	"zeptical/pkg/photo"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const refreshTokenTTL = 30 * 24 * time.Hour

var errInvalidCredentials = apperr.New(apperr.KindUnauthorized, "Please try to login with correct credentials")

// Avatars stores and discards profile photos. Discard failures are not reported.
type Avatars interface {
	Process(ctx context.Context, cat asset.Category, u *photo.Upload, maxBytes int64) (string, error)
	Discard(ctx context.Context, cat asset.Category, url string)
}

type Service struct {
	db        *gorm.DB
	avatars   Avatars
	avatarMax int64
	log       *zap.Logger
	now       func() time.Time
}

func NewService(db *gorm.DB, avatars Avatars, avatarMax int64, log *zap.Logger) *Service {
	if avatarMax <= 0 {
		avatarMax = photo.AvatarMaxBytes
	}
	return &Service{db: db, avatars: avatars, avatarMax: avatarMax, log: logger.OrNop(log).Named("account"), now: time.Now}
}

// Migrate creates the users and refresh_tokens tables.
func (s *Service) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.User{}, &models.RefreshToken{})
}

// CreateUser adds a verified account with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, email, username, fullName, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" {
		return nil, apperr.New(apperr.KindValidation, "Please enter a valid email")
	}
	if len(username) < 3 {
		return nil, apperr.New(apperr.KindValidation, "Username should be at least 3 characters long")
	}
	if len(password) < 6 {
		return nil, apperr.New(apperr.KindValidation, "Password should be at least 6 characters long")
	}
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("verified = ? AND (email = ? OR username = ?)", true, email, username).Count(&n).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
	}
	if n > 0 {
		return nil, apperr.New(apperr.KindConflict, "Sorry a user with this email or username already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnknown, "Something went wrong. Please try again.")
	}
	u := &models.User{Email: email, Username: username, FullName: strings.TrimSpace(fullName), HashedPassword: hash, Verified: true}
	if err := db.Create(u).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
	}
	s.log.Info("user created", zap.Uint("user_id", u.ID))
	return u, nil
}

// Authenticate checks a password against a verified account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ? AND verified = ?", email, true).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
	}
	if len(u.HashedPassword) == 0 {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return &u, nil
}

// SetPassword replaces the password of the verified account with email and
// revokes its refresh tokens.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < 6 {
		return apperr.New(apperr.KindValidation, "Password should be at least 6 characters long")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(err, apperr.KindUnknown, "Something went wrong. Please try again.")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Where("email = ? AND verified = ?", email, true).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "Sorry a user with this email does not exist")
			}
			return apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
		}
		if err := tx.Model(&u).Update("hashed_password", hash).Error; err != nil {
			return apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
		}
		if err := tx.Model(&models.RefreshToken{}).Where("user_id = ?", u.ID).Update("revoked", true).Error; err != nil {
			return apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
		}
		s.log.Info("password reset", zap.Uint("user_id", u.ID))
		return nil
	})
}

// Details loads a user by id.
func (s *Service) Details(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "User not found")
		}
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
	}
	return &u, nil
}

// ResolveUsername returns the id of the verified user owning username.
func (s *Service) ResolveUsername(ctx context.Context, username string) (uint, error) {
	var u models.User
	err := s.db.WithContext(ctx).Select("id").Where("username = ? AND verified = ?", username, true).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.New(apperr.KindNotFound, "User not found")
		}
		return 0, apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
	}
	return u.ID, nil
}

// PhotoURLs returns every stored profile photo URL.
func (s *Service) PhotoURLs(ctx context.Context) ([]string, error) {
	var urls []string
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("photo_url <> ?", "").
		Pluck("photo_url", &urls).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
	}
	return urls, nil
}

type BasicDetails struct {
	FullName string
	Username string
	Gender   string
}

// UpdateBasicDetails saves name, username and gender and, when avatar is set,
// replaces the profile photo.
func (s *Service) UpdateBasicDetails(ctx context.Context, userID uint, in BasicDetails, avatar *photo.Upload) (*models.User, error) {
	ctx = context.WithoutCancel(ctx)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	in.Gender = strings.TrimSpace(in.Gender)
	switch {
	case len(in.FullName) < 3:
		return nil, apperr.New(apperr.KindValidation, "Name should be at least 3 characters long")
	case len(in.Username) < 3:
		return nil, apperr.New(apperr.KindValidation, "Username should be at least 3 characters long")
	case in.Gender == "":
		return nil, apperr.New(apperr.KindValidation, "Please provide your gender")
	}

	u, err := s.Details(ctx, userID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if in.Username != u.Username {
		var n int64
		if err := db.Model(&models.User{}).
			Where("username = ? AND verified = ? AND id <> ?", in.Username, true, userID).
			Count(&n).Error; err != nil {
			return nil, apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
		}
		if n > 0 {
			return nil, apperr.New(apperr.KindConflict, "Sorry a user with same username already exists")
		}
	}

	updates := map[string]any{
		"full_name": in.FullName,
		"username":  in.Username,
		"gender":    in.Gender,
	}
	oldURL, newURL := u.PhotoURL, ""
	if avatar != nil {
		newURL, err = s.avatars.Process(ctx, asset.ProfilePhoto, avatar, s.avatarMax)
		if err != nil {
			return nil, err
		}
		updates["photo_url"] = newURL
	}
	if err := db.Model(u).Updates(updates).Error; err != nil {
		if newURL != "" {
			s.avatars.Discard(ctx, asset.ProfilePhoto, newURL)
		}
		s.log.Error("update user details", zap.Uint("user_id", userID), zap.Error(err))
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Something went wrong while updating the user details. Please try again")
	}
	// the old photo goes only once the row points at the new one
	if newURL != "" && oldURL != "" && oldURL != newURL {
		s.avatars.Discard(ctx, asset.ProfilePhoto, oldURL)
	}
	return s.Details(ctx, userID)
}

func newRawToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// IssueRefreshToken stores the hash of a new random token and returns the raw token.
func (s *Service) IssueRefreshToken(ctx context.Context, userID uint) (string, error) {
	raw, err := newRawToken()
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindUnknown, "failed to create refresh token")
	}
	rt := models.RefreshToken{UserID: userID, TokenHash: hashToken(raw), ExpiresAt: s.now().Add(refreshTokenTTL)}
	if err := s.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return "", apperr.Wrap(err, apperr.KindPersistence, "failed to create refresh token")
	}
	return raw, nil
}

// RotateRefreshToken exchanges a valid refresh token for a new one, revoking the old.
func (s *Service) RotateRefreshToken(ctx context.Context, raw string) (*models.User, string, error) {
	var (
		user  models.User
		fresh string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		if err := tx.Where("token_hash = ?", hashToken(raw)).First(&rt).Error; err != nil || !rt.Usable(s.now()) {
			return apperr.New(apperr.KindUnauthorized, "invalid or expired refresh token")
		}
		if err := tx.First(&user, rt.UserID).Error; err != nil {
			return apperr.New(apperr.KindUnauthorized, "user not found")
		}
		if err := tx.Model(&rt).Update("revoked", true).Error; err != nil {
			return apperr.Wrap(err, apperr.KindPersistence, "failed to rotate refresh token")
		}
		var err error
		if fresh, err = newRawToken(); err != nil {
			return apperr.Wrap(err, apperr.KindUnknown, "failed to rotate refresh token")
		}
		next := models.RefreshToken{UserID: user.ID, TokenHash: hashToken(fresh), ExpiresAt: s.now().Add(refreshTokenTTL)}
		if err := tx.Create(&next).Error; err != nil {
			return apperr.Wrap(err, apperr.KindPersistence, "failed to rotate refresh token")
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return &user, fresh, nil
}

// RevokeRefreshToken marks a refresh token as unusable.
func (s *Service) RevokeRefreshToken(ctx context.Context, raw string) error {
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(raw)).
		Update("revoked", true)
	if res.Error != nil {
		return apperr.Wrap(res.Error, apperr.KindPersistence, "failed to revoke token")
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "refresh token not found")
	}
	return nil
}
