package main

import (
	"net/http"

	"zeptical/pkg/account"
	"zeptical/pkg/app"
	"zeptical/pkg/logger"
	"zeptical/pkg/lookup"
	"zeptical/pkg/metrics"
	"zeptical/pkg/profile"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// server holds what the HTTP handlers need.
type server struct {
	log       *zap.Logger
	metrics   *metrics.Metrics
	db        *gorm.DB
	accounts  *account.Service
	profiles  *profile.Service
	lookups   *lookup.Service
	imagesDir string
	jwtSecret []byte
}

func newServer(a *app.App) *server {
	return &server{
		log:       logger.OrNop(a.Log).Named("http"),
		metrics:   a.Metrics,
		db:        a.DB,
		accounts:  a.Accounts,
		profiles:  a.Profiles,
		lookups:   a.Lookups,
		imagesDir: a.ImagesDir,
		jwtSecret: []byte(a.Config.JWTSecret),
	}
}

func (s *server) engine() *gin.Engine {
	r := gin.New()
	r.Use(recoverer(s.log), requestLogger(s.log))
	setupRoutes(r, s)
	return r
}

func setupRoutes(r *gin.Engine, s *server) {
	r.GET("/healthz", s.healthHandler)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	if s.imagesDir != "" {
		r.Static("/images", s.imagesDir)
	}

	api := r.Group("/api")

	auth := api.Group("/user/auth")
	auth.POST("/login", s.loginHandler)
	auth.POST("/refresh", s.refreshHandler)
	auth.POST("/logout", s.logoutHandler)

	prof := api.Group("/user/profile", s.jwtAuthMiddleware())
	prof.GET("/getuser", s.getUserHandler)
	prof.GET("/getuserdetails", s.getUserHandler)
	prof.POST("/updatebasicdetails", s.updateBasicDetailsHandler)
	prof.GET("/getprofile", s.getProfileHandler)
	prof.GET("/public/:username", s.publicProfileHandler)
	prof.POST("/updatelocation", s.updateLocationHandler)
	prof.POST("/updateeducation", s.updateEducationHandler)
	prof.POST("/updateskill", s.updateSkillHandler)
	prof.POST("/updateproject", s.updateProjectHandler)
	prof.POST("/deleteproject", s.deleteProjectHandler)
	prof.POST("/updateinternship", s.updateInternshipHandler)
	prof.POST("/deleteinternship", s.deleteInternshipHandler)
	prof.POST("/updateachievement", s.updateAchievementHandler)
	prof.POST("/deleteachievement", s.deleteAchievementHandler)

	collab := api.Group("/user/collaborator", s.jwtAuthMiddleware())
	collab.GET("/getcollaborator", s.getCollaboratorHandler)
	collab.POST("/createcollaborator", s.createCollaboratorHandler)
	collab.POST("/updatepaymentpreference", s.updatePaymentPreferenceHandler)
	collab.POST("/updatepitchstatus", s.updatePitchStatusHandler)
	collab.POST("/submitverification", s.submitVerificationHandler)
	collab.POST("/deletecollaborator", s.deleteCollaboratorHandler)

	extras := api.Group("/extras", s.jwtAuthMiddleware())
	extras.GET("/:kind", s.listLookupHandler)
	extras.POST("/:kind", s.addLookupHandler)
}

func (s *server) healthHandler(c *gin.Context) {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
