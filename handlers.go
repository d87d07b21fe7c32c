package main

import (
	"zeptical/models"
	"zeptical/pkg/account"
	"zeptical/pkg/photo"

	"github.com/gin-gonic/gin"
)

// formUpload returns the uploaded file in field, or nil when the request has none.
func formUpload(c *gin.Context, field string) *photo.Upload {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return photo.FromMultipart(fh)
}

func (s *server) getUserHandler(c *gin.Context) {
	u, err := s.accounts.Details(c.Request.Context(), userID(c))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, u, "")
}

func (s *server) updateBasicDetailsHandler(c *gin.Context) {
	var req struct {
		FullName string `form:"userFullname"`
		Username string `form:"username"`
		Gender   string `form:"userGender"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	u, err := s.accounts.UpdateBasicDetails(c.Request.Context(), userID(c),
		account.BasicDetails{FullName: req.FullName, Username: req.Username, Gender: req.Gender},
		formUpload(c, "userPhoto"))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, u, "Your profile has been updated")
}

func (s *server) getProfileHandler(c *gin.Context) {
	p, err := s.profiles.Profile(c.Request.Context(), userID(c))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p, "")
}

func (s *server) publicProfileHandler(c *gin.Context) {
	p, err := s.profiles.PublicProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p, "")
}

func (s *server) updateLocationHandler(c *gin.Context) {
	var req models.Location
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	p, err := s.profiles.UpdateLocation(c.Request.Context(), userID(c), req)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p.Location, "Your location has been saved")
}

func (s *server) updateEducationHandler(c *gin.Context) {
	var req models.Education
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	p, err := s.profiles.UpdateEducation(c.Request.Context(), userID(c), req)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p.Education, "Your education details has been saved")
}

func (s *server) updateSkillHandler(c *gin.Context) {
	var req struct {
		Skill []string `json:"skill"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	p, err := s.profiles.UpdateSkills(c.Request.Context(), userID(c), req.Skill)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p.Skill, "Your skills has been saved")
}

// Project, internship and achievement updates arrive as multipart forms. An
// empty id creates the item, any other id updates it in place.

func (s *server) updateProjectHandler(c *gin.Context) {
	var req struct {
		ProjectID   string `form:"projectId"`
		Name        string `form:"name"`
		Description string `form:"description"`
		ProjectLink string `form:"projectLink"`
		GithubLink  string `form:"githubLink"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	in := models.Project{
		ID:           req.ProjectID,
		Name:         req.Name,
		Description:  req.Description,
		ExternalLink: req.ProjectLink,
		RepoLink:     req.GithubLink,
	}
	p, err := s.profiles.UpsertProject(c.Request.Context(), userID(c), in, formUpload(c, "photo"))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p.Project, "Your project has been updated")
}

func (s *server) deleteProjectHandler(c *gin.Context) {
	var req struct {
		ProjectID string `json:"projectId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	p, err := s.profiles.DeleteProject(c.Request.Context(), userID(c), req.ProjectID)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p.Project, "Your project has been deleted")
}

func (s *server) updateInternshipHandler(c *gin.Context) {
	var req struct {
		InternshipID string `form:"internshipId"`
		CompanyName  string `form:"companyName"`
		Duration     string `form:"duration"`
		Stipends     string `form:"stipends"`
		Description  string `form:"description"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	in := models.Internship{
		ID:          req.InternshipID,
		CompanyName: req.CompanyName,
		Duration:    req.Duration,
		Stipend:     req.Stipends,
		Description: req.Description,
	}
	p, err := s.profiles.UpsertInternship(c.Request.Context(), userID(c), in, formUpload(c, "certificate"))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p.Internship, "Your internship has been updated")
}

func (s *server) deleteInternshipHandler(c *gin.Context) {
	var req struct {
		InternshipID string `json:"internshipId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	p, err := s.profiles.DeleteInternship(c.Request.Context(), userID(c), req.InternshipID)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p.Internship, "Your internship has been deleted")
}

func (s *server) updateAchievementHandler(c *gin.Context) {
	var req struct {
		AchievementID string `form:"achievementId"`
		Name          string `form:"name"`
		Level         string `form:"level"`
		Description   string `form:"description"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	in := models.Achievement{
		ID:          req.AchievementID,
		Name:        req.Name,
		Level:       req.Level,
		Description: req.Description,
	}
	p, err := s.profiles.UpsertAchievement(c.Request.Context(), userID(c), in, formUpload(c, "certificate"))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p.Achievement, "Your achievement has been updated")
}

func (s *server) deleteAchievementHandler(c *gin.Context) {
	var req struct {
		AchievementID string `json:"achievementId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	p, err := s.profiles.DeleteAchievement(c.Request.Context(), userID(c), req.AchievementID)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, p.Achievement, "Your achievement has been deleted")
}
