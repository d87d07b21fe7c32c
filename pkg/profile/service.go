package profile

import (
	"context"
	"strings"

	"zeptical/models"
	"zeptical/pkg/apperr"
	"zeptical/pkg/asset"
	"zeptical/pkg/logger"
	"zeptical/pkg/metrics"
	"zeptical/pkg/photo"

	"go.uber.org/zap"
)

// Assets is the part of the photo pipeline the controller depends on.
type Assets interface {
	Process(ctx context.Context, cat asset.Category, u *photo.Upload, maxBytes int64) (string, error)
	Discard(ctx context.Context, cat asset.Category, url string)
}

// UsernameResolver maps a public username to a user id.
type UsernameResolver interface {
	ResolveUsername(ctx context.Context, username string) (uint, error)
}

// section describes one repeatable sub-collection.
type section struct {
	field        models.Field
	category     asset.Category
	label        string
	missingAsset string
	validate     func(models.Item) error
}

var (
	projectSection = section{
		field:        models.FieldProject,
		category:     asset.ProjectPhoto,
		label:        "Project",
		missingAsset: "Please provide your project photo",
		validate:     validateProject,
	}
	internshipSection = section{
		field:        models.FieldInternship,
		category:     asset.InternshipCertificate,
		label:        "Internship",
		missingAsset: "Please provide your internship certificate",
		validate:     validateInternship,
	}
	achievementSection = section{
		field:        models.FieldAchievement,
		category:     asset.AchievementCertificate,
		label:        "Achievement",
		missingAsset: "Please provide your competition certificate",
		validate:     validateAchievement,
	}
)

// Service applies section updates to profile documents and keeps the referenced
// assets in step with them.
type Service struct {
	repo     Repository
	assets   Assets
	users    UsernameResolver
	maxBytes int64
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewService(repo Repository, assets Assets, users UsernameResolver, maxBytes int64, log *zap.Logger, m *metrics.Metrics) *Service {
	if maxBytes <= 0 {
		maxBytes = photo.MaxBytes
	}
	return &Service{
		repo:     repo,
		assets:   assets,
		users:    users,
		maxBytes: maxBytes,
		log:      logger.OrNop(log).Named("profile"),
		metrics:  m,
	}
}

func invalid(msg string) error {
	return apperr.New(apperr.KindValidation, msg)
}

// Profile returns the full profile, or an empty one when nothing was saved yet.
func (s *Service) Profile(ctx context.Context, userID uint) (*models.Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &models.Profile{UserID: userID}
	}
	return p, nil
}

// PublicProfile returns the profile of username without collaborator data.
func (s *Service) PublicProfile(ctx context.Context, username string) (*models.Profile, error) {
	if s.users == nil {
		return nil, apperr.New(apperr.KindNotFound, "User not found")
	}
	id, err := s.users.ResolveUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	p, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Collaborator = nil
	return p, nil
}

func (s *Service) UpsertProject(ctx context.Context, userID uint, in models.Project, upload *photo.Upload) (*models.Profile, error) {
	return s.upsertItem(ctx, userID, projectSection, &in, upload)
}

func (s *Service) UpsertInternship(ctx context.Context, userID uint, in models.Internship, upload *photo.Upload) (*models.Profile, error) {
	return s.upsertItem(ctx, userID, internshipSection, &in, upload)
}

func (s *Service) UpsertAchievement(ctx context.Context, userID uint, in models.Achievement, upload *photo.Upload) (*models.Profile, error) {
	return s.upsertItem(ctx, userID, achievementSection, &in, upload)
}

func (s *Service) DeleteProject(ctx context.Context, userID uint, id string) (*models.Profile, error) {
	return s.deleteItem(ctx, userID, projectSection, id)
}

func (s *Service) DeleteInternship(ctx context.Context, userID uint, id string) (*models.Profile, error) {
	return s.deleteItem(ctx, userID, internshipSection, id)
}

func (s *Service) DeleteAchievement(ctx context.Context, userID uint, id string) (*models.Profile, error) {
	return s.deleteItem(ctx, userID, achievementSection, id)
}

// upsertItem creates the item when its id is empty and updates it otherwise.
// Without an upload an update keeps the stored asset URL.
func (s *Service) upsertItem(ctx context.Context, userID uint, sec section, item models.Item, upload *photo.Upload) (*models.Profile, error) {
	ctx = context.WithoutCancel(ctx)
	op := "update"

	if err := sec.validate(item); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(item.ItemID())
	item.SetItemID(id)
	if id == "" {
		op = "append"
		if upload == nil {
			return nil, invalid(sec.missingAsset)
		}
	}

	var prevURL string
	if id != "" {
		current, err := s.repo.Get(ctx, userID, sec.field)
		if err != nil {
			return nil, err
		}
		existing := current.FindItem(sec.field, id)
		if existing == nil {
			return nil, itemNotFound(sec.field)
		}
		prevURL = existing.AssetURL()
	}

	var newURL string
	if upload != nil {
		url, err := s.assets.Process(ctx, sec.category, upload, s.maxBytes)
		if err != nil {
			s.metrics.ProfileMutation(string(sec.field), op, err)
			return nil, err
		}
		newURL = url
		item.SetAssetURL(newURL)
	} else {
		item.SetAssetURL(prevURL)
	}

	var (
		p   *models.Profile
		err error
	)
	if id == "" {
		p, err = s.repo.AppendItem(ctx, userID, sec.field, item)
	} else {
		p, err = s.repo.UpdateItem(ctx, userID, sec.field, item)
	}
	s.metrics.ProfileMutation(string(sec.field), op, err)
	if err != nil {
		s.log.Error("write item",
			zap.Uint("user_id", userID),
			zap.String("section", string(sec.field)),
			zap.String("op", op),
			zap.Error(err),
		)
		if newURL != "" {
			s.assets.Discard(ctx, sec.category, newURL)
		}
		return nil, err
	}
	if newURL != "" && prevURL != "" && prevURL != newURL {
		s.assets.Discard(ctx, sec.category, prevURL)
	}
	s.log.Info("item saved",
		zap.Uint("user_id", userID),
		zap.String("section", string(sec.field)),
		zap.String("op", op),
		zap.String("item_id", item.ItemID()),
	)
	return p, nil
}

func (s *Service) deleteItem(ctx context.Context, userID uint, sec section, id string) (*models.Profile, error) {
	ctx = context.WithoutCancel(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid(sec.label + " id is not present")
	}
	current, err := s.repo.Get(ctx, userID, sec.field)
	if err != nil {
		return nil, err
	}
	existing := current.FindItem(sec.field, id)
	if existing == nil {
		return nil, itemNotFound(sec.field)
	}
	assetURL := existing.AssetURL()

	p, err := s.repo.RemoveItem(ctx, userID, sec.field, id)
	s.metrics.ProfileMutation(string(sec.field), "remove", err)
	if err != nil {
		return nil, err
	}
	s.assets.Discard(ctx, sec.category, assetURL)
	s.log.Info("item removed",
		zap.Uint("user_id", userID),
		zap.String("section", string(sec.field)),
		zap.String("item_id", id),
	)
	return p, nil
}

func (s *Service) replace(ctx context.Context, userID uint, field models.Field, value any) (*models.Profile, error) {
	p, err := s.repo.ReplaceField(context.WithoutCancel(ctx), userID, field, value)
	s.metrics.ProfileMutation(string(field), "replace", err)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateLocation(ctx context.Context, userID uint, in models.Location) (*models.Profile, error) {
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	if in.City == "" {
		return nil, invalid("Please provide your city name")
	}
	if in.State == "" {
		return nil, invalid("Please provide your state name")
	}
	return s.replace(ctx, userID, models.FieldLocation, in)
}

func (s *Service) UpdateEducation(ctx context.Context, userID uint, in models.Education) (*models.Profile, error) {
	in.Qualification = strings.TrimSpace(in.Qualification)
	var err error
	if in.Primary, err = checkTier(in.Primary, false, "Please provide your primary school name and board name"); err != nil {
		return nil, err
	}
	if in.Secondary, err = checkTier(in.Secondary, false, "Please provide your secondary college name and board name"); err != nil {
		return nil, err
	}
	if in.Vocational, err = checkTier(in.Vocational, true, "Please provide your diploma college name and stream name"); err != nil {
		return nil, err
	}
	if in.Degree, err = checkTier(in.Degree, true, "Please provide your degree college name and stream name"); err != nil {
		return nil, err
	}
	return s.replace(ctx, userID, models.FieldEducation, in)
}

// checkTier trims t and enforces that its institution and its board (or stream)
// are both set or both empty. An empty tier becomes nil.
func checkTier(t *models.EducationTier, useStream bool, msg string) (*models.EducationTier, error) {
	if t == nil {
		return nil, nil
	}
	t.Institution = strings.TrimSpace(t.Institution)
	t.Board = strings.TrimSpace(t.Board)
	t.Stream = strings.TrimSpace(t.Stream)
	t.Marks = strings.TrimSpace(t.Marks)
	pair := t.Board
	if useStream {
		pair = t.Stream
	}
	if (t.Institution == "") != (pair == "") {
		return nil, invalid(msg)
	}
	if t.Institution == "" {
		return nil, nil
	}
	return t, nil
}

func (s *Service) UpdateSkills(ctx context.Context, userID uint, skills []string) (*models.Profile, error) {
	if len(skills) == 0 {
		return nil, invalid("Please provide your skill")
	}
	out := make([]string, 0, len(skills))
	for _, sk := range skills {
		sk = strings.TrimSpace(sk)
		if sk == "" {
			return nil, invalid("Please provide your skill")
		}
		out = append(out, sk)
	}
	return s.replace(ctx, userID, models.FieldSkill, out)
}

func validateProject(it models.Item) error {
	p := it.(*models.Project)
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.ExternalLink = strings.TrimSpace(p.ExternalLink)
	p.RepoLink = strings.TrimSpace(p.RepoLink)
	switch {
	case p.Name == "":
		return invalid("Please provide your project name")
	case p.Description == "":
		return invalid("Please provide your project description")
	case p.ExternalLink == "" && p.RepoLink == "":
		return invalid("Please provide your project link or github link")
	}
	return nil
}

func validateInternship(it models.Item) error {
	in := it.(*models.Internship)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Duration = strings.TrimSpace(in.Duration)
	in.Stipend = strings.TrimSpace(in.Stipend)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.CompanyName == "":
		return invalid("Please provide the company name in which you did internship")
	case in.Duration == "":
		return invalid("Please provide your internship duration")
	case in.Stipend == "":
		return invalid("Does this internship provide a stipend?")
	case in.Description == "":
		return invalid("In a few words describe the work that you did in the internship")
	}
	return nil
}

func validateAchievement(it models.Item) error {
	a := it.(*models.Achievement)
	a.Name = strings.TrimSpace(a.Name)
	a.Level = strings.TrimSpace(a.Level)
	a.Description = strings.TrimSpace(a.Description)
	switch {
	case a.Name == "":
		return invalid("Please provide the competition name in which you have participated")
	case a.Level == "":
		return invalid("Please provide your competition level")
	case a.Description == "":
		return invalid("In a few words describe the competition")
	}
	return nil
}
