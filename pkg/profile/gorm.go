package profile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"zeptical/models"
	"zeptical/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// profileRecord is the relational shape of a profile: one row per user, one
// JSON column per section.
type profileRecord struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UserID       uint `gorm:"uniqueIndex;not null"`
	Location     datatypes.JSON
	Education    datatypes.JSON
	Skill        datatypes.JSON
	Project      datatypes.JSON
	Internship   datatypes.JSON
	Achievement  datatypes.JSON
	Collaborator datatypes.JSON
}

func (profileRecord) TableName() string { return "profiles" }

func (r *profileRecord) column(f models.Field) *datatypes.JSON {
	switch f {
	case models.FieldLocation:
		return &r.Location
	case models.FieldEducation:
		return &r.Education
	case models.FieldSkill:
		return &r.Skill
	case models.FieldProject:
		return &r.Project
	case models.FieldInternship:
		return &r.Internship
	case models.FieldAchievement:
		return &r.Achievement
	case models.FieldCollaborator:
		return &r.Collaborator
	}
	return nil
}

func (r *profileRecord) toModel() (*models.Profile, error) {
	p := &models.Profile{UserID: r.UserID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	targets := map[models.Field]any{
		models.FieldLocation:     &p.Location,
		models.FieldEducation:    &p.Education,
		models.FieldSkill:        &p.Skill,
		models.FieldProject:      &p.Project,
		models.FieldInternship:   &p.Internship,
		models.FieldAchievement:  &p.Achievement,
		models.FieldCollaborator: &p.Collaborator,
	}
	for f, dst := range targets {
		raw := *r.column(f)
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func encodeSection(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// GormRepository keeps profiles in the profiles table (postgres in production).
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the profiles table.
func (r *GormRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&profileRecord{})
}

func (r *GormRepository) Ensure(ctx context.Context, userID uint) error {
	return ensureRecord(r.db.WithContext(ctx), userID)
}

func ensureRecord(tx *gorm.DB, userID uint) error {
	rec := profileRecord{UserID: userID}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&rec).Error
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (r *GormRepository) Get(ctx context.Context, userID uint, fields ...models.Field) (*models.Profile, error) {
	q := r.db.WithContext(ctx)
	if len(fields) > 0 {
		cols := []string{"id", "user_id", "created_at", "updated_at"}
		for _, f := range fields {
			if f.Valid() {
				cols = append(cols, string(f))
			}
		}
		q = q.Select(cols)
	}
	var rec profileRecord
	if err := q.Where("user_id = ?", userID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistence(err)
	}
	p, err := rec.toModel()
	if err != nil {
		return nil, persistence(err)
	}
	return p, nil
}

// Walk calls fn for every profile, loading rows in batches.
func (r *GormRepository) Walk(ctx context.Context, fn func(*models.Profile) error) error {
	var recs []profileRecord
	res := r.db.WithContext(ctx).FindInBatches(&recs, 200, func(_ *gorm.DB, _ int) error {
		for i := range recs {
			p, err := recs[i].toModel()
			if err != nil {
				return err
			}
			if err := fn(p); err != nil {
				return err
			}
		}
		return nil
	})
	if res.Error != nil {
		return persistence(res.Error)
	}
	return nil
}

func (r *GormRepository) ReplaceField(ctx context.Context, userID uint, field models.Field, value any) (*models.Profile, error) {
	if err := checkSingle(field); err != nil {
		return nil, err
	}
	return r.mutate(ctx, userID, true, func(p *models.Profile) (models.Field, error) {
		if err := p.SetField(field, value); err != nil {
			return "", apperr.Wrap(err, apperr.KindValidation, "invalid "+string(field))
		}
		return field, nil
	})
}

func (r *GormRepository) AppendItem(ctx context.Context, userID uint, list models.Field, item models.Item) (*models.Profile, error) {
	if err := checkList(list); err != nil {
		return nil, err
	}
	if item.ItemID() == "" {
		item.SetItemID(uuid.NewString())
	}
	return r.mutate(ctx, userID, true, func(p *models.Profile) (models.Field, error) {
		items := append(p.Items(list), item)
		if err := p.SetItems(list, items); err != nil {
			return "", apperr.Wrap(err, apperr.KindValidation, "invalid "+string(list))
		}
		return list, nil
	})
}

func (r *GormRepository) UpdateItem(ctx context.Context, userID uint, list models.Field, item models.Item) (*models.Profile, error) {
	if err := checkList(list); err != nil {
		return nil, err
	}
	return r.mutate(ctx, userID, false, func(p *models.Profile) (models.Field, error) {
		items := p.Items(list)
		found := false
		for i, it := range items {
			if it.ItemID() == item.ItemID() {
				items[i] = item
				found = true
				break
			}
		}
		if !found {
			return "", itemNotFound(list)
		}
		if err := p.SetItems(list, items); err != nil {
			return "", apperr.Wrap(err, apperr.KindValidation, "invalid "+string(list))
		}
		return list, nil
	})
}

func (r *GormRepository) RemoveItem(ctx context.Context, userID uint, list models.Field, itemID string) (*models.Profile, error) {
	if err := checkList(list); err != nil {
		return nil, err
	}
	return r.mutate(ctx, userID, false, func(p *models.Profile) (models.Field, error) {
		items := p.Items(list)
		kept := items[:0]
		for _, it := range items {
			if it.ItemID() != itemID {
				kept = append(kept, it)
			}
		}
		if len(kept) == len(items) {
			return "", itemNotFound(list)
		}
		if err := p.SetItems(list, kept); err != nil {
			return "", apperr.Wrap(err, apperr.KindValidation, "invalid "+string(list))
		}
		return list, nil
	})
}

// mutate loads the profile, applies change and writes back the one section it
// touched. With create false a missing profile is reported as not found.
func (r *GormRepository) mutate(ctx context.Context, userID uint, create bool, change func(*models.Profile) (models.Field, error)) (*models.Profile, error) {
	var out *models.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if create {
			if err := ensureRecord(tx, userID); err != nil {
				return err
			}
		}
		var rec profileRecord
		if err := tx.Where("user_id = ?", userID).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "Profile not found")
			}
			return persistence(err)
		}
		p, err := rec.toModel()
		if err != nil {
			return persistence(err)
		}
		field, err := change(p)
		if err != nil {
			return err
		}
		var value any
		switch field {
		case models.FieldLocation:
			value = p.Location
		case models.FieldEducation:
			value = p.Education
		case models.FieldSkill:
			value = p.Skill
		case models.FieldProject:
			value = p.Project
		case models.FieldInternship:
			value = p.Internship
		case models.FieldAchievement:
			value = p.Achievement
		case models.FieldCollaborator:
			value = p.Collaborator
		}
		col, err := encodeSection(value)
		if err != nil {
			return persistence(err)
		}
		if err := tx.Model(&rec).Update(string(field), col).Error; err != nil {
			return persistence(err)
		}
		p.UpdatedAt = rec.UpdatedAt
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
