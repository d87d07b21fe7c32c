// Package lookup serves the reference lists (skills, boards, schools, colleges,
// streams, cities, states) offered as suggestions in profile forms.
package lookup

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"zeptical/models"
	"zeptical/pkg/apperr"
	"zeptical/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: logger.OrNop(log).Named("lookup")}
}

func (s *Service) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.LookupValue{})
}

func label(kind models.LookupKind) string {
	k := string(kind)
	return strings.ToUpper(k[:1]) + k[1:]
}

func bounds(kind models.LookupKind) (int, int) {
	if kind == models.LookupSkill {
		return 3, 20
	}
	return 3, 100
}

func parseKind(kind string) (models.LookupKind, error) {
	k := models.LookupKind(strings.ToLower(strings.TrimSpace(kind)))
	if !k.Valid() {
		return "", apperr.New(apperr.KindNotFound, fmt.Sprintf("Unknown list %q", kind))
	}
	return k, nil
}

// Add stores value in the kind list. It reports false when the value exists
// already, compared case-insensitively.
func (s *Service) Add(ctx context.Context, kind, value string) (bool, error) {
	k, err := parseKind(kind)
	if err != nil {
		return false, err
	}
	value = strings.TrimSpace(value)
	lo, hi := bounds(k)
	if n := utf8.RuneCountInString(value); n < lo || n > hi {
		if n == 0 {
			return false, apperr.New(apperr.KindValidation, label(k)+" cannot be blank")
		}
		return false, apperr.New(apperr.KindValidation, fmt.Sprintf("%s should be %d to %d characters long", label(k), lo, hi))
	}
	row := models.LookupValue{Kind: k, Value: value, Normalized: strings.ToLower(value)}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "normalized"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, apperr.Wrap(res.Error, apperr.KindPersistence, "Something went wrong. Please try again.")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	s.log.Debug("lookup value added", zap.String("kind", string(k)), zap.String("value", value))
	return true, nil
}

// List returns the values of kind sorted alphabetically.
func (s *Service) List(ctx context.Context, kind string) ([]models.LookupValue, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	var out []models.LookupValue
	if err := s.db.WithContext(ctx).Where("kind = ?", k).Order("normalized asc").Find(&out).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "Something went wrong. Please try again.")
	}
	return out, nil
}

// AlreadyExists is the message reported when Add finds a duplicate.
func AlreadyExists(kind string) string {
	k, err := parseKind(kind)
	if err != nil {
		return "Value already exists"
	}
	return label(k) + " already exists"
}

// Saved is the message reported when Add stores a new value.
func Saved(kind string) string {
	k, err := parseKind(kind)
	if err != nil {
		return "Value successfully saved"
	}
	return label(k) + " successfully saved"
}
