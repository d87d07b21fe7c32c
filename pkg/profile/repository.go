// Package profile stores profile documents and merges section updates into them.
package profile

import (
	"context"
	"fmt"

	"zeptical/models"
	"zeptical/pkg/apperr"
	"zeptical/pkg/asset"
)

// Repository persists one profile document per user. Writes are last-write-wins.
type Repository interface {
	// Ensure creates an empty profile for userID unless one exists.
	Ensure(ctx context.Context, userID uint) error
	// Get returns the profile restricted to fields, or (nil, nil) when there is none.
	Get(ctx context.Context, userID uint, fields ...models.Field) (*models.Profile, error)
	// ReplaceField overwrites a single-valued section, creating the profile if needed.
	ReplaceField(ctx context.Context, userID uint, field models.Field, value any) (*models.Profile, error)
	// AppendItem adds item to list and assigns its id when empty.
	AppendItem(ctx context.Context, userID uint, list models.Field, item models.Item) (*models.Profile, error)
	// UpdateItem replaces the element whose id matches item's id.
	UpdateItem(ctx context.Context, userID uint, list models.Field, item models.Item) (*models.Profile, error)
	// RemoveItem drops the element with itemID from list.
	RemoveItem(ctx context.Context, userID uint, list models.Field, itemID string) (*models.Profile, error)
}

// Walker visits every stored profile.
type Walker interface {
	Walk(ctx context.Context, fn func(*models.Profile) error) error
}

// AssetURLs returns the asset URLs referenced by p, grouped by category.
func AssetURLs(p *models.Profile) map[asset.Category][]string {
	out := map[asset.Category][]string{}
	add := func(cat asset.Category, url string) {
		if url != "" {
			out[cat] = append(out[cat], url)
		}
	}
	for _, sec := range []section{projectSection, internshipSection, achievementSection} {
		for _, it := range p.Items(sec.field) {
			add(sec.category, it.AssetURL())
		}
	}
	if c := p.Collaborator; c != nil {
		add(asset.CollaboratorVerification, c.PhotoVerificationURL)
		add(asset.CollaboratorVerification, c.IDVerificationURL)
	}
	return out
}

func checkList(list models.Field) error {
	if !list.IsList() {
		return apperr.New(apperr.KindValidation, fmt.Sprintf("%s is not a list section", list))
	}
	return nil
}

func checkSingle(field models.Field) error {
	if !field.Valid() || field.IsList() {
		return apperr.New(apperr.KindValidation, fmt.Sprintf("%s is not a single-valued section", field))
	}
	return nil
}

func itemNotFound(list models.Field) error {
	return apperr.New(apperr.KindNotFound, fmt.Sprintf("The %s you are looking for does not exist", list))
}

func persistence(err error) error {
	return apperr.Wrap(err, apperr.KindPersistence, "Something went wrong while saving your profile. Please try again")
}
