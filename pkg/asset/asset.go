// Package asset stores the binary files (photos and certificates) referenced by
// profile documents. Files are addressed by category and a generated filename and
// exposed to clients under PUBLIC_BASE_URL/images/<category>/<filename>.
package asset

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"zeptical/pkg/apperr"

	"github.com/google/uuid"
)

// Category scopes an asset to one kind of profile field.
type Category string

const (
	ProfilePhoto             Category = "profile_photo"
	ProjectPhoto             Category = "project_photo"
	InternshipCertificate    Category = "internship_certificate"
	AchievementCertificate   Category = "achievement_certificate"
	CollaboratorVerification Category = "collaborator_verification"
)

// Categories lists every known category.
var Categories = []Category{
	ProfilePhoto,
	ProjectPhoto,
	InternshipCertificate,
	AchievementCertificate,
	CollaboratorVerification,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Store is the asset store contract shared by the local and S3 drivers.
type Store interface {
	// Put writes r as a new file in cat and returns its generated filename.
	Put(ctx context.Context, cat Category, r io.Reader, ext string) (string, error)
	// Delete removes the file named by the last path segment of urlOrName.
	// A missing file is not an error.
	Delete(ctx context.Context, cat Category, urlOrName string) error
	// URL returns the absolute public URL of a stored file.
	URL(cat Category, name string) string
}

// Lister is implemented by drivers that can enumerate stored files.
type Lister interface {
	// List returns the filenames stored in cat, sorted.
	List(ctx context.Context, cat Category) ([]string, error)
}

func newName(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return uuid.NewString() + ext
}

// NameFromURL resolves the trailing path segment of a stored URL (or a bare filename).
func NameFromURL(urlOrName string) (string, error) {
	s := strings.TrimSpace(urlOrName)
	if s == "" {
		return "", apperr.New(apperr.KindAssetStorage, "asset reference is empty")
	}
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		s = u.Path
	}
	name := path.Base(s)
	if name == "." || name == "/" || name == ".." || strings.Contains(name, `\`) {
		return "", apperr.New(apperr.KindAssetStorage, fmt.Sprintf("invalid asset reference %q", urlOrName))
	}
	return name, nil
}

// publicPath is the path below the public base URL (and the S3 object key).
func publicPath(cat Category, name string) string {
	return "images/" + string(cat) + "/" + name
}

func buildURL(baseURL string, cat Category, name string) string {
	return strings.TrimRight(baseURL, "/") + "/" + publicPath(cat, name)
}

func invalidCategory(cat Category) error {
	return apperr.New(apperr.KindAssetStorage, fmt.Sprintf("unknown asset category %q", cat))
}
