package asset

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"zeptical/pkg/apperr"
)

const tmpPrefix = ".tmp-"

// Local keeps assets under <root>/images/<category>/<filename>.
// Uniqueness of generated names is the only protection against concurrent writers.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates the category directories below root.
func NewLocal(root, baseURL string) (*Local, error) {
	if root == "" {
		root = "uploads"
	}
	s := &Local{root: root, baseURL: baseURL}
	for _, cat := range Categories {
		if err := os.MkdirAll(s.Dir(cat), 0o755); err != nil {
			return nil, apperr.Wrap(err, apperr.KindAssetStorage, "could not create upload directory")
		}
	}
	return s, nil
}

// PublicDir is the directory served under /images.
func (s *Local) PublicDir() string {
	return filepath.Join(s.root, "images")
}

// Dir returns the directory of one category.
func (s *Local) Dir(cat Category) string {
	return filepath.Join(s.root, "images", string(cat))
}

func (s *Local) Put(ctx context.Context, cat Category, r io.Reader, ext string) (string, error) {
	if !cat.Valid() {
		return "", invalidCategory(cat)
	}
	dir := s.Dir(cat)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(err, apperr.KindAssetStorage, "could not create upload directory")
	}
	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindAssetStorage, "could not store the file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", apperr.Wrap(err, apperr.KindAssetStorage, "could not store the file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", apperr.Wrap(err, apperr.KindAssetStorage, "could not store the file")
	}
	if err := tmp.Close(); err != nil {
		return "", apperr.Wrap(err, apperr.KindAssetStorage, "could not store the file")
	}

	name := newName(ext)
	dst := filepath.Join(dir, name)
	if _, err := os.Stat(dst); err == nil {
		return "", apperr.New(apperr.KindAssetStorage, "generated asset name already exists")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", apperr.Wrap(err, apperr.KindAssetStorage, "could not store the file")
	}
	return name, nil
}

func (s *Local) Delete(ctx context.Context, cat Category, urlOrName string) error {
	if !cat.Valid() {
		return invalidCategory(cat)
	}
	name, err := NameFromURL(urlOrName)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.Dir(cat), name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Wrap(err, apperr.KindAssetStorage, "could not delete the file")
	}
	return nil
}

func (s *Local) URL(cat Category, name string) string {
	return buildURL(s.baseURL, cat, name)
}

// List returns the stored filenames of a category, sorted. In-flight temp files are skipped.
func (s *Local) List(_ context.Context, cat Category) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(cat))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperr.Wrap(err, apperr.KindAssetStorage, "could not list assets")
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}
