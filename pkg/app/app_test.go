package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"zeptical/pkg/asset"
	"zeptical/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAssetsLocal(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{AssetDriver: "local", UploadBase: root, PublicBaseURL: "http://localhost:8081"}

	store, dir, err := OpenAssets(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &asset.Local{}, store)
	assert.Equal(t, filepath.Join(root, "images"), dir)

	for _, cat := range asset.Categories {
		fi, err := os.Stat(filepath.Join(dir, string(cat)))
		require.NoError(t, err)
		assert.True(t, fi.IsDir())
	}
}

func TestOpenAssetsS3RequiresBucket(t *testing.T) {
	cfg := &config.Config{AssetDriver: "s3", PublicBaseURL: "http://localhost:8081"}
	_, _, err := OpenAssets(context.Background(), cfg)
	assert.Error(t, err)
}
