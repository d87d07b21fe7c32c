package profile

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"zeptical/models"
	"zeptical/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server only when MONGO_URI_TEST is set, e.g.
// MONGO_URI_TEST=mongodb://localhost:27017 go test ./pkg/profile -run Mongo
func newMongoTestRepo(t *testing.T) *MongoRepository {
	t.Helper()
	uri := os.Getenv("MONGO_URI_TEST")
	if uri == "" {
		t.Skip("MONGO_URI_TEST not set; skipping mongo repository test")
	}
	ctx := context.Background()
	db, err := ConnectMongo(ctx, uri, fmt.Sprintf("zeptical_test_%d", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})
	r := NewMongoRepository(db)
	require.NoError(t, r.Migrate(ctx))
	return r
}

func TestMongoItemLifecycle(t *testing.T) {
	r := newMongoTestRepo(t)
	ctx := context.Background()

	p, err := r.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, p)

	item := &models.Internship{CompanyName: "Acme", CertificateURL: "u1"}
	p, err = r.AppendItem(ctx, 1, models.FieldInternship, item)
	require.NoError(t, err)
	require.Len(t, p.Internship, 1)
	assert.Len(t, item.ID, 24)

	p, err = r.UpdateItem(ctx, 1, models.FieldInternship, &models.Internship{ID: item.ID, CompanyName: "Acme Corp", CertificateURL: "u2"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", p.Internship[0].CompanyName)

	_, err = r.UpdateItem(ctx, 1, models.FieldInternship, &models.Internship{ID: "000000000000000000000000"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	p, err = r.RemoveItem(ctx, 1, models.FieldInternship, item.ID)
	require.NoError(t, err)
	assert.Empty(t, p.Internship)

	_, err = r.RemoveItem(ctx, 1, models.FieldInternship, item.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMongoReplaceField(t *testing.T) {
	r := newMongoTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Ensure(ctx, 2))
	require.NoError(t, r.Ensure(ctx, 2))

	p, err := r.ReplaceField(ctx, 2, models.FieldCollaborator, models.Collaborator{IsApplied: true, PitchStatus: true})
	require.NoError(t, err)
	require.NotNil(t, p.Collaborator)
	assert.True(t, p.Collaborator.IsApplied)

	p, err = r.ReplaceField(ctx, 3, models.FieldSkill, []string{"go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, p.Skill)

	p, err = r.Get(ctx, 2, models.FieldCollaborator)
	require.NoError(t, err)
	assert.NotNil(t, p.Collaborator)
	assert.Nil(t, p.Skill)
}
