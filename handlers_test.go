package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/gif"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"zeptical/models"
	"zeptical/pkg/account"
	"zeptical/pkg/asset"
	"zeptical/pkg/lookup"
	"zeptical/pkg/metrics"
	"zeptical/pkg/photo"
	"zeptical/pkg/profile"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type testEnv struct {
	r     *gin.Engine
	srv   *server
	store *asset.Local
	user  *models.User
	token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	store, err := asset.NewLocal(t.TempDir(), "http://localhost:8081")
	require.NoError(t, err)

	m := metrics.New()
	pipeline := photo.New(store, photo.DefaultQuality, nil, m)
	accounts := account.NewService(db, pipeline, 0, nil)
	require.NoError(t, accounts.Migrate(ctx))
	repo := profile.NewGormRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	lookups := lookup.NewService(db, nil)
	require.NoError(t, lookups.Migrate(ctx))

	srv := &server{
		log:       zap.NewNop(),
		metrics:   m,
		db:        db,
		accounts:  accounts,
		profiles:  profile.NewService(repo, pipeline, accounts, 0, nil, m),
		lookups:   lookups,
		imagesDir: store.PublicDir(),
		jwtSecret: []byte("test-secret"),
	}
	u, err := accounts.CreateUser(ctx, "asha@example.com", "asha", "Asha Rao", "secret1")
	require.NoError(t, err)
	token, err := srv.issueAccessToken(u.ID)
	require.NoError(t, err)
	return &testEnv{r: srv.engine(), srv: srv, store: store, user: u, token: token}
}

type response struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Msg     string          `json:"msg"`
	Kind    string          `json:"kind"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, result any) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	if result != nil {
		require.NoError(t, json.Unmarshal(resp.Result, result), string(resp.Result))
	}
	return resp
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for k, b := range files {
		w, err := mw.CreateFormFile(k, k+".img")
		require.NoError(t, err)
		_, err = w.Write(b)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	img.Set(1, 1, color.NRGBA{G: 180, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestLoginAndAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.r, http.MethodPost, "/api/user/auth/login",
		jsonBody(t, map[string]string{"email": "asha@example.com", "password": "nope"}), "", "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec, nil).Kind)

	rec = performRequest(env.r, http.MethodPost, "/api/user/auth/login",
		jsonBody(t, map[string]string{"email": "asha@example.com", "password": "secret1"}), "", "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair tokenPair
	resp := decode(t, rec, &pair)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, pair.Token)
	assert.NotEmpty(t, pair.RefreshToken)

	rec = performRequest(env.r, http.MethodGet, "/api/user/profile/getuser", nil, pair.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var u models.User
	decode(t, rec, &u)
	assert.Equal(t, "asha", u.Username)

	rec = performRequest(env.r, http.MethodGet, "/api/user/profile/getuser", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = performRequest(env.r, http.MethodGet, "/api/user/profile/getuser", nil, "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	env := newTestEnv(t)
	raw, err := env.srv.accounts.IssueRefreshToken(context.Background(), env.user.ID)
	require.NoError(t, err)

	rec := performRequest(env.r, http.MethodPost, "/api/user/auth/refresh",
		jsonBody(t, map[string]string{"refreshToken": raw}), "", "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair tokenPair
	decode(t, rec, &pair)
	assert.NotEqual(t, raw, pair.RefreshToken)

	rec = performRequest(env.r, http.MethodPost, "/api/user/auth/refresh",
		jsonBody(t, map[string]string{"refreshToken": raw}), "", "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = performRequest(env.r, http.MethodPost, "/api/user/auth/logout",
		jsonBody(t, map[string]string{"refreshToken": pair.RefreshToken}), "", "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = performRequest(env.r, http.MethodPost, "/api/user/auth/logout",
		jsonBody(t, map[string]string{}), "", "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode(t, rec, nil).Kind)
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	fields := map[string]string{
		"projectId":   "",
		"name":        "Tracker",
		"description": "habit tracker",
		"githubLink":  "https://github.com/asha/tracker",
	}

	body, ct := multipartBody(t, fields, nil)
	rec := performRequest(env.r, http.MethodPost, "/api/user/profile/updateproject", body, env.token, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "Please provide your project photo", resp.Msg)

	body, ct = multipartBody(t, fields, map[string][]byte{"photo": gifBytes(t)})
	rec = performRequest(env.r, http.MethodPost, "/api/user/profile/updateproject", body, env.token, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	body, ct = multipartBody(t, fields, map[string][]byte{"photo": pngBytes(t)})
	rec = performRequest(env.r, http.MethodPost, "/api/user/profile/updateproject", body, env.token, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var projects []models.Project
	resp = decode(t, rec, &projects)
	assert.Equal(t, "Your project has been updated", resp.Msg)
	require.Len(t, projects, 1)
	created := projects[0]
	assert.NotEmpty(t, created.ID)
	assert.True(t, strings.HasPrefix(created.PhotoURL, "http://localhost:8081/images/project_photo/"))

	// stored file is served under /images
	rec = performRequest(env.r, http.MethodGet, strings.TrimPrefix(created.PhotoURL, "http://localhost:8081"), nil, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// update without a new photo keeps the stored one
	fields["projectId"] = created.ID
	fields["name"] = "Tracker 2"
	body, ct = multipartBody(t, fields, nil)
	rec = performRequest(env.r, http.MethodPost, "/api/user/profile/updateproject", body, env.token, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, "Tracker 2", projects[0].Name)
	assert.Equal(t, created.PhotoURL, projects[0].PhotoURL)

	rec = performRequest(env.r, http.MethodPost, "/api/user/profile/deleteproject",
		jsonBody(t, map[string]string{"projectId": "missing"}), env.token, "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = performRequest(env.r, http.MethodPost, "/api/user/profile/deleteproject",
		jsonBody(t, map[string]string{"projectId": created.ID}), env.token, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &projects)
	assert.Empty(t, projects)

	names, err := env.store.List(context.Background(), asset.ProjectPhoto)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSingleSections(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.r, http.MethodPost, "/api/user/profile/updatelocation",
		jsonBody(t, map[string]string{"city": "Pune", "state": ""}), env.token, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(env.r, http.MethodPost, "/api/user/profile/updatelocation",
		jsonBody(t, map[string]string{"city": "Pune", "state": "Maharashtra"}), env.token, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = performRequest(env.r, http.MethodPost, "/api/user/profile/updateskill",
		jsonBody(t, map[string][]string{"skill": {"go", "sql"}}), env.token, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = performRequest(env.r, http.MethodGet, "/api/user/profile/getprofile", nil, env.token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Profile
	decode(t, rec, &p)
	require.NotNil(t, p.Location)
	assert.Equal(t, "Pune", p.Location.City)
	assert.Equal(t, []string{"go", "sql"}, p.Skill)
}

func TestCollaboratorRoutesAndPublicProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.r, http.MethodPost, "/api/user/collaborator/createcollaborator",
		jsonBody(t, map[string]string{"paymentPreference": "upi"}), env.token, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = performRequest(env.r, http.MethodPost, "/api/user/collaborator/updatepitchstatus",
		jsonBody(t, map[string]any{}), env.token, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(env.r, http.MethodPost, "/api/user/collaborator/updatepitchstatus",
		jsonBody(t, map[string]any{"pitchStatus": false}), env.token, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var c models.Collaborator
	decode(t, rec, &c)
	assert.True(t, c.IsApplied)
	assert.False(t, c.PitchStatus)

	body, ct := multipartBody(t, nil, map[string][]byte{"photo": pngBytes(t), "idProof": pngBytes(t)})
	rec = performRequest(env.r, http.MethodPost, "/api/user/collaborator/submitverification", body, env.token, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &c)
	assert.NotEmpty(t, c.IDVerificationURL)

	rec = performRequest(env.r, http.MethodGet, "/api/user/profile/public/asha", nil, env.token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Profile
	decode(t, rec, &p)
	assert.Nil(t, p.Collaborator)

	rec = performRequest(env.r, http.MethodGet, "/api/user/profile/public/nobody", nil, env.token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = performRequest(env.r, http.MethodPost, "/api/user/collaborator/deletecollaborator", nil, env.token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &c)
	assert.False(t, c.IsApplied)
	names, err := env.store.List(context.Background(), asset.CollaboratorVerification)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestExtras(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.r, http.MethodPost, "/api/extras/skill",
		jsonBody(t, map[string]string{"value": "Golang"}), env.token, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec, nil)
	assert.True(t, resp.Success)
	assert.Equal(t, "Skill successfully saved", resp.Msg)

	rec = performRequest(env.r, http.MethodPost, "/api/extras/skill",
		jsonBody(t, map[string]string{"value": "golang"}), env.token, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode(t, rec, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "Skill already exists", resp.Msg)

	rec = performRequest(env.r, http.MethodGet, "/api/extras/skill", nil, env.token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var values []models.LookupValue
	decode(t, rec, &values)
	require.Len(t, values, 1)
	assert.Equal(t, "Golang", values[0].Value)

	rec = performRequest(env.r, http.MethodGet, "/api/extras/planet", nil, env.token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.r, http.MethodGet, "/healthz", nil, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	body, ct := multipartBody(t, map[string]string{"name": "x", "description": "y", "projectLink": "https://x.dev"},
		map[string][]byte{"photo": pngBytes(t)})
	rec = performRequest(env.r, http.MethodPost, "/api/user/profile/updateproject", body, env.token, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = performRequest(env.r, http.MethodGet, "/metrics", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `zeptical_asset_writes_total{category="project_photo",result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `zeptical_profile_mutations_total{op="append",result="ok",section="project"} 1`)
}
