package users_test

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/service/users"
	"github.com/oggyb/devconnect/internal/storage"
	"github.com/oggyb/devconnect/internal/testutil"
)

func setup(t *testing.T, avatars *storage.AvatarStore) (*app.AppContext, http.Handler) {
	t.Helper()
	appCtx := testutil.NewAppContext(t)
	return appCtx, testutil.NewAPI(t, appCtx, users.NewRegistrar(appCtx, avatars))
}

func TestProfileHidesEmailFromOthers(t *testing.T) {
	appCtx, api := setup(t, nil)
	token := testutil.Token(t, appCtx, 1)

	w, body := testutil.Do(t, api, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := body["data"].(map[string]any)
	assert.Equal(t, "user1", me["username"])
	assert.Equal(t, "u1@test.com", me["email"])
	assert.Equal(t, "light", me["theme"])

	w, body = testutil.Do(t, api, http.MethodGet, "/api/users/profile/2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	other := body["data"].(map[string]any)
	assert.Equal(t, "user2", other["username"])
	assert.NotContains(t, other, "email")

	w, body = testutil.Do(t, api, http.MethodGet, "/api/users/profile/999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", body["message"])

	w, _ = testutil.Do(t, api, http.MethodGet, "/api/users/profile/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = testutil.Do(t, api, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	appCtx, api := setup(t, nil)
	token := testutil.Token(t, appCtx, 1)

	w, body := testutil.Do(t, api, http.MethodPut, "/api/users/profile", token, map[string]any{"username": "user2"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Username already taken", body["message"])

	w, body = testutil.Do(t, api, http.MethodPut, "/api/users/profile", token, map[string]any{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Theme must be light or dark", body["message"])

	w, _ = testutil.Do(t, api, http.MethodPut, "/api/users/profile", token, map[string]any{"githubUrl": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = testutil.Do(t, api, http.MethodPut, "/api/users/profile", token, map[string]any{
		"username":  "gopher",
		"theme":     "dark",
		"skills":    []string{"Go", " Go ", "Rust"},
		"githubUrl": "https://github.com/gopher",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Profile updated successfully", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "gopher", data["username"])
	assert.Equal(t, "dark", data["theme"])
	assert.Equal(t, []any{"Go", "Rust"}, data["skills"])
	// untouched fields keep their value
	assert.Equal(t, "golang backend developer", data["bio"])

	// keeping your own username is not a conflict
	w, _ = testutil.Do(t, api, http.MethodPut, "/api/users/profile", token, map[string]any{"username": "gopher"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeactivate(t *testing.T) {
	appCtx, api := setup(t, nil)
	token := testutil.Token(t, appCtx, 3)

	w, _ := testutil.Do(t, api, http.MethodDelete, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// the old token no longer authenticates
	w, _ = testutil.Do(t, api, http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = testutil.Do(t, api, http.MethodGet, "/api/users/profile/3", testutil.Token(t, appCtx, 1), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearch(t *testing.T) {
	appCtx := testutil.NewAppContext(t)
	svc := users.NewUserService(appCtx, nil)
	ctx := context.Background()

	out, err := svc.Search(ctx, 1, "Developer", "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "user2", out[0].Username)

	out, err = svc.Search(ctx, 1, "", "go")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "user4", out[0].Username)

	out, err = svc.Search(ctx, 1, "", "")
	require.NoError(t, err)
	assert.Len(t, out, 3)

	testutil.Deactivate(t, appCtx.DB, 4)
	out, err = svc.Search(ctx, 1, "", "Go")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAvatarUploadURL(t *testing.T) {
	_, api := setup(t, nil)
	w, _ := testutil.Do(t, api, http.MethodPost, "/api/users/avatar/upload-url", "", map[string]any{"contentType": "image/png"})
	assert.Equal(t, http.StatusNotFound, w.Code, "route is absent without a bucket")

	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	cfg := testutil.Config()
	cfg.S3.Bucket = "avatars"
	cfg.S3.Region = "us-east-1"
	store, err := storage.NewAvatarStore(context.Background(), cfg,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKID", "secret", "")))
	require.NoError(t, err)

	appCtx, api := setup(t, store)
	token := testutil.Token(t, appCtx, 2)

	w, body := testutil.Do(t, api, http.MethodPost, "/api/users/avatar/upload-url", token, map[string]any{"contentType": "image/jpeg"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := body["data"].(map[string]any)
	assert.True(t, strings.HasPrefix(data["key"].(string), "avatars/2/"))
	assert.Contains(t, data["uploadUrl"], "X-Amz-Signature")

	w, _ = testutil.Do(t, api, http.MethodPost, "/api/users/avatar/upload-url", token, map[string]any{"contentType": "text/html"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = testutil.Do(t, api, http.MethodPost, "/api/users/avatar/upload-url", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
