package account_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/auth"
	"github.com/oggyb/devconnect/internal/db"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/service/account"
	"github.com/oggyb/devconnect/internal/testutil"
)

func setup(t *testing.T) (*app.AppContext, http.Handler) {
	t.Helper()
	appCtx := testutil.NewAppContext(t)
	return appCtx, testutil.NewAPI(t, appCtx, account.NewRegistrar(appCtx))
}

func TestRegister(t *testing.T) {
	appCtx, api := setup(t)

	w, body := testutil.Do(t, api, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":      "  Ada@Example.com ",
		"username":   "ada",
		"password":   "secret1",
		"skills":     []string{"Go", " Go ", "Rust"},
		"lookingFor": []string{"React"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	require.NotEmpty(t, body["token"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "light", user["theme"])
	assert.Equal(t, db.DefaultAvatarURL("ada"), user["avatarUrl"])
	assert.Equal(t, []any{"Go", "Rust"}, user["skills"])

	claims, err := appCtx.Tokens.Parse(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "ada", claims.Username)

	var stored db.User
	require.NoError(t, appCtx.DB.Where("username = ?", "ada").First(&stored).Error)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "secret1"))
	assert.True(t, stored.Active)
}

func TestRegister_Validation(t *testing.T) {
	_, api := setup(t)

	tests := []struct {
		name string
		body map[string]any
		msg  string
	}{
		{"missing fields", map[string]any{"email": "x@test.com"}, "Email, username, and password are required"},
		{"short password", map[string]any{"email": "x@test.com", "username": "x", "password": "123"}, "Password must be at least 6 characters"},
		{"bad email", map[string]any{"email": "nope", "username": "x", "password": "123456"}, "Invalid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := testutil.Do(t, api, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.msg, body["message"])
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestRegister_Conflicts(t *testing.T) {
	_, api := setup(t)

	w, body := testutil.Do(t, api, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "u1@test.com", "username": "fresh", "password": "123456",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already registered", body["message"])

	w, body = testutil.Do(t, api, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "fresh@test.com", "username": "user1", "password": "123456",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Username already taken", body["message"])
}

func TestLogin(t *testing.T) {
	appCtx, api := setup(t)
	svc := account.NewAccountService(appCtx)

	_, err := svc.Register(context.Background(), account.RegisterInput{
		Email: "bob@test.com", Username: "bob", Password: "hunter22",
	})
	require.NoError(t, err)

	w, body := testutil.Do(t, api, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "BOB@test.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "bob@test.com", body["user"].(map[string]any)["email"])
	assert.NotContains(t, body["user"], "passwordHash")
	token := body["token"].(string)

	var stored db.User
	require.NoError(t, appCtx.DB.Where("username = ?", "bob").First(&stored).Error)
	assert.NotNil(t, stored.LastLoginAt)

	w, body = testutil.Do(t, api, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", body["user"].(map[string]any)["username"])

	w, body = testutil.Do(t, api, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "bob@test.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", body["message"])

	w, body = testutil.Do(t, api, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ghost@test.com", "password": "whatever",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", body["message"])

	testutil.Deactivate(t, appCtx.DB, stored.ID)
	_, err = svc.Login(context.Background(), "bob@test.com", "hunter22")
	assert.Equal(t, svcErr.KindPermissionDenied, svcErr.KindOf(err))

	w, body = testutil.Do(t, api, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "bob@test.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Account is deactivated", body["message"])
	assert.Equal(t, false, body["success"])

	// the token outlives the account but is refused
	w, _ = testutil.Do(t, api, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_RequiresToken(t *testing.T) {
	_, api := setup(t)

	w, body := testutil.Do(t, api, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access token required", body["message"])
}
