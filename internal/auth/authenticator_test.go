package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/db"
	svcErr "github.com/oggyb/devconnect/internal/errors"
)

type fakeUsers map[uint64]*db.User

func (f fakeUsers) GetActiveByID(_ context.Context, id uint64) (*db.User, error) {
	if id == 500 {
		return nil, errors.New("connection refused")
	}
	u, ok := f[id]
	if !ok || !u.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func TestAuthenticate(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	a := NewAuthenticator(tokens, fakeUsers{
		1: {ID: 1, Username: "alice", Email: "a@x.io", AvatarURL: "pic", Active: true},
		2: {ID: 2, Username: "bob", Active: false},
	})
	ctx := context.Background()

	valid, _ := tokens.Generate(1, "a@x.io", "alice")
	inactive, _ := tokens.Generate(2, "b@x.io", "bob")
	broken, _ := tokens.Generate(500, "c@x.io", "carol")

	id, err := a.Authenticate(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 1, Email: "a@x.io", Username: "alice", AvatarURL: "pic"}, id)

	_, err = a.Authenticate(ctx, "")
	assert.Equal(t, svcErr.KindUnauthenticated, svcErr.KindOf(err))

	_, err = a.Authenticate(ctx, "garbage")
	assert.Equal(t, svcErr.KindPermissionDenied, svcErr.KindOf(err))
	assert.Equal(t, "Invalid token", svcErr.Message(err))

	_, err = a.Authenticate(ctx, inactive)
	assert.Equal(t, svcErr.KindUnauthenticated, svcErr.KindOf(err))

	_, err = a.Authenticate(ctx, broken)
	assert.Equal(t, svcErr.KindInternal, svcErr.KindOf(err))

	expiredSvc := NewTokenService("secret", time.Hour)
	expiredSvc.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	expired, _ := expiredSvc.Generate(1, "a@x.io", "alice")
	_, err = a.Authenticate(ctx, expired)
	assert.Equal(t, "Token expired", svcErr.Message(err))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/socket.io/?token=qtok", nil)
	assert.Equal(t, "qtok", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer htok")
	assert.Equal(t, "htok", TokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", TokenFromRequest(r))
}
