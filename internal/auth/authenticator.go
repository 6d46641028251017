package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/db"
	svcErr "github.com/oggyb/devconnect/internal/errors"
)

// UserLookup resolves active accounts.
type UserLookup interface {
	GetActiveByID(ctx context.Context, id uint64) (*db.User, error)
}

// Authenticator turns a bearer token into an Identity. It is shared by the
// HTTP middleware and the realtime handshake so both reject the same tokens.
type Authenticator struct {
	tokens *TokenService
	users  UserLookup
}

func NewAuthenticator(tokens *TokenService, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate verifies the token and re-checks that the account still exists
// and is active.
//
// Errors:
//   - missing token → Unauthenticated (401)
//   - bad signature / malformed / expired → PermissionDenied (403)
//   - unknown or inactive user → Unauthenticated (401)
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, svcErr.Unauthenticated("Access token required")
	}

	claims, err := a.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return Identity{}, svcErr.PermissionDenied("Token expired")
		}
		return Identity{}, svcErr.PermissionDenied("Invalid token")
	}

	u, err := a.users.GetActiveByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, svcErr.Unauthenticated("User account not found or inactive")
		}
		return Identity{}, svcErr.Internal("Internal server error during authentication", err)
	}

	return Identity{
		UserID:    u.ID,
		Email:     u.Email,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}, nil
}

// TokenFromRequest reads "Authorization: Bearer <token>", falling back to the
// "token" query parameter used by socket clients.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
