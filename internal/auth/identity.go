package auth

import "context"

// Identity is the authenticated user bound to a request or socket session.
type Identity struct {
	UserID    uint64
	Email     string
	Username  string
	AvatarURL string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != 0
}
