package errors_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	svcErr "github.com/oggyb/devconnect/internal/errors"
)

func TestMap(t *testing.T) {
	cases := []struct {
		name   string
		in     error
		kind   svcErr.Kind
		status int
	}{
		{"not found", gorm.ErrRecordNotFound, svcErr.KindNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load user: %w", gorm.ErrRecordNotFound), svcErr.KindNotFound, http.StatusNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, svcErr.KindConflict, http.StatusConflict},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), svcErr.KindConflict, http.StatusConflict},
		{"mysql unique", errors.New("Error 1062: Duplicate entry 'a' for key 'idx_users_email'"), svcErr.KindConflict, http.StatusConflict},
		{"deadline", context.DeadlineExceeded, svcErr.KindInternal, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), svcErr.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := svcErr.Map(tc.in)
			assert.Equal(t, tc.kind, svcErr.KindOf(got))
			assert.Equal(t, tc.status, svcErr.KindOf(got).HTTPStatus())
			assert.ErrorIs(t, got, tc.in)
		})
	}
}

func TestMap_KeepsClassifiedErrors(t *testing.T) {
	in := svcErr.AlreadyExists("Already interacted with this user")
	assert.Same(t, in, svcErr.Map(in))
	assert.Nil(t, svcErr.Map(nil))
}

func TestMessage_HidesInternals(t *testing.T) {
	err := svcErr.Internal("Failed to send message", errors.New("db down"))
	assert.Equal(t, "Failed to send message", svcErr.Message(err))
	assert.Equal(t, "Server error", svcErr.Message(errors.New("raw")))
	assert.Equal(t, "server_error", svcErr.KindOf(err).Code())
	assert.Equal(t, "validation_error", svcErr.KindOf(svcErr.InvalidArgument("x")).Code())
}
