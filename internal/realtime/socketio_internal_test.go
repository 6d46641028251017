package realtime

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginChecker(t *testing.T) {
	req := func(origin string) bool {
		r := httptest.NewRequest("GET", "/socket.io/", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return originChecker([]string{"http://localhost:5173"})(r)
	}

	assert.True(t, req("http://localhost:5173"))
	assert.True(t, req(""), "non-browser clients send no origin")
	assert.False(t, req("http://evil.example"))

	r := httptest.NewRequest("GET", "/socket.io/", nil)
	r.Header.Set("Origin", "http://anything")
	assert.True(t, originChecker(nil)(r))
	assert.True(t, originChecker([]string{"*"})(r))
}
