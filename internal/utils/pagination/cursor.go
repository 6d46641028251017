package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidToken is returned for tokens that do not decode to a Cursor.
var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor is the opaque pagination state we encode/decode.
// CreatedMicro (unix microseconds) + ID establish a stable keyset position; ID
// breaks ties between rows created in the same microsecond. Stored timestamps
// must not be finer than a microsecond (see db.Now).
type Cursor struct {
	ID           uint64 `json:"id"`
	CreatedMicro int64  `json:"created_us,omitempty"`
}

// At builds the cursor pointing just past a row.
func At(id uint64, createdAt time.Time) Cursor {
	return Cursor{ID: id, CreatedMicro: createdAt.UnixMicro()}
}

// IsZero reports whether c represents the first page.
func (c Cursor) IsZero() bool { return c.ID == 0 && c.CreatedMicro == 0 }

// CreatedAt returns the timestamp encoded in the cursor.
func (c Cursor) CreatedAt() time.Time { return time.UnixMicro(c.CreatedMicro).UTC() }

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}

// Limit parses a page size query value, falling back to DefaultLimit and
// clamping to MaxLimit.
func Limit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
