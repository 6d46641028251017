package repository

import "errors"

// ErrAlreadyDecided is returned when an actor already holds a decision on a
// recipient. Decisions are write-once: neither status nor direction can be
// revised after the first insert.
var ErrAlreadyDecided = errors.New("decision already recorded")

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
