package oxidb

import (
	"errors"
	"fmt"
	"strings"
)

// Error is returned when the server answers with {"ok": false}.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oxidb: %s", e.Msg)
}

// ConflictError is returned when the server reports a write conflict,
// e.g. a unique index violation.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("oxidb: conflict: %s", e.Msg)
}

// IsNotFound reports whether the server rejected a request because the
// addressed object does not exist.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && strings.Contains(strings.ToLower(e.Msg), "not found")
}
