package summary

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrColumnNotFound is matched by *ColumnNotFoundError via errors.Is.
	ErrColumnNotFound = errors.New("column not found")
	// ErrNoColumns is returned when no columns were requested.
	ErrNoColumns = errors.New("no columns requested")
)

// ColumnNotFoundError names every requested column absent from the table.
type ColumnNotFoundError struct {
	Missing   []string
	Available []string
}

func (e *ColumnNotFoundError) Error() string {
	msg := fmt.Sprintf("column not found: %s", strings.Join(quoteAll(e.Missing), ", "))
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

func (e *ColumnNotFoundError) Is(target error) bool { return target == ErrColumnNotFound }

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
