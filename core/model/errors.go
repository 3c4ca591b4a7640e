package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the engines and the record store adapters.
var (
	// ErrNotFound is returned when a mission, pilot or drone id cannot be resolved.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when a value falls outside its allowed set.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable is returned when the backing record store cannot be reached
	// or is misconfigured. It is never retried by the engines.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrNoSuitableCandidate is returned when matching produced no eligible resource.
	ErrNoSuitableCandidate = errors.New("no suitable candidate")
	// ErrCommitFailed is returned when the store rejected a status commit.
	ErrCommitFailed = errors.New("commit failed")
)

// ValidationError describes a value rejected by an enum or field check.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q (allowed: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }
