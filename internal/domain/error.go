package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrJobNotFound        = errors.New("job expired or was never created")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrJobTerminal        = errors.New("job already reached a terminal state")
	ErrLockNotAcquired    = errors.New("could not acquire lock")
	ErrRateLimited        = errors.New("too many requests")

	// ErrGenerationProvider is the terminal generation error, raised only after
	// every configured provider and retry has been exhausted.
	ErrGenerationProvider = errors.New("all generation providers failed")
)

// QuotaExceededError is returned by the pre-flight quota check. It carries the
// full usage/limits snapshot so callers can render it to the user.
type QuotaExceededError struct {
	Section string
	Usage   map[string]int
	Limits  map[string]int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily limit reached for section %q", e.Section)
}
