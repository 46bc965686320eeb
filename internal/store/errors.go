package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/types"
)

// NotFoundError indicates an unknown entity id
type NotFoundError struct {
	Kind string
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ConflictError indicates a lost compare-and-swap race: another
// writer changed the run's status between the caller's read and its
// write. The caller may retry after re-reading current state.
type ConflictError struct {
	RunID    uuid.UUID
	Expected types.RunStatus
	Actual   types.RunStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("run %s status changed concurrently: expected %s, now %s", e.RunID, e.Expected, e.Actual)
}

// NonMonotonicEpochError indicates an out-of-order metric append.
// Unlike stale progress reports, which are dropped silently, this is
// surfaced to the caller.
type NonMonotonicEpochError struct {
	RunID     uuid.UUID
	Epoch     int
	LastEpoch int
}

func (e *NonMonotonicEpochError) Error() string {
	return fmt.Sprintf("metric epoch %d for run %s is not greater than last recorded epoch %d", e.Epoch, e.RunID, e.LastEpoch)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsNonMonotonicEpoch reports whether err is a NonMonotonicEpochError
func IsNonMonotonicEpoch(err error) bool {
	var nm *NonMonotonicEpochError
	return errors.As(err, &nm)
}
