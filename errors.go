package archecs

import (
	"errors"
	"fmt"
)

// NoSuchEntity reports that an EntityID is not present in the world's entity
// set (never allocated, or already despawned). Only TryRemove returns it
// (wrapped in an EntityError); the other mutating operations report a
// missing entity through a false bool result or do nothing.
type NoSuchEntity struct {
	ID EntityID
}

func (e *NoSuchEntity) Error() string {
	return fmt.Sprintf("archecs: no such entity %d", uint64(e.ID))
}

// Mismatch reports that an entity exists but the requested component is not
// present on it. Only TryRemove returns it (wrapped in an EntityError).
type Mismatch struct {
	ID   EntityID
	What string
}

func (e *Mismatch) Error() string {
	return fmt.Sprintf("archecs: entity %d has no %s", uint64(e.ID), e.What)
}

// EntityError is the error returned by operations (like TryRemove) that can
// fail in either of the two ways above; callers distinguish them with
// errors.As, or with IsNoSuchEntity/IsMismatch.
type EntityError struct {
	ID   EntityID
	kind error
}

func (e *EntityError) Error() string {
	return e.kind.Error()
}

func (e *EntityError) Unwrap() error {
	return e.kind
}

func newNoSuchEntity(id EntityID) error {
	return &EntityError{ID: id, kind: &NoSuchEntity{ID: id}}
}

func newMismatch(id EntityID, what string) error {
	return &EntityError{ID: id, kind: &Mismatch{ID: id, What: what}}
}

// IsNoSuchEntity reports whether err (or any error it wraps) is a NoSuchEntity.
func IsNoSuchEntity(err error) bool {
	var target *NoSuchEntity
	return errors.As(err, &target)
}

// IsMismatch reports whether err (or any error it wraps) is a Mismatch.
func IsMismatch(err error) bool {
	var target *Mismatch
	return errors.As(err, &target)
}

// WriteAlias is a structural error reported at query-construction time: a
// query declares write access to a component together with another read or
// write access to the same component. It is always a programming bug.
type WriteAlias struct {
	Type string
}

func (e *WriteAlias) Error() string {
	return fmt.Sprintf("archecs: query mutably aliases component %s with itself", e.Type)
}

var errRangeExhausted = errors.New("archecs: entity id range allocator exhausted")
