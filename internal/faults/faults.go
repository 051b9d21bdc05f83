package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSnapshot is returned when an operation needs spending data the
	// user has not submitted yet.
	ErrNoSnapshot = errors.New("no spending data available")
	// ErrSnapshotNotFound is returned when a referenced snapshot does not
	// exist or belongs to another user.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

type ValidationKind string

const (
	KindType    ValidationKind = "type"
	KindDomain  ValidationKind = "domain"
	KindDerived ValidationKind = "derived"
	KindUnknown ValidationKind = "unknown"
	KindMissing ValidationKind = "missing"
)

// ValidationError reports a single field that failed schema validation.
type ValidationError struct {
	Field  string         `json:"field"`
	Reason string         `json:"reason"`
	Kind   ValidationKind `json:"kind"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// IntakeError aggregates every failing field of one intake call so the
// caller can present all problems at once.
type IntakeError struct {
	Fields []*ValidationError
}

func (e *IntakeError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("intake validation failed for %d field(s): %s", len(e.Fields), strings.Join(names, ", "))
}

// IncompleteProfileError means analytics ran on a partial profile. This is
// a sequencing bug in the caller, not user input.
type IncompleteProfileError struct {
	Missing []string
}

func (e *IncompleteProfileError) Error() string {
	return fmt.Sprintf("profile incomplete, missing fields: %s", strings.Join(e.Missing, ", "))
}

// ScoringError is fatal to the enclosing pipeline run. Model infra
// failures are assumed non-transient so the adapter never retries.
type ScoringError struct {
	Model string
	Cause error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("risk model %q inference failed: %v", e.Model, e.Cause)
}

func (e *ScoringError) Unwrap() error { return e.Cause }

// GenerationError is a language-model failure. The summarizer masks it
// with a deterministic fallback; coaching surfaces it as a generic
// unavailability message.
type GenerationError struct {
	Stage string
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// PersistenceError wraps a store failure. No partial writes are assumed
// committed past one.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }
