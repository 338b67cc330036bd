package app

import (
	"errors"
	"fmt"
)

// RefusalAnswer is the grounded-refusal text. It is a successful answer, not
// an error, and must stay distinguishable from an infrastructure failure.
const RefusalAnswer = "I cannot answer based on the provided documents."

// Validation errors: surfaced synchronously to the caller, never retried.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExists      = errors.New("session already exists")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrDocumentExists     = errors.New("document already exists in session")
	ErrDocumentNotIndexed = errors.New("document is not indexed")
	ErrNoIndexedDocuments = errors.New("session has no indexed documents")
	ErrIngestConflict     = errors.New("document ingestion already in progress")
	ErrNotRetryable       = errors.New("document is not in a retryable state")
)

// InfrastructureError marks a transient dependency failure (embedding
// service, chunk store, language model). During a query it is surfaced to
// the caller as a generic transient failure; internals stay in logs.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func infraErr(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// IsInfrastructure reports whether err is (or wraps) an InfrastructureError.
func IsInfrastructure(err error) bool {
	var infra *InfrastructureError
	return errors.As(err, &infra)
}
