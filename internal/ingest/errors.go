package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIngestionTimeout means a file exceeded the per-file processing budget.
// The import can be retried.
var ErrIngestionTimeout = errors.New("ingestion timed out")

// ErrUnknownType means the record-type selector matched no registered
// descriptor.
var ErrUnknownType = errors.New("unknown record type")

// MissingColumnsError reports every mandatory field that could not be
// resolved against the file header. It is raised before any row processing.
type MissingColumnsError struct {
	Fields []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("required columns not found: %s", strings.Join(e.Fields, ", "))
}

// PersistenceError wraps a storage failure that aborted a whole batch. The
// file's rows were rolled back; none were added.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
