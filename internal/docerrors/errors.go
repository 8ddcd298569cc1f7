// Package docerrors defines sentinel errors shared across the sync
// engine, store, and API layers. Callers match them with errors.Is.
package docerrors

import "errors"

// Input and lookup errors.
var (
	ErrUnknownDocType       = errors.New("unknown document type")
	ErrProjectNotFound      = errors.New("project not found")
	ErrUnknownResolution    = errors.New("unknown conflict resolution")
	ErrMissingCustomContent = errors.New("custom content required for keep_custom resolution")
)

// Sync errors.
var (
	// ErrNoDocumentFile is returned by a forced import when no candidate
	// file exists on disk. Importing nothing would wipe the record.
	ErrNoDocumentFile = errors.New("no document file on disk")

	// ErrConcurrentUpdate is returned when a conditional write finds the
	// document version changed since it was read. Safe to retry.
	ErrConcurrentUpdate = errors.New("document modified since analysis")
)
