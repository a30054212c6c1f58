package models

import "errors"

// The closed error taxonomy. C1–C3 surface low-level errors; C4–C7 wrap
// them into one of these sentinels with %w so callers can errors.Is/As at
// the CLI/MCP boundary without losing the underlying cause.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrAmbiguous              = errors.New("ambiguous: confirmation required")
	ErrEmbedderUnavailable    = errors.New("embedder unavailable")
	ErrFetchFailed            = errors.New("fetch failed")
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")
	ErrCorruption             = errors.New("corruption")
	ErrConflict               = errors.New("conflict")
	ErrNotSupported           = errors.New("not supported")
	ErrOversized              = errors.New("input exceeds per-batch token cap")
	ErrConfirmationRequired   = errors.New("confirmation required")
)
