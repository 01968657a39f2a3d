package events

import "time"

// FieldCompileStart is emitted before a field's expression is produced for
// one use of the field. Path is the response path, e.g. "people.items".
type FieldCompileStart struct {
	Field string
	Path  string
}

// FieldCompileFinish is emitted once the expression is produced, or the
// field failed validation, authorization or substitution.
type FieldCompileFinish struct {
	Field    string
	Path     string
	Skipped  bool
	Err      error
	Duration time.Duration
}
