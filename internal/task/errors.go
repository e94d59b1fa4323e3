package task

import "errors"

var (
	// ErrMissingField is returned when a job lacks a field its task type requires.
	ErrMissingField = errors.New("required field missing")

	// ErrUnknownTaskType is returned when a job names an unrecognized task type.
	ErrUnknownTaskType = errors.New("unknown task type")
)
