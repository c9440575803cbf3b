package types

import "errors"

var (
	ErrPitchNotFound = errors.New("pitch not found")
	ErrGroupNotFound = errors.New("group not found")

	// ErrSaveInFlight is returned when a publish or draft save is triggered
	// while a previous one has not completed; wizard state is left untouched.
	ErrSaveInFlight = errors.New("a save operation is already in flight")
)
