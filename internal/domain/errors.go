package domain

import "errors"

var (
	// ErrInvalidInput marks validation failures; handlers map it to 400.
	ErrInvalidInput = errors.New("invalid input")

	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomAlreadyExists   = errors.New("room already exists")
	ErrRoomCapacityReached = errors.New("room capacity reached")
	ErrRoomFull            = errors.New("room is full")
	ErrWrongPassword       = errors.New("wrong password")

	ErrInvalidTransition  = errors.New("invalid connection status transition")
	ErrVersionConflict    = errors.New("room was modified concurrently")
	ErrTransactionAborted = errors.New("transaction aborted after repeated conflicts")

	// ErrStorage wraps failures of the backing store.
	ErrStorage = errors.New("storage failure")
)
