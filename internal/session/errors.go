package session

import "errors"

var (
	// ErrInvalidOrderSize is returned for an order size below 1.
	ErrInvalidOrderSize = errors.New("order size must be >= 1")
	// ErrUnknownCommand is returned by Execute for an unsupported command name.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidPlan is returned by ParsePlan and RunPlan for a malformed or out-of-range order plan.
	ErrInvalidPlan = errors.New("invalid order plan")
)
