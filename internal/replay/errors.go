package replay

import "errors"

// ErrInvalidOrdering is returned when ticks are not in ascending timestamp order.
var ErrInvalidOrdering = errors.New("ticks are not in ascending timestamp order")

// ErrNoTicks is returned when a dataset has no ticks to replay.
var ErrNoTicks = errors.New("no ticks to replay")
