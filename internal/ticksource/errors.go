package ticksource

import "errors"

var (
	// ErrMalformedLine is returned in strict mode for a line that cannot be parsed.
	ErrMalformedLine = errors.New("malformed tick line")
	// ErrUnknownFormat is returned when no line matches a supported layout.
	ErrUnknownFormat = errors.New("unknown tick file format")
)
