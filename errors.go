package repro

import "errors"

var (
	// ErrFormat is returned when input bytes cannot be parsed as the
	// content type a stripper handles.
	ErrFormat = errors.New("repro: malformed input")

	// ErrConfig is returned when a stripper is constructed with invalid
	// configuration, such as an unparseable entry pattern.
	ErrConfig = errors.New("repro: invalid configuration")
)
