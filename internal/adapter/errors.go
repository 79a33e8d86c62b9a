package adapter

import (
	"errors"
)

var (
	// ErrAuthFailure is returned when the service-account token exchange fails.
	ErrAuthFailure = errors.New("upstream authentication failed")

	// ErrUpstreamFailure is returned when a course or coursework fetch fails or times out.
	ErrUpstreamFailure = errors.New("upstream request failed")
)
