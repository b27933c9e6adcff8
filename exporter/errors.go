package exporter

import (
	"errors"
	"fmt"
)

var ErrRunInProgress = errors.New("an export is already running")

// UpstreamError tags a failure with the remote service it came from.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
