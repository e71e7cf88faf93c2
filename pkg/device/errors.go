package device

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failed measurement attempt
type FailureKind string

const (
	Timeout           FailureKind = "timeout"
	ConnectionRefused FailureKind = "connection_refused"
	MalformedResponse FailureKind = "malformed_response"
	EmptyResponse     FailureKind = "empty_response"
)

// AcquisitionError is returned for any single failed measurement attempt.  It
// carries the failure kind so callers can aggregate failures by taxonomy
// without string matching.
type AcquisitionError struct {
	Kind   FailureKind
	Device string
	Msg    string
	Err    error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Device, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Device, e.Kind, e.Msg)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain.  The second return is
// false when the error is not an acquisition failure.
func KindOf(err error) (FailureKind, bool) {
	var aerr *AcquisitionError
	if errors.As(err, &aerr) {
		return aerr.Kind, true
	}
	return "", false
}
