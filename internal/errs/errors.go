// Package errs defines the failure classes an analysis run can end in.
//
// Transports only need to tell two of them apart: bad input (the caller can fix
// the request) and everything else (an internal failure).
package errs

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is wrapped by an InputError when the dataset holds fewer
// records than the estimated cluster count.
var ErrInsufficientData = errors.New("not enough data to form the estimated number of clusters")

// InputError indicates a missing or unusable payload.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Msg == "" && e.Err != nil {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *InputError) Unwrap() error { return e.Err }

// MalformedResponseError indicates LLM output that could not be reduced to the
// expected JSON object.
type MalformedResponseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ClusteringError indicates a numeric fault while partitioning vectors.
type ClusteringError struct {
	Msg string
	Err error
}

func (e *ClusteringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("clustering failed: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("clustering failed: %s", e.Msg)
}

func (e *ClusteringError) Unwrap() error { return e.Err }

// UpstreamError indicates the LLM call itself failed (network, auth, quota, timeout).
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: model call failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Input builds an InputError from a format string.
func Input(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// IsBadInput reports whether err should be surfaced as a client-side fault.
func IsBadInput(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Category names the transport-level class of err: "bad_input" or "internal".
func Category(err error) string {
	if IsBadInput(err) {
		return "bad_input"
	}
	return "internal"
}
