package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a scan failure so callers can pick a tailored message
type ErrorKind string

const (
	// Upload acquisition
	ErrUnsupportedFormat ErrorKind = "UnsupportedFormat"
	ErrFileTooLarge      ErrorKind = "FileTooLarge"
	ErrReadError         ErrorKind = "ReadError"

	// URL acquisition
	ErrInvalidURL          ErrorKind = "InvalidUrl"
	ErrCaptureTimeout      ErrorKind = "CaptureTimeout"
	ErrCaptureServiceError ErrorKind = "CaptureServiceError"
	ErrEmptyCapture        ErrorKind = "EmptyCapture"
	ErrOffline             ErrorKind = "Offline"
	ErrCaptureFailed       ErrorKind = "CaptureFailed"
	ErrCaptureBlocked      ErrorKind = "CaptureBlocked"

	// Analysis
	ErrMissingCredentials ErrorKind = "MissingCredentials"
	ErrOracleUnavailable  ErrorKind = "OracleUnavailable"
	ErrMalformedResponse  ErrorKind = "MalformedResponse"

	// Controller
	ErrScanInProgress ErrorKind = "ScanInProgress"
)

// ScanError is a classified failure from acquisition, analysis or the controller
type ScanError struct {
	Kind   ErrorKind
	Detail string // Extra context for the message, e.g. the target host
	Err    error
}

// NewError builds a ScanError wrapping err (which may be nil)
func NewError(kind ErrorKind, detail string, err error) *ScanError {
	return &ScanError{Kind: kind, Detail: detail, Err: err}
}

func (e *ScanError) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is matches another ScanError by kind, so errors.Is(err, &ScanError{Kind: k}) works
func (e *ScanError) Is(target error) bool {
	t, ok := target.(*ScanError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first ScanError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
