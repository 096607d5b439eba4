package client

import "errors"

// ErrRequestFailed matches every *RequestFailedError.
var ErrRequestFailed = errors.New("request failed")

var (
	errMissingUser         = errors.New("missing user")
	errMissingRefreshToken = errors.New("missing refresh_token")
)

// FailureKind tells why a request failed. It is informational only.
type FailureKind string

const (
	KindTransport FailureKind = "transport"
	KindHTTP      FailureKind = "http"
	KindDecode    FailureKind = "decode"
)

// RequestFailedError is the single error type returned by HTTPClient.
type RequestFailedError struct {
	Op      string
	Kind    FailureKind
	Status  int
	Message string
	Err     error
}

func (e *RequestFailedError) Error() string {
	return e.Message
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}
