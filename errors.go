package dclist

import (
	"errors"
	"fmt"
)

// Remote classification codes found in GraphQL error extensions.
const (
	CodeRateLimit      = "RATE_LIMIT"
	CodeBadUserInput   = "BAD_USER_INPUT"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeInternalServer = "INTERNAL_SERVER_ERROR"
)

var (
	// ErrDCList matches every error the library raises. Use errors.Is to
	// handle library failures generically.
	ErrDCList = errors.New("dclist")

	// ErrNoToken describes a client built without an API token. It is only
	// logged; calls that need a token report "not sent" instead.
	ErrNoToken = fmt.Errorf("%w: no API token provided, bot stats will never be posted", ErrDCList)

	// ErrNoHost is returned when an id or count must be resolved but the
	// client was built without a Host.
	ErrNoHost = fmt.Errorf("%w: no host configured to resolve identity", ErrDCList)

	// ErrNoResult marks a single call whose failure was downgraded to a
	// warning (rate limiting, remote internal error). It deliberately does
	// not match ErrDCList.
	ErrNoResult = errors.New("dclist: no result")
)

// HTTPError is a failure reported by the API or the transport.
type HTTPError struct {
	// Text is the remote message, or the raw body when it could not be
	// decoded.
	Text string
	// Code is the remote classification code, empty when absent.
	Code string
	// StatusCode is the HTTP status, zero when not applicable.
	StatusCode int
	// Body is the undecoded payload that carried the failure, if any.
	Body []byte

	cause error
}

func (e *HTTPError) Error() string {
	status := e.Code
	if status == "" && e.StatusCode != 0 {
		status = fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if status == "" {
		return "dclist: " + e.Text
	}
	return fmt.Sprintf("dclist: %s (status code: %s)", e.Text, status)
}

func (e *HTTPError) Is(target error) bool { return target == ErrDCList }

func (e *HTTPError) Unwrap() error { return e.cause }

// UnauthorizedError is raised when the API rejects the token.
type UnauthorizedError struct {
	HTTPError
}

func (e *UnauthorizedError) Error() string {
	return "dclist: unauthorized: " + e.Text
}

// Unwrap exposes the embedded HTTPError to errors.As.
func (e *UnauthorizedError) Unwrap() error { return &e.HTTPError }

// ClientError is raised for failures caused by caller input, both those the
// API reports as BAD_USER_INPUT and documents that fail to build locally.
type ClientError struct {
	Text string
	Code string

	cause error
}

func (e *ClientError) Error() string {
	if e.Code == "" {
		return "dclist: " + e.Text
	}
	return fmt.Sprintf("dclist: %s (%s)", e.Text, e.Code)
}

func (e *ClientError) Is(target error) bool { return target == ErrDCList }

func (e *ClientError) Unwrap() error { return e.cause }

// NoResultReason says why a call produced no result.
type NoResultReason string

const (
	ReasonRateLimited    NoResultReason = "rate_limited"
	ReasonInternalServer NoResultReason = "internal_server_error"
)

// NoResultError is returned by single-call operations when the remote
// failure is one the library only warns about. Callers that treat these as
// transient can test for ErrNoResult and try again later.
type NoResultError struct {
	Reason NoResultReason
	Text   string
	Code   string
}

func (e *NoResultError) Error() string {
	return fmt.Sprintf("dclist: no result (%s): %s", e.Reason, e.Text)
}

func (e *NoResultError) Is(target error) bool { return target == ErrNoResult }
