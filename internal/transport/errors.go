package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a business failure raised by a remote service.
type Kind string

const (
	KindUnauthorized Kind = "Unauthorized"
	KindNotFound     Kind = "NotFound"
	KindConflict     Kind = "Conflict"
	KindBadRequest   Kind = "BadRequest"
	KindInternal     Kind = "Internal"
)

// StatusCode returns the HTTP status associated with the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the only failure shape that crosses the broker. It is produced by
// the responding service and travels inside the reply envelope.
type Error struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Kind       Kind   `json:"kind"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

func NewError(kind Kind, message string) *Error {
	return &Error{StatusCode: kind.StatusCode(), Message: message, Kind: kind}
}

func Unauthorized(message string) *Error { return NewError(KindUnauthorized, message) }
func NotFound(message string) *Error     { return NewError(KindNotFound, message) }
func Conflict(message string) *Error     { return NewError(KindConflict, message) }
func BadRequest(message string) *Error   { return NewError(KindBadRequest, message) }

// Internal hides the underlying cause; callers log it before converting.
func Internal() *Error { return NewError(KindInternal, "Internal server error") }

// normalize repairs an error received from the wire so that Kind and
// StatusCode are always populated.
func (e *Error) normalize() *Error {
	out := *e
	if out.Kind == "" {
		out.Kind = kindFromStatus(out.StatusCode)
	}
	if out.StatusCode == 0 {
		out.StatusCode = out.Kind.StatusCode()
	}
	if out.Message == "" {
		out.Message = http.StatusText(out.StatusCode)
	}
	return &out
}

func kindFromStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return KindBadRequest
	default:
		return KindInternal
	}
}

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("rpc timeout")

// TimeoutError is returned by Call when no reply arrived before the deadline.
// The remote effect is unknown: the operation may still complete.
type TimeoutError struct {
	Pattern       string
	CorrelationID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rpc call %q timed out (correlation_id=%s)", e.Pattern, e.CorrelationID)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// TransportError wraps broker failures that never produced a remote reply.
type TransportError struct {
	Op            string
	Pattern       string
	CorrelationID string
	Err           error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed for %q: %v", e.Op, e.Pattern, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AsError extracts a remote business error from err.
func AsError(err error) (*Error, bool) {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}

// CorrelationID returns the correlation id attached to a timeout or transport
// failure, or an empty string.
func CorrelationID(err error) string {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te.CorrelationID
	}
	var tr *TransportError
	if errors.As(err, &tr) {
		return tr.CorrelationID
	}
	return ""
}

// HTTPStatus maps a Call failure to the status a gateway should render.
// Business errors keep their own status; timeouts become 504 and every other
// transport failure becomes 502.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if rpcErr, ok := AsError(err); ok {
		return rpcErr.StatusCode
	}
	if errors.Is(err, ErrTimeout) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
