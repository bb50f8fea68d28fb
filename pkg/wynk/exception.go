package wynk

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ExceptionKind tags the variant of an HttpException
type ExceptionKind int

const (
	KindCustom ExceptionKind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnprocessable
	KindTooManyRequests
	KindInternal
	KindServiceUnavailable
)

var kindNames = map[ExceptionKind]string{
	KindCustom:             "HttpException",
	KindBadRequest:         "BadRequestException",
	KindUnauthorized:       "UnauthorizedException",
	KindForbidden:          "ForbiddenException",
	KindNotFound:           "NotFoundException",
	KindConflict:           "ConflictException",
	KindUnprocessable:      "UnprocessableEntityException",
	KindTooManyRequests:    "TooManyRequestsException",
	KindInternal:           "InternalServerErrorException",
	KindServiceUnavailable: "ServiceUnavailableException",
}

// String returns the exception name for the kind
func (k ExceptionKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindCustom]
}

// KindForStatus maps an HTTP status to its exception kind
func KindForStatus(status int) ExceptionKind {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnprocessableEntity:
		return KindUnprocessable
	case http.StatusTooManyRequests:
		return KindTooManyRequests
	case http.StatusInternalServerError:
		return KindInternal
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable
	default:
		return KindCustom
	}
}

// HttpException is an error that carries the HTTP response it should produce
type HttpException struct {
	Kind    ExceptionKind
	Status  int
	Message string
	Detail  any
	Cause   error

	// Expose keeps the message of a 5xx exception visible in production
	Expose bool

	stack string
}

// Error implements the error interface
func (e *HttpException) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Unwrap returns the underlying cause
func (e *HttpException) Unwrap() error {
	return e.Cause
}

// Name returns the exception name, e.g. NotFoundException
func (e *HttpException) Name() string {
	return e.Kind.String()
}

// Stack returns the call stack captured when the exception was created
func (e *HttpException) Stack() string {
	return e.stack
}

// IsClientError reports whether the status is in the 4xx range
func (e *HttpException) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// WithDetail attaches structured detail, shown outside production
func (e *HttpException) WithDetail(detail any) *HttpException {
	e.Detail = detail
	return e
}

// WithCause records the error that caused this exception
func (e *HttpException) WithCause(cause error) *HttpException {
	e.Cause = cause
	return e
}

// Exposed marks a server error message as safe to show in production
func (e *HttpException) Exposed() *HttpException {
	e.Expose = true
	return e
}

// NewHttpException creates an exception for an arbitrary status code
func NewHttpException(status int, message string) *HttpException {
	if message == "" {
		message = http.StatusText(status)
	}
	return &HttpException{
		Kind:    KindForStatus(status),
		Status:  status,
		Message: message,
		stack:   captureStack(3),
	}
}

func newKind(kind ExceptionKind, status int, message string) *HttpException {
	if message == "" {
		message = http.StatusText(status)
	}
	return &HttpException{
		Kind:    kind,
		Status:  status,
		Message: message,
		stack:   captureStack(4),
	}
}

// BadRequest creates a 400 exception
func BadRequest(message string) *HttpException {
	return newKind(KindBadRequest, http.StatusBadRequest, message)
}

// Unauthorized creates a 401 exception
func Unauthorized(message string) *HttpException {
	return newKind(KindUnauthorized, http.StatusUnauthorized, message)
}

// Forbidden creates a 403 exception
func Forbidden(message string) *HttpException {
	return newKind(KindForbidden, http.StatusForbidden, message)
}

// NotFound creates a 404 exception
func NotFound(message string) *HttpException {
	return newKind(KindNotFound, http.StatusNotFound, message)
}

// Conflict creates a 409 exception
func Conflict(message string) *HttpException {
	return newKind(KindConflict, http.StatusConflict, message)
}

// UnprocessableEntity creates a 422 exception
func UnprocessableEntity(message string) *HttpException {
	return newKind(KindUnprocessable, http.StatusUnprocessableEntity, message)
}

// TooManyRequests creates a 429 exception
func TooManyRequests(message string) *HttpException {
	return newKind(KindTooManyRequests, http.StatusTooManyRequests, message)
}

// InternalServerError creates a 500 exception
func InternalServerError(message string) *HttpException {
	return newKind(KindInternal, http.StatusInternalServerError, message)
}

// ServiceUnavailable creates a 503 exception
func ServiceUnavailable(message string) *HttpException {
	return newKind(KindServiceUnavailable, http.StatusServiceUnavailable, message)
}

func captureStack(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}
