package wynk

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime/debug"
	"slices"
	"time"

	"go.uber.org/zap"
)

// Specificity ranks filter registrations when several match one error
const (
	CatchAllSpecificity = 0
	TypeSpecificity     = 1
	KindSpecificity     = 2
)

// FilterRegistration binds an exception filter to the errors it handles
type FilterRegistration struct {
	Filter      ExceptionFilter
	Kinds       []ExceptionKind
	Specificity int

	errType reflect.Type
}

// Catch registers filter for HttpExceptions of the given kinds, or for every
// error when no kind is given.
func Catch(filter ExceptionFilter, kinds ...ExceptionKind) FilterRegistration {
	specificity := CatchAllSpecificity
	if len(kinds) > 0 {
		specificity = KindSpecificity
	}
	return FilterRegistration{Filter: filter, Kinds: kinds, Specificity: specificity}
}

// CatchType registers filter for errors whose chain contains an E
func CatchType[E error](filter ExceptionFilter) FilterRegistration {
	return FilterRegistration{
		Filter:      filter,
		Specificity: TypeSpecificity,
		errType:     reflect.TypeOf((*E)(nil)).Elem(),
	}
}

// Matches reports whether the registration handles err
func (r FilterRegistration) Matches(err error) bool {
	switch {
	case len(r.Kinds) > 0:
		var httpErr *HttpException
		return errors.As(err, &httpErr) && slices.Contains(r.Kinds, httpErr.Kind)
	case r.errType != nil:
		target := reflect.New(r.errType)
		return errors.As(err, target.Interface())
	}
	return true
}

// selectFilter picks the most specific matching registration from the first
// scope that has any match. Scopes are ordered innermost first.
func selectFilter(err error, scopes ...[]FilterRegistration) (FilterRegistration, bool) {
	for _, scope := range scopes {
		best, found := FilterRegistration{}, false
		for _, reg := range scope {
			if reg.Matches(err) && (!found || reg.Specificity > best.Specificity) {
				best, found = reg, true
			}
		}
		if found {
			return best, true
		}
	}
	return FilterRegistration{}, false
}

// panicError carries a value recovered from a panicking handler
type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func recovered(value any) error {
	if err, ok := value.(error); ok {
		return &panicError{value: err, stack: string(debug.Stack())}
	}
	return &panicError{value: value, stack: string(debug.Stack())}
}

// ErrorBody is the generic error response
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
	Name       string `json:"name,omitempty"`
	Errors     any    `json:"errors,omitempty"`
	Stack      string `json:"stack,omitempty"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

const internalServerErrorMessage = "Internal server error"

// DefaultExceptionFilter produces the built-in error responses. Outside
// production it adds the error name, detail and stack.
type DefaultExceptionFilter struct {
	Production bool
	Formatter  ValidationFormatter
	Logger     *zap.Logger
	now        func() time.Time
}

// Catch implements ExceptionFilter
func (f *DefaultExceptionFilter) Catch(c *Context, err error) *Response {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		formatter := f.Formatter
		if formatter == nil {
			formatter = DefaultFormatter{}
		}
		return NewResponse(http.StatusBadRequest, formatter.Format(validationErr))
	}

	body := ErrorBody{
		Timestamp: f.timestamp(),
		Path:      c.Path(),
	}

	var httpErr *HttpException
	var panicErr *panicError
	switch {
	case errors.As(err, &httpErr):
		body.StatusCode = httpErr.Status
		body.Message = httpErr.Message
		body.Error = http.StatusText(httpErr.Status)
		body.Name = httpErr.Name()
		body.Errors = httpErr.Detail
		body.Stack = httpErr.Stack()
		if httpErr.Status >= http.StatusInternalServerError && f.Production && !httpErr.Expose {
			body.Message = internalServerErrorMessage
		}
	case errors.As(err, &panicErr):
		body.StatusCode = http.StatusInternalServerError
		body.Message = panicErr.Error()
		body.Error = http.StatusText(http.StatusInternalServerError)
		body.Name = "Panic"
		body.Stack = panicErr.stack
	default:
		body.StatusCode = http.StatusInternalServerError
		body.Message = err.Error()
		body.Error = http.StatusText(http.StatusInternalServerError)
		body.Name = "Error"
	}

	if body.StatusCode >= http.StatusInternalServerError {
		if f.Logger != nil {
			f.Logger.Error("unhandled error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", body.StatusCode),
				zap.Error(err),
			)
		}
		if f.Production && (httpErr == nil || !httpErr.Expose) {
			body.Message = internalServerErrorMessage
		}
	}

	if f.Production {
		body.Error = ""
		body.Name = ""
		body.Errors = nil
		body.Stack = ""
	}
	return NewResponse(body.StatusCode, body)
}

func (f *DefaultExceptionFilter) timestamp() string {
	now := time.Now
	if f.now != nil {
		now = f.now
	}
	return now().UTC().Format(time.RFC3339)
}
