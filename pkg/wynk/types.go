package wynk

import "reflect"

// Guard decides whether a request may reach its handler. Returning false
// produces a 403; returning an error hands that error to the exception filters.
type Guard interface {
	CanActivate(c *Context) (bool, error)
}

// GuardFunc adapts a function to Guard
type GuardFunc func(c *Context) (bool, error)

// CanActivate implements Guard
func (f GuardFunc) CanActivate(c *Context) (bool, error) {
	return f(c)
}

// ArgumentMetadata describes the handler argument a pipe is transforming
type ArgumentMetadata struct {
	Index  int
	Source Source
	Key    string
	Type   reflect.Type
}

// Pipe transforms or validates one resolved handler argument
type Pipe interface {
	Transform(c *Context, value any, meta ArgumentMetadata) (any, error)
}

// PipeFunc adapts a function to Pipe
type PipeFunc func(c *Context, value any, meta ArgumentMetadata) (any, error)

// Transform implements Pipe
func (f PipeFunc) Transform(c *Context, value any, meta ArgumentMetadata) (any, error) {
	return f(c, value, meta)
}

// CallHandler invokes the rest of the interceptor chain and the handler
type CallHandler func() (any, error)

// Interceptor wraps handler execution. It may act before and after calling
// next, replace the result, or return without calling next at all.
type Interceptor interface {
	Intercept(c *Context, next CallHandler) (any, error)
}

// InterceptorFunc adapts a function to Interceptor
type InterceptorFunc func(c *Context, next CallHandler) (any, error)

// Intercept implements Interceptor
func (f InterceptorFunc) Intercept(c *Context, next CallHandler) (any, error) {
	return f(c, next)
}

// ExceptionFilter converts an error into the response sent to the client
type ExceptionFilter interface {
	Catch(c *Context, err error) *Response
}

// FilterFunc adapts a function to ExceptionFilter
type FilterFunc func(c *Context, err error) *Response

// Catch implements ExceptionFilter
func (f FilterFunc) Catch(c *Context, err error) *Response {
	return f(c, err)
}

// DefaultValue returns a pipe that substitutes fallback for zero-valued arguments
func DefaultValue(fallback any) Pipe {
	return PipeFunc(func(_ *Context, value any, meta ArgumentMetadata) (any, error) {
		if value == nil || reflect.ValueOf(value).IsZero() {
			return fallback, nil
		}
		return value, nil
	})
}

// composeInterceptors folds interceptors right-to-left around final, so the
// first interceptor in the list is the outermost.
func composeInterceptors(interceptors []Interceptor, final func(c *Context) (any, error)) func(c *Context) (any, error) {
	h := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		ic, next := interceptors[i], h
		h = func(c *Context) (any, error) {
			return ic.Intercept(c, func() (any, error) {
				return next(c)
			})
		}
	}
	return h
}
