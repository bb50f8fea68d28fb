package wynk

import (
	"net/http"
	"reflect"
)

// Schemas holds the validation schema types declared for a route
type Schemas struct {
	Body     reflect.Type
	Query    reflect.Type
	Params   reflect.Type
	Headers  reflect.Type
	Response reflect.Type
}

// RouteSpec is the options form of a route declaration. Schema fields take a
// value of the DTO type, e.g. CreateUserDTO{}.
type RouteSpec struct {
	Path     string
	Body     any
	Params   any
	Query    any
	Headers  any
	Response any
}

// HeaderEntry is one static response header
type HeaderEntry struct {
	Name  string
	Value string
}

// RedirectSpec marks a route as answering with a redirect
type RedirectSpec struct {
	URL        string
	StatusCode int
}

// RouteDescriptor is everything declared about one handler
type RouteDescriptor struct {
	Method       string
	Path         WynkPath
	HandlerName  string
	Handler      any
	Bindings     []ParamBinding
	Schemas      Schemas
	Guards       []Guard
	Pipes        []Pipe
	Interceptors []Interceptor
	Filters      []FilterRegistration
	Middleware   []MiddlewareFunc
	HTTPCode     int
	Headers      []HeaderEntry
	Redirect     *RedirectSpec
	Metadata     map[string]any

	nextArg int
}

// RouteOption configures a route declaration
type RouteOption func(*RouteDescriptor)

// HttpCode overrides the default success status
func HttpCode(code int) RouteOption {
	return func(r *RouteDescriptor) {
		r.HTTPCode = code
	}
}

// Header adds a static response header. Repeating a name replaces its value
// and keeps its original position.
func Header(name, value string) RouteOption {
	return func(r *RouteDescriptor) {
		canonical := http.CanonicalHeaderKey(name)
		for i := range r.Headers {
			if r.Headers[i].Name == canonical {
				r.Headers[i].Value = value
				return
			}
		}
		r.Headers = append(r.Headers, HeaderEntry{Name: canonical, Value: value})
	}
}

// Redirect answers the route with a redirect to url. The status defaults to 302.
func Redirect(url string, statusCode ...int) RouteOption {
	code := http.StatusFound
	if len(statusCode) > 0 && statusCode[0] != 0 {
		code = statusCode[0]
	}
	return func(r *RouteDescriptor) {
		r.Redirect = &RedirectSpec{URL: url, StatusCode: code}
	}
}

// Use attaches engine middleware to the route
func Use(middleware ...MiddlewareFunc) RouteOption {
	return func(r *RouteDescriptor) {
		r.Middleware = append(r.Middleware, middleware...)
	}
}

// UseGuards attaches guards to the route
func UseGuards(guards ...Guard) RouteOption {
	return func(r *RouteDescriptor) {
		r.Guards = append(r.Guards, guards...)
	}
}

// UsePipes attaches pipes to the route
func UsePipes(pipes ...Pipe) RouteOption {
	return func(r *RouteDescriptor) {
		r.Pipes = append(r.Pipes, pipes...)
	}
}

// UseInterceptors attaches interceptors to the route
func UseInterceptors(interceptors ...Interceptor) RouteOption {
	return func(r *RouteDescriptor) {
		r.Interceptors = append(r.Interceptors, interceptors...)
	}
}

// UseFilters attaches exception filters to the route
func UseFilters(filters ...FilterRegistration) RouteOption {
	return func(r *RouteDescriptor) {
		r.Filters = append(r.Filters, filters...)
	}
}

// SetMetadata records a metadata entry for the handler
func SetMetadata(key string, value any) RouteOption {
	return func(r *RouteDescriptor) {
		if r.Metadata == nil {
			r.Metadata = make(map[string]any)
		}
		r.Metadata[key] = value
	}
}

// HandlerName overrides the handler name derived from the function
func HandlerName(name string) RouteOption {
	return func(r *RouteDescriptor) {
		r.HandlerName = name
	}
}

// WithBody declares the body schema
func WithBody(schema any) RouteOption {
	return func(r *RouteDescriptor) {
		r.Schemas.Body = schemaType(schema)
	}
}

// WithQuery declares the query schema
func WithQuery(schema any) RouteOption {
	return func(r *RouteDescriptor) {
		r.Schemas.Query = schemaType(schema)
	}
}

// WithParams declares the path parameter schema
func WithParams(schema any) RouteOption {
	return func(r *RouteDescriptor) {
		r.Schemas.Params = schemaType(schema)
	}
}

// WithHeaders declares the header schema
func WithHeaders(schema any) RouteOption {
	return func(r *RouteDescriptor) {
		r.Schemas.Headers = schemaType(schema)
	}
}

// WithResponse declares the response schema. It is documentation only.
func WithResponse(schema any) RouteOption {
	return func(r *RouteDescriptor) {
		r.Schemas.Response = schemaType(schema)
	}
}

// Args binds handler arguments in order, continuing after earlier Args calls
func Args(bindings ...ParamBinding) RouteOption {
	return func(r *RouteDescriptor) {
		for _, b := range bindings {
			b.Index = r.nextArg
			r.nextArg++
			r.Bindings = append(r.Bindings, b)
		}
	}
}

// ArgAt binds the handler argument at index
func ArgAt(index int, binding ParamBinding) RouteOption {
	return func(r *RouteDescriptor) {
		binding.Index = index
		r.Bindings = append(r.Bindings, binding)
		if index >= r.nextArg {
			r.nextArg = index + 1
		}
	}
}

func schemaType(schema any) reflect.Type {
	if schema == nil {
		return nil
	}
	if t, ok := schema.(reflect.Type); ok {
		return t
	}
	t := reflect.TypeOf(schema)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func (spec RouteSpec) options() []RouteOption {
	var opts []RouteOption
	if spec.Body != nil {
		opts = append(opts, WithBody(spec.Body))
	}
	if spec.Params != nil {
		opts = append(opts, WithParams(spec.Params))
	}
	if spec.Query != nil {
		opts = append(opts, WithQuery(spec.Query))
	}
	if spec.Headers != nil {
		opts = append(opts, WithHeaders(spec.Headers))
	}
	if spec.Response != nil {
		opts = append(opts, WithResponse(spec.Response))
	}
	return opts
}
