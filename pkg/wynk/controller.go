package wynk

import (
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"

	"github.com/wynkjs/wynk/pkg/inject"
)

// Controller is anything that yields a controller descriptor, normally a
// *ControllerBuilder.
type Controller interface {
	Descriptor() *ControllerDescriptor
}

// ControllerDescriptor is everything declared about one controller
type ControllerDescriptor struct {
	Name         string
	BasePath     string
	Routes       []*RouteDescriptor
	Guards       []Guard
	Pipes        []Pipe
	Interceptors []Interceptor
	Filters      []FilterRegistration
	Middleware   []MiddlewareFunc
	Metadata     map[string]any

	receiver reflect.Type
	resolve  func(r inject.Resolver) (any, error)
	frozen   bool
}

// ControllerBuilder declares the routes of a controller type T. Handlers are
// either method expressions on T, such as (*UsersController).FindOne, or
// plain functions.
//
//	users := wynk.NewController[*UsersController]("/users").
//	    Get("/:id", (*UsersController).FindOne, wynk.Args(wynk.Param("id"))).
//	    Post("/", (*UsersController).Create, wynk.WithBody(CreateUserDTO{}), wynk.Args(wynk.Body()))
type ControllerBuilder[T any] struct {
	desc *ControllerDescriptor
}

// NewController starts a controller declaration mounted at basePath.
// The controller instance is resolved from the injection container at build time.
func NewController[T any](basePath string) *ControllerBuilder[T] {
	receiver := reflect.TypeOf((*T)(nil)).Elem()
	return &ControllerBuilder[T]{
		desc: &ControllerDescriptor{
			Name:     typeName(receiver),
			BasePath: basePath,
			Metadata: make(map[string]any),
			receiver: receiver,
			resolve: func(r inject.Resolver) (any, error) {
				return inject.Resolve[T](r)
			},
		},
	}
}

// Descriptor implements Controller
func (b *ControllerBuilder[T]) Descriptor() *ControllerDescriptor {
	return b.desc
}

// WithFactory replaces container resolution with factory
func (b *ControllerBuilder[T]) WithFactory(factory func(r inject.Resolver) (T, error)) *ControllerBuilder[T] {
	b.mutate()
	b.desc.resolve = func(r inject.Resolver) (any, error) {
		return factory(r)
	}
	return b
}

// Named overrides the controller name used for metadata and diagnostics
func (b *ControllerBuilder[T]) Named(name string) *ControllerBuilder[T] {
	b.mutate()
	b.desc.Name = name
	return b
}

// Get declares a GET route
func (b *ControllerBuilder[T]) Get(path string, handler any, opts ...RouteOption) *ControllerBuilder[T] {
	return b.add(http.MethodGet, path, handler, opts)
}

// Post declares a POST route
func (b *ControllerBuilder[T]) Post(path string, handler any, opts ...RouteOption) *ControllerBuilder[T] {
	return b.add(http.MethodPost, path, handler, opts)
}

// Put declares a PUT route
func (b *ControllerBuilder[T]) Put(path string, handler any, opts ...RouteOption) *ControllerBuilder[T] {
	return b.add(http.MethodPut, path, handler, opts)
}

// Patch declares a PATCH route
func (b *ControllerBuilder[T]) Patch(path string, handler any, opts ...RouteOption) *ControllerBuilder[T] {
	return b.add(http.MethodPatch, path, handler, opts)
}

// Delete declares a DELETE route
func (b *ControllerBuilder[T]) Delete(path string, handler any, opts ...RouteOption) *ControllerBuilder[T] {
	return b.add(http.MethodDelete, path, handler, opts)
}

// Options declares an OPTIONS route
func (b *ControllerBuilder[T]) Options(path string, handler any, opts ...RouteOption) *ControllerBuilder[T] {
	return b.add(http.MethodOptions, path, handler, opts)
}

// Head declares a HEAD route
func (b *ControllerBuilder[T]) Head(path string, handler any, opts ...RouteOption) *ControllerBuilder[T] {
	return b.add(http.MethodHead, path, handler, opts)
}

// Route declares a route from its options form
func (b *ControllerBuilder[T]) Route(method string, spec RouteSpec, handler any, opts ...RouteOption) *ControllerBuilder[T] {
	return b.add(strings.ToUpper(method), spec.Path, handler, append(spec.options(), opts...))
}

// Use attaches engine middleware to every route of the controller
func (b *ControllerBuilder[T]) Use(middleware ...MiddlewareFunc) *ControllerBuilder[T] {
	b.mutate()
	b.desc.Middleware = append(b.desc.Middleware, middleware...)
	return b
}

// UseGuards attaches guards to every route of the controller
func (b *ControllerBuilder[T]) UseGuards(guards ...Guard) *ControllerBuilder[T] {
	b.mutate()
	b.desc.Guards = append(b.desc.Guards, guards...)
	return b
}

// UsePipes attaches pipes to every route of the controller
func (b *ControllerBuilder[T]) UsePipes(pipes ...Pipe) *ControllerBuilder[T] {
	b.mutate()
	b.desc.Pipes = append(b.desc.Pipes, pipes...)
	return b
}

// UseInterceptors attaches interceptors to every route of the controller
func (b *ControllerBuilder[T]) UseInterceptors(interceptors ...Interceptor) *ControllerBuilder[T] {
	b.mutate()
	b.desc.Interceptors = append(b.desc.Interceptors, interceptors...)
	return b
}

// UseFilters attaches exception filters to every route of the controller
func (b *ControllerBuilder[T]) UseFilters(filters ...FilterRegistration) *ControllerBuilder[T] {
	b.mutate()
	b.desc.Filters = append(b.desc.Filters, filters...)
	return b
}

// SetMetadata records a controller-level metadata entry
func (b *ControllerBuilder[T]) SetMetadata(key string, value any) *ControllerBuilder[T] {
	b.mutate()
	b.desc.Metadata[key] = value
	return b
}

func (b *ControllerBuilder[T]) add(method, path string, handler any, opts []RouteOption) *ControllerBuilder[T] {
	b.mutate()
	route := &RouteDescriptor{
		Method:      method,
		Path:        NewWynkPath(path),
		HandlerName: handlerName(handler),
		Handler:     handler,
	}
	for _, opt := range opts {
		opt(route)
	}
	b.desc.Routes = append(b.desc.Routes, route)
	return b
}

// mutate panics once the descriptor has been consumed by App.Build
func (b *ControllerBuilder[T]) mutate() {
	if b.desc.frozen {
		panic(fmt.Errorf("controller %s: %w", b.desc.Name, ErrFrozen))
	}
}

// takesReceiver reports whether handler is a method expression on the controller type
func (d *ControllerDescriptor) takesReceiver(handler reflect.Type) bool {
	return handler.NumIn() > 0 && handler.In(0) == d.receiver
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// handlerName derives "FindOne" from a method expression such as
// (*UsersController).FindOne, or the function name for plain functions.
// Closures keep their enclosing function, as in "List.func1", so two
// anonymous handlers never share a metadata key.
func handlerName(handler any) string {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		return fmt.Sprintf("%T", handler)
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return "handler"
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i != -1 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")

	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return name
	}
	parts = parts[1:]
	if !isClosureName(parts[len(parts)-1]) {
		return parts[len(parts)-1]
	}
	for len(parts) > 1 && strings.HasPrefix(parts[0], "(") {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

// isClosureName matches the compiler's names for function literals: func1,
// and the bare counters of nested literals.
func isClosureName(s string) bool {
	s = strings.TrimPrefix(s, "func")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
