package wynk

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wynkjs/wynk/pkg/inject"
)

// Context is the per-request view handed to guards, pipes, interceptors,
// filters and custom bindings. It embeds the engine's RequestContext and adds
// the route being served, its metadata and a request-scoped resolver.
type Context struct {
	RequestContext

	route     *RouteInfo
	reflector Reflector
	logger    *zap.Logger
	scope     *inject.Scope

	bodyOnce sync.Once
	body     []byte
	bodyErr  error

	validated map[Source]reflect.Value
	args      []reflect.Value
}

func newContext(rc RequestContext, route *RouteInfo, reflector Reflector, logger *zap.Logger, container *inject.Container) *Context {
	c := &Context{
		RequestContext: rc,
		route:          route,
		reflector:      reflector,
		logger:         logger,
		validated:      make(map[Source]reflect.Value),
	}
	if container == nil {
		container = inject.New()
	}
	c.scope = container.NewScope()
	return c
}

// Body returns the raw request body. The body is read from the engine once and
// cached, so every caller sees the same bytes.
func (c *Context) Body() ([]byte, error) {
	c.bodyOnce.Do(func() {
		c.body, c.bodyErr = c.Request().Body()
	})
	return c.body, c.bodyErr
}

// Route returns the route being served
func (c *Context) Route() *RouteInfo {
	return c.route
}

// Reflector returns the metadata reader for the current handler
func (c *Context) Reflector() Reflector {
	return c.reflector
}

// Logger returns the application logger annotated with the route
func (c *Context) Logger() *zap.Logger {
	return c.logger
}

// Resolver returns the request-scoped dependency resolver
func (c *Context) Resolver() inject.Resolver {
	return c.scope
}

// Validated returns the value produced by schema validation for source, if any
func (c *Context) Validated(source Source) (any, bool) {
	v, ok := c.validated[source]
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

func (c *Context) setValidated(source Source, v reflect.Value) {
	c.validated[source] = v
}

func (c *Context) validatedValue(source Source, t reflect.Type) (reflect.Value, bool) {
	v, ok := c.validated[source]
	if !ok {
		return reflect.Value{}, false
	}
	switch {
	case v.Type() == t:
		return v, true
	case v.Kind() == reflect.Pointer && v.Elem().Type() == t:
		return v.Elem(), true
	case t.Kind() == reflect.Pointer && t.Elem() == v.Type():
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		return p, true
	}
	return reflect.Value{}, false
}

// FromContext resolves a request-scoped dependency of type T
func FromContext[T any](c *Context) (T, error) {
	return inject.Resolve[T](c.Resolver())
}
