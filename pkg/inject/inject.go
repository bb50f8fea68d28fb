// Package inject provides an explicit, typed dependency registry.
//
// Providers are registered per type (optionally per name) and resolved on demand.
// Nothing is discovered through reflection on struct fields: every dependency is
// constructed by a factory function the application registers in its composition root.
//
//	c := inject.New()
//	inject.Provide(c, func(r inject.Resolver) (*UserService, error) {
//	    repo, err := inject.Resolve[*UserRepo](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewUserService(repo), nil
//	})
//	svc, err := inject.Resolve[*UserService](c)
package inject

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	wynkerrors "github.com/wynkjs/wynk/internal/errors"
)

// Lifetime controls how often a provider is invoked
type Lifetime int

const (
	// Singleton providers run once per container
	Singleton Lifetime = iota
	// Transient providers run on every resolution
	Transient
	// Request providers run once per request scope
	Request
)

// String returns the lifetime name
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Transient:
		return "Transient"
	case Request:
		return "Request"
	default:
		return "Unknown"
	}
}

var (
	// ErrNotProvided is returned when no provider is registered for a type
	ErrNotProvided = errors.New("inject: no provider registered")
	// ErrDuplicateProvider is returned when a type and name are registered twice
	ErrDuplicateProvider = errors.New("inject: provider already registered")
	// ErrCycle is returned when providers depend on each other
	ErrCycle = errors.New("inject: dependency cycle")
	// ErrNoScope is returned when a request-scoped provider is resolved outside a scope
	ErrNoScope = errors.New("inject: request-scoped provider resolved outside a request scope")
	// ErrProviderPanic is returned if a provider panics
	ErrProviderPanic = errors.New("inject: panic during provide")
)

// Resolver resolves dependencies by type and name
type Resolver interface {
	Get(t reflect.Type, name string) (any, error)
}

type key struct {
	t    reflect.Type
	name string
}

func (k key) String() string {
	if k.name == "" {
		return k.t.String()
	}
	return fmt.Sprintf("%s(%s)", k.t.String(), k.name)
}

type provider struct {
	key      key
	lifetime Lifetime
	factory  func(Resolver) (any, error)

	mu    sync.Mutex
	built bool
	value any
}

// Container holds providers and singleton instances
type Container struct {
	mu        sync.RWMutex
	providers map[key]*provider
	order     []key
}

// New creates an empty container
func New() *Container {
	return &Container{
		providers: make(map[key]*provider),
	}
}

// Option configures a provider registration
type Option func(*provider)

// WithName registers the provider under a name, allowing several providers per type
func WithName(name string) Option {
	return func(p *provider) {
		p.key.name = name
	}
}

// WithLifetime sets the provider lifetime
func WithLifetime(l Lifetime) Option {
	return func(p *provider) {
		p.lifetime = l
	}
}

// AsTransient is shorthand for WithLifetime(Transient)
func AsTransient() Option {
	return WithLifetime(Transient)
}

// AsRequestScoped is shorthand for WithLifetime(Request)
func AsRequestScoped() Option {
	return WithLifetime(Request)
}

// Provide registers a factory for T
func Provide[T any](c *Container, factory func(r Resolver) (T, error), opts ...Option) error {
	p := &provider{
		key: key{t: typeOf[T]()},
		factory: func(r Resolver) (any, error) {
			return factory(r)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return c.register(p)
}

// ProvideValue registers an existing value for T
func ProvideValue[T any](c *Container, value T, opts ...Option) error {
	p := &provider{
		key:   key{t: typeOf[T]()},
		built: true,
		value: value,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lifetime = Singleton
	return c.register(p)
}

// MustProvide is Provide that panics on registration errors
func MustProvide[T any](c *Container, factory func(r Resolver) (T, error), opts ...Option) {
	if err := Provide(c, factory, opts...); err != nil {
		panic(err)
	}
}

// Resolve returns the instance registered for T
func Resolve[T any](r Resolver) (T, error) {
	return ResolveNamed[T](r, "")
}

// ResolveNamed returns the instance registered for T under name
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	var zero T
	v, err := r.Get(typeOf[T](), name)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("inject: provider for %s returned %T", typeOf[T](), v)
	}
	return out, nil
}

// MustResolve is Resolve that panics when resolution fails
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

// Has reports whether a provider exists for t and name
func (c *Container) Has(t reflect.Type, name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.providers[key{t: t, name: name}]
	return ok
}

// Providers lists registered types in registration order
func (c *Container) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, fmt.Sprintf("%s [%s]", k.String(), c.providers[k].lifetime))
	}
	return out
}

// Get implements Resolver
func (c *Container) Get(t reflect.Type, name string) (any, error) {
	return (&resolution{container: c}).Get(t, name)
}

func (c *Container) register(p *provider) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.providers[p.key]; exists {
		return wynkerrors.WrapDependencyError(p.key.t.String(), p.key.name, ErrDuplicateProvider)
	}
	c.providers[p.key] = p
	c.order = append(c.order, p.key)
	return nil
}

func (c *Container) lookup(k key) (*provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[k]
	return p, ok
}

// resolution tracks the chain of types being built so cycles surface as errors
type resolution struct {
	container *Container
	scope     *Scope
	path      []key
}

func (r *resolution) Get(t reflect.Type, name string) (any, error) {
	k := key{t: t, name: name}
	for _, seen := range r.path {
		if seen == k {
			chain := make([]string, 0, len(r.path)+1)
			for _, p := range r.path {
				chain = append(chain, p.String())
			}
			chain = append(chain, k.String())
			return nil, wynkerrors.WrapDependencyError(t.String(), name,
				fmt.Errorf("%w: %s", ErrCycle, strings.Join(chain, " -> ")))
		}
	}

	p, ok := r.container.lookup(k)
	if !ok {
		return nil, wynkerrors.WrapDependencyError(t.String(), name, ErrNotProvided).
			WithSuggestion(fmt.Sprintf("Register a provider with inject.Provide[%s]", t.String()))
	}

	next := &resolution{
		container: r.container,
		scope:     r.scope,
		path:      append(append([]key(nil), r.path...), k),
	}

	switch p.lifetime {
	case Transient:
		return next.build(p)
	case Request:
		if r.scope == nil {
			return nil, wynkerrors.WrapDependencyError(t.String(), name, ErrNoScope).
				WithSuggestion("Resolve it from a request scope; singletons cannot depend on request-scoped providers")
		}
		return r.scope.get(p, next)
	default:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.built {
			return p.value, nil
		}
		// a singleton outlives every request, so nothing it builds may see the scope
		next.scope = nil
		v, err := next.build(p)
		if err != nil {
			return nil, err
		}
		p.value = v
		p.built = true
		return v, nil
	}
}

func (r *resolution) build(p *provider) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = nil
			err = wynkerrors.WrapDependencyError(p.key.t.String(), p.key.name,
				fmt.Errorf("%w: %v", ErrProviderPanic, rec))
		}
	}()
	return p.factory(r)
}

// Scope caches request-lifetime instances for the duration of one request
type Scope struct {
	container *Container
	mu        sync.Mutex
	values    map[key]any
}

// NewScope creates a request scope backed by c
func (c *Container) NewScope() *Scope {
	return &Scope{
		container: c,
		values:    make(map[key]any),
	}
}

// Get implements Resolver
func (s *Scope) Get(t reflect.Type, name string) (any, error) {
	return (&resolution{container: s.container, scope: s}).Get(t, name)
}

func (s *Scope) get(p *provider, r *resolution) (any, error) {
	s.mu.Lock()
	if v, ok := s.values[p.key]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, err := r.build(p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.values[p.key]; ok {
		return existing, nil
	}
	s.values[p.key] = v
	return v, nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
