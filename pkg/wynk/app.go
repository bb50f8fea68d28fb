package wynk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"

	wynkerrors "github.com/wynkjs/wynk/internal/errors"
	"github.com/wynkjs/wynk/pkg/inject"
)

var (
	// ErrConfiguration wraps every startup problem reported by Build
	ErrConfiguration = errors.New("wynk: invalid application configuration")
	// ErrNotBuilt is returned when shutting down an application that never built
	ErrNotBuilt = errors.New("wynk: application not built")
)

// App assembles registered controllers into engine routes
type App struct {
	engine    WebServer
	config    *Config
	logger    *zap.Logger
	container *inject.Container
	store     *Store
	schemas   *SchemaRegistry
	validator *Validator
	formatter ValidationFormatter

	compression   *CompressionConfig
	compressor    *Compressor
	defaultFilter *DefaultExceptionFilter

	guards       []Guard
	pipes        []Pipe
	interceptors []Interceptor
	filters      []FilterRegistration
	middleware   []MiddlewareFunc
	prefix       string

	mu          sync.Mutex
	controllers []*ControllerDescriptor
	routes      *InMemoryRouteRegistry
	built       bool
	buildErr    error
}

// Option configures an App
type Option func(*App)

// WithConfig sets the application configuration
func WithConfig(cfg *Config) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithLogger sets the application logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithContainer sets the injection container controllers are resolved from
func WithContainer(c *inject.Container) Option {
	return func(a *App) {
		a.container = c
	}
}

// WithFormatter selects the validation error formatter
func WithFormatter(f ValidationFormatter) Option {
	return func(a *App) {
		a.formatter = f
	}
}

// WithSchemaRegistry sets the registry of custom validation messages
func WithSchemaRegistry(r *SchemaRegistry) Option {
	return func(a *App) {
		a.schemas = r
	}
}

// WithCompression overrides the compression settings of the configuration
func WithCompression(cfg CompressionConfig) Option {
	return func(a *App) {
		a.compression = &cfg
	}
}

// WithGlobalGuards adds guards that run before every route
func WithGlobalGuards(guards ...Guard) Option {
	return func(a *App) {
		a.guards = append(a.guards, guards...)
	}
}

// WithGlobalPipes adds pipes applied to every handler argument
func WithGlobalPipes(pipes ...Pipe) Option {
	return func(a *App) {
		a.pipes = append(a.pipes, pipes...)
	}
}

// WithGlobalInterceptors adds interceptors wrapping every handler
func WithGlobalInterceptors(interceptors ...Interceptor) Option {
	return func(a *App) {
		a.interceptors = append(a.interceptors, interceptors...)
	}
}

// WithGlobalFilters adds exception filters consulted after route and controller filters
func WithGlobalFilters(filters ...FilterRegistration) Option {
	return func(a *App) {
		a.filters = append(a.filters, filters...)
	}
}

// WithGlobalPrefix mounts every controller below prefix
func WithGlobalPrefix(prefix string) Option {
	return func(a *App) {
		a.prefix = prefix
	}
}

// New creates an application on top of engine
func New(engine WebServer, opts ...Option) *App {
	a := &App{
		engine: engine,
		store:  NewStore(),
		routes: NewInMemoryRouteRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.config == nil {
		a.config = DefaultConfig()
	}
	if a.logger == nil {
		a.logger = newLogger(a.config.IsProduction())
	}
	if a.container == nil {
		a.container = inject.New()
	}
	if a.schemas == nil {
		a.schemas = NewSchemaRegistry()
	}
	if a.formatter == nil {
		f, err := FormatterByName(a.config.Validation.Formatter)
		if err != nil {
			a.logger.Warn("unknown validation formatter, using default", zap.Error(err))
			f = DefaultFormatter{}
		}
		a.formatter = f
	}
	if a.prefix == "" {
		a.prefix = a.config.Server.GlobalPrefix
	}

	compression := a.config.Compression
	if a.compression != nil {
		compression = *a.compression
	}
	if compression.Enabled {
		a.compressor = NewCompressor(compression, a.logger)
	}

	a.validator = NewValidator(a.schemas)
	a.defaultFilter = &DefaultExceptionFilter{
		Production: a.config.IsProduction(),
		Formatter:  a.formatter,
		Logger:     a.logger,
	}
	return a
}

func newLogger(production bool) *zap.Logger {
	build := zap.NewDevelopment
	if production {
		build = zap.NewProduction
	}
	logger, err := build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Use adds engine-level middleware, installed ahead of every route at Build
func (a *App) Use(middleware ...MiddlewareFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return ErrFrozen
	}
	a.middleware = append(a.middleware, middleware...)
	return nil
}

// Register adds controllers to the application
func (a *App) Register(controllers ...Controller) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return ErrFrozen
	}
	for _, c := range controllers {
		a.controllers = append(a.controllers, c.Descriptor())
	}
	return nil
}

// Build resolves controllers, checks every route and registers them on the
// engine. Nothing is registered unless the whole application is valid. Build
// runs once; later calls return the first result.
func (a *App) Build() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return a.buildErr
	}
	a.built = true

	var errs *wynkerrors.MultipleErrors
	var compiled []*compiledRoute

	for _, ctrl := range a.controllers {
		ctrl.frozen = true
		for key, value := range ctrl.Metadata {
			_ = a.store.Define(key, value, ctrl.Name)
		}

		instance, err := a.resolveController(ctrl)
		if err != nil {
			wynkerrors.AddToMultiple(&errs, err)
		}

		for _, route := range ctrl.Routes {
			cr, err := a.buildRoute(ctrl, route, instance)
			if err != nil {
				wynkerrors.AddToMultiple(&errs, err)
				continue
			}
			compiled = append(compiled, cr)
		}
	}

	if err := errs.ErrOrNil(); err != nil {
		a.routes = NewInMemoryRouteRegistry()
		a.buildErr = fmt.Errorf("%w: %w", ErrConfiguration, err)
		return a.buildErr
	}

	a.store.Freeze()
	for _, mw := range a.middleware {
		a.engine.Use(mw)
	}
	for _, cr := range compiled {
		middleware := concat(cr.ctrl.Middleware, cr.desc.Middleware)
		a.engine.RegisterRoute(cr.info.Method, cr.info.Path, cr.serve, middleware...)
		a.logger.Info("route mapped",
			zap.String("method", cr.info.Method),
			zap.String("path", string(cr.info.Path)),
			zap.String("controller", cr.info.ControllerName),
			zap.String("handler", cr.info.HandlerName),
		)
	}
	a.logger.Info("application built",
		zap.String("engine", a.engine.Name()),
		zap.Int("controllers", len(a.controllers)),
		zap.Int("routes", len(compiled)),
	)
	return nil
}

// resolveController returns the controller instance, or an invalid value
// when no handler takes the controller as receiver.
func (a *App) resolveController(ctrl *ControllerDescriptor) (reflect.Value, wynkerrors.WynkError) {
	needed := false
	for _, route := range ctrl.Routes {
		if t := reflect.TypeOf(route.Handler); t != nil && t.Kind() == reflect.Func && ctrl.takesReceiver(t) {
			needed = true
			break
		}
	}
	if !needed {
		return reflect.Value{}, nil
	}

	v, err := ctrl.resolve(a.container)
	if err != nil {
		origin := wynkerrors.Origin{Controller: ctrl.Name}
		return reflect.Value{}, wynkerrors.Wrap(wynkerrors.DependencyErrorCode, "cannot resolve controller "+ctrl.Name, err).
			WithOrigin(origin).
			WithSuggestion("Register the controller with inject.Provide before building the app")
	}
	return reflect.ValueOf(v), nil
}

func (a *App) buildRoute(ctrl *ControllerDescriptor, route *RouteDescriptor, instance reflect.Value) (*compiledRoute, wynkerrors.WynkError) {
	method := strings.ToUpper(route.Method)
	full := JoinPaths(a.prefix, ctrl.BasePath, string(route.Path))
	origin := wynkerrors.Origin{
		Controller: ctrl.Name,
		Handler:    route.HandlerName,
		Method:     method,
		Path:       string(full),
	}

	if err := ValidatePath(full); err != nil {
		return nil, wynkerrors.ConfigurationError(origin, err.Error())
	}
	if existing, ok := a.routes.Lookup(method, full); ok {
		return nil, wynkerrors.DuplicateRouteError(origin, wynkerrors.Origin{
			Controller: existing.ControllerName,
			Handler:    existing.HandlerName,
			Method:     existing.Method,
			Path:       string(existing.Path),
		})
	}

	info := &RouteInfo{
		Method:         method,
		Path:           full,
		HandlerName:    route.HandlerName,
		ControllerName: ctrl.Name,
		StatusCode:     defaultStatus(method, route),
		ParameterTypes: full.ParamTypes(),
		Redirect:       route.Redirect,
	}
	for key, value := range route.Metadata {
		_ = a.store.Define(key, value, ctrl.Name, route.HandlerName)
	}

	route.Method = method
	cr, err := compile(a, ctrl, route, info, instance)
	a.routes.RegisterRoute(*info)
	if err != nil {
		return nil, err
	}
	return cr, nil
}

func defaultStatus(method string, route *RouteDescriptor) int {
	switch {
	case route.Redirect != nil:
		return route.Redirect.StatusCode
	case route.HTTPCode != 0:
		return route.HTTPCode
	case method == http.MethodPost:
		return http.StatusCreated
	}
	return http.StatusOK
}

// Listen builds the application if needed and starts the engine
func (a *App) Listen(addr string) error {
	if err := a.Build(); err != nil {
		return err
	}
	a.logger.Info("listening", zap.String("addr", addr), zap.String("engine", a.engine.Name()))
	return a.engine.Start(addr)
}

// Shutdown stops the engine gracefully
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	built := a.built
	a.mu.Unlock()
	if !built {
		return ErrNotBuilt
	}
	defer func() { _ = a.logger.Sync() }()
	return a.engine.Stop(ctx)
}

// Routes returns the route table. It is empty until Build succeeds.
func (a *App) Routes() []RouteInfo {
	return a.routes.GetAllRoutes()
}

// RouteRegistry returns the route table for filtering
func (a *App) RouteRegistry() RouteRegistry {
	return a.routes
}

// Engine returns the underlying web server
func (a *App) Engine() WebServer {
	return a.engine
}

// Container returns the injection container
func (a *App) Container() *inject.Container {
	return a.container
}

// Logger returns the application logger
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the application configuration
func (a *App) Config() *Config {
	return a.config
}

// Metadata returns the application metadata store
func (a *App) Metadata() *Store {
	return a.store
}

// Validator returns the request validator
func (a *App) Validator() *Validator {
	return a.validator
}

// SchemaRegistry returns the registry of custom validation messages
func (a *App) SchemaRegistry() *SchemaRegistry {
	return a.schemas
}
