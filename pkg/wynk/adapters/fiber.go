package adapters

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wynkjs/wynk/pkg/wynk"
)

// fiberWrittenKey marks a response as written in the fiber locals. Fiber
// responses carry a 200 status from the start, so the status cannot tell.
const fiberWrittenKey = "wynk.written"

// FiberAdapter wraps a Fiber app to implement wynk.WebServer
type FiberAdapter struct {
	app *fiber.App
}

// NewFiberAdapter creates a new Fiber adapter instance
func NewFiberAdapter() *FiberAdapter {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	return &FiberAdapter{app: app}
}

// NewDefaultFiberAdapter creates a new Fiber adapter with panic recovery
func NewDefaultFiberAdapter() *FiberAdapter {
	adapter := NewFiberAdapter()
	adapter.app.Use(recover.New())
	return adapter
}

// RegisterRoute registers a route with the Fiber app
func (fa *FiberAdapter) RegisterRoute(method string, path wynk.WynkPath, handler wynk.HandlerFunc, middlewares ...wynk.MiddlewareFunc) {
	var handlers []fiber.Handler
	for _, mw := range middlewares {
		handlers = append(handlers, convertMiddlewareToFiber(mw))
	}
	handlers = append(handlers, convertHandlerToFiber(handler))

	fa.app.Add(strings.ToUpper(method), path.Colon("*"), handlers...)
}

// Use adds middleware to the Fiber app
func (fa *FiberAdapter) Use(middleware wynk.MiddlewareFunc) {
	fa.app.Use(convertMiddlewareToFiber(middleware))
}

// Start starts the Fiber server
func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

// Stop stops the Fiber server
func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

// Name returns the adapter name
func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// GetApp returns the underlying Fiber app
func (fa *FiberAdapter) GetApp() *fiber.App {
	return fa.app
}

// convertHandlerToFiber converts a wynk handler to a Fiber handler
func convertHandlerToFiber(handler wynk.HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(&FiberRequestContext{ctx: c}); err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return nil
	}
}

// convertMiddlewareToFiber converts a wynk middleware to a Fiber middleware
func convertMiddlewareToFiber(middleware wynk.MiddlewareFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := middleware(func(ctx wynk.RequestContext) error {
			return c.Next()
		})(&FiberRequestContext{ctx: c})

		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return nil
	}
}

// FiberRequestContext wraps fiber.Ctx to implement wynk.RequestContext
type FiberRequestContext struct {
	ctx *fiber.Ctx
}

// Method returns the HTTP method
func (frc *FiberRequestContext) Method() string {
	return frc.ctx.Method()
}

// Path returns the request path
func (frc *FiberRequestContext) Path() string {
	return frc.ctx.Path()
}

// RealIP returns the client IP
func (frc *FiberRequestContext) RealIP() string {
	return frc.ctx.IP()
}

// Param returns a path parameter
func (frc *FiberRequestContext) Param(name string) string {
	return frc.ctx.Params(name)
}

// ParamNames returns the parameter names of the matched route
func (frc *FiberRequestContext) ParamNames() []string {
	route := frc.ctx.Route()
	names := make([]string, 0, len(route.Params))
	for _, name := range route.Params {
		if strings.HasPrefix(name, "*") {
			name = "*"
		}
		names = append(names, name)
	}
	return names
}

// ParamValues returns the parameter values in name order
func (frc *FiberRequestContext) ParamValues() []string {
	route := frc.ctx.Route()
	values := make([]string, 0, len(route.Params))
	for _, name := range route.Params {
		values = append(values, frc.ctx.Params(name))
	}
	return values
}

// QueryParam returns a query parameter
func (frc *FiberRequestContext) QueryParam(key string) string {
	return frc.ctx.Query(key)
}

// QueryParams returns all query parameters
func (frc *FiberRequestContext) QueryParams() map[string][]string {
	result := make(map[string][]string)
	frc.ctx.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		keyStr := string(key)
		result[keyStr] = append(result[keyStr], string(value))
	})
	return result
}

// Request returns the request interface
func (frc *FiberRequestContext) Request() wynk.RequestInterface {
	return &FiberRequest{ctx: frc.ctx}
}

// Response returns the response interface
func (frc *FiberRequestContext) Response() wynk.ResponseInterface {
	return &FiberResponse{ctx: frc.ctx}
}

// Get returns a value from the fiber locals
func (frc *FiberRequestContext) Get(key string) interface{} {
	return frc.ctx.Locals(key)
}

// Set stores a value in the fiber locals
func (frc *FiberRequestContext) Set(key string, val interface{}) {
	frc.ctx.Locals(key, val)
}

// Context returns the request's user context
func (frc *FiberRequestContext) Context() context.Context {
	return frc.ctx.UserContext()
}

// FiberRequest wraps fiber.Ctx to implement wynk.RequestInterface
type FiberRequest struct {
	ctx *fiber.Ctx
}

// Header returns a request header
func (fr *FiberRequest) Header(key string) string {
	return fr.ctx.Get(key)
}

// Headers returns all request headers
func (fr *FiberRequest) Headers() map[string][]string {
	return fr.ctx.GetReqHeaders()
}

// Body returns a copy of the request body; fasthttp reuses its buffer
func (fr *FiberRequest) Body() ([]byte, error) {
	return append([]byte(nil), fr.ctx.Body()...), nil
}

// ContentType returns the content type
func (fr *FiberRequest) ContentType() string {
	return fr.ctx.Get(fiber.HeaderContentType)
}

// Cookie returns a request cookie
func (fr *FiberRequest) Cookie(name string) (*http.Cookie, error) {
	value := fr.ctx.Cookies(name)
	if value == "" {
		return nil, http.ErrNoCookie
	}
	return &http.Cookie{Name: name, Value: value}, nil
}

// FiberResponse wraps fiber.Ctx to implement wynk.ResponseInterface
type FiberResponse struct {
	ctx *fiber.Ctx
}

// Status returns the response status code
func (fr *FiberResponse) Status() int {
	return fr.ctx.Response().StatusCode()
}

// Header returns a response header
func (fr *FiberResponse) Header(key string) string {
	return string(fr.ctx.Response().Header.Peek(key))
}

// SetHeader sets a response header
func (fr *FiberResponse) SetHeader(name, value string) {
	fr.ctx.Set(name, value)
}

// AddHeader appends a response header value
func (fr *FiberResponse) AddHeader(name, value string) {
	fr.ctx.Response().Header.Add(name, value)
}

// DelHeader removes a response header
func (fr *FiberResponse) DelHeader(name string) {
	fr.ctx.Response().Header.Del(name)
}

// Blob writes a blob response
func (fr *FiberResponse) Blob(code int, contentType string, data []byte) error {
	fr.markWritten()
	fr.ctx.Set(fiber.HeaderContentType, contentType)
	return fr.ctx.Status(code).Send(data)
}

// NoContent writes a status without a body
func (fr *FiberResponse) NoContent(code int) error {
	fr.markWritten()
	fr.ctx.Status(code)
	return nil
}

// Redirect writes a redirect response
func (fr *FiberResponse) Redirect(code int, url string) error {
	fr.markWritten()
	return fr.ctx.Redirect(url, code)
}

// SetCookie sets a response cookie
func (fr *FiberResponse) SetCookie(cookie *http.Cookie) {
	fiberCookie := &fiber.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Domain:   cookie.Domain,
		Expires:  cookie.Expires,
		MaxAge:   cookie.MaxAge,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HttpOnly,
	}

	switch cookie.SameSite {
	case http.SameSiteStrictMode:
		fiberCookie.SameSite = fiber.CookieSameSiteStrictMode
	case http.SameSiteNoneMode:
		fiberCookie.SameSite = fiber.CookieSameSiteNoneMode
	default:
		fiberCookie.SameSite = fiber.CookieSameSiteLaxMode
	}

	fr.ctx.Cookie(fiberCookie)
}

// Written returns whether a response has been written through this adapter
func (fr *FiberResponse) Written() bool {
	written, _ := fr.ctx.Locals(fiberWrittenKey).(bool)
	return written
}

func (fr *FiberResponse) markWritten() {
	fr.ctx.Locals(fiberWrittenKey, true)
}
