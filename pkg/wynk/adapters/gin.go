package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/wynkjs/wynk/pkg/wynk"
)

// ginWildcard is the catch-all parameter name used for wildcard routes. Gin
// keeps the leading slash in its value; the adapter strips it.
const ginWildcard = "wildcard"

// GinAdapter implements wynk.WebServer for Gin framework
type GinAdapter struct {
	engine *gin.Engine

	mu     sync.Mutex
	server *http.Server
}

// NewGinAdapter creates a new Gin adapter
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: g}
}

// NewDefaultGinAdapter creates a new Gin adapter with a recovering Gin engine
func NewDefaultGinAdapter() *GinAdapter {
	g := gin.New()
	g.Use(gin.Recovery())
	return &GinAdapter{engine: g}
}

// RegisterRoute registers a route with the Gin server
func (ga *GinAdapter) RegisterRoute(method string, path wynk.WynkPath, handler wynk.HandlerFunc, middlewares ...wynk.MiddlewareFunc) {
	var handlers []gin.HandlerFunc
	for _, middleware := range middlewares {
		handlers = append(handlers, ga.convertMiddleware(middleware))
	}
	handlers = append(handlers, ga.convertHandler(handler))

	ga.engine.Handle(method, path.Colon("*"+ginWildcard), handlers...)
}

// Use registers a global middleware with the Gin server
func (ga *GinAdapter) Use(middleware wynk.MiddlewareFunc) {
	ga.engine.Use(ga.convertMiddleware(middleware))
}

// Start starts the Gin server behind an http.Server so it can be shut down
func (ga *GinAdapter) Start(addr string) error {
	ga.mu.Lock()
	ga.server = &http.Server{Addr: addr, Handler: ga.engine}
	server := ga.server
	ga.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the Gin server
func (ga *GinAdapter) Stop(ctx context.Context) error {
	ga.mu.Lock()
	server := ga.server
	ga.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Name returns the adapter name
func (ga *GinAdapter) Name() string {
	return "Gin"
}

// GetEngine returns the underlying Gin engine
func (ga *GinAdapter) GetEngine() *gin.Engine {
	return ga.engine
}

// convertHandler converts wynk.HandlerFunc to gin.HandlerFunc
func (ga *GinAdapter) convertHandler(handler wynk.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler(&GinRequestContext{ctx: c}); err != nil {
			_ = c.Error(err)
			if !c.Writer.Written() {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
		}
	}
}

// convertMiddleware converts wynk.MiddlewareFunc to gin.HandlerFunc. A
// middleware that does not call next stops the chain.
func (ga *GinAdapter) convertMiddleware(middleware wynk.MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := func(rc wynk.RequestContext) error {
			called = true
			c.Next()
			return nil
		}

		err := middleware(next)(&GinRequestContext{ctx: c})
		if !called {
			c.Abort()
		}
		if err != nil {
			_ = c.Error(err)
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
		}
	}
}

// GinRequestContext implements wynk.RequestContext for Gin
type GinRequestContext struct {
	ctx *gin.Context
}

// Method returns the HTTP method
func (grc *GinRequestContext) Method() string {
	return grc.ctx.Request.Method
}

// Path returns the request path
func (grc *GinRequestContext) Path() string {
	return grc.ctx.Request.URL.Path
}

// Param returns a path parameter
func (grc *GinRequestContext) Param(name string) string {
	if name == "*" {
		return strings.TrimPrefix(grc.ctx.Param(ginWildcard), "/")
	}
	return grc.ctx.Param(name)
}

// QueryParam returns a query parameter
func (grc *GinRequestContext) QueryParam(name string) string {
	return grc.ctx.Query(name)
}

// QueryParams returns all query parameters
func (grc *GinRequestContext) QueryParams() map[string][]string {
	return grc.ctx.Request.URL.Query()
}

// RealIP returns the real IP address
func (grc *GinRequestContext) RealIP() string {
	return grc.ctx.ClientIP()
}

// ParamNames returns parameter names
func (grc *GinRequestContext) ParamNames() []string {
	var names []string
	for _, param := range grc.ctx.Params {
		if param.Key == ginWildcard {
			names = append(names, "*")
			continue
		}
		names = append(names, param.Key)
	}
	return names
}

// ParamValues returns parameter values
func (grc *GinRequestContext) ParamValues() []string {
	var values []string
	for _, param := range grc.ctx.Params {
		if param.Key == ginWildcard {
			values = append(values, strings.TrimPrefix(param.Value, "/"))
			continue
		}
		values = append(values, param.Value)
	}
	return values
}

// Request returns the request interface
func (grc *GinRequestContext) Request() wynk.RequestInterface {
	return &GinRequestInterface{ctx: grc.ctx}
}

// Response returns the response interface
func (grc *GinRequestContext) Response() wynk.ResponseInterface {
	return &GinResponseInterface{ctx: grc.ctx}
}

// Get returns a value from context
func (grc *GinRequestContext) Get(key string) interface{} {
	value, _ := grc.ctx.Get(key)
	return value
}

// Set sets a value in context
func (grc *GinRequestContext) Set(key string, val interface{}) {
	grc.ctx.Set(key, val)
}

// Context returns the request's cancellation context
func (grc *GinRequestContext) Context() context.Context {
	return grc.ctx.Request.Context()
}

// GinRequestInterface implements wynk.RequestInterface for Gin
type GinRequestInterface struct {
	ctx *gin.Context
}

// Header returns a request header
func (gri *GinRequestInterface) Header(key string) string {
	return gri.ctx.GetHeader(key)
}

// Headers returns all request headers
func (gri *GinRequestInterface) Headers() map[string][]string {
	return gri.ctx.Request.Header
}

// Body returns the request body
func (gri *GinRequestInterface) Body() ([]byte, error) {
	if gri.ctx.Request.Body == nil {
		return nil, nil
	}
	return io.ReadAll(gri.ctx.Request.Body)
}

// ContentType returns the content type
func (gri *GinRequestInterface) ContentType() string {
	return gri.ctx.ContentType()
}

// Cookie returns a specific cookie
func (gri *GinRequestInterface) Cookie(name string) (*http.Cookie, error) {
	return gri.ctx.Request.Cookie(name)
}

// GinResponseInterface implements wynk.ResponseInterface for Gin
type GinResponseInterface struct {
	ctx *gin.Context
}

// Status returns the response status code
func (gri *GinResponseInterface) Status() int {
	return gri.ctx.Writer.Status()
}

// Header returns a response header
func (gri *GinResponseInterface) Header(key string) string {
	return gri.ctx.Writer.Header().Get(key)
}

// SetHeader sets a response header
func (gri *GinResponseInterface) SetHeader(key, value string) {
	gri.ctx.Writer.Header().Set(key, value)
}

// AddHeader appends a response header value
func (gri *GinResponseInterface) AddHeader(key, value string) {
	gri.ctx.Writer.Header().Add(key, value)
}

// DelHeader removes a response header
func (gri *GinResponseInterface) DelHeader(key string) {
	gri.ctx.Writer.Header().Del(key)
}

// Blob writes a blob response
func (gri *GinResponseInterface) Blob(code int, contentType string, b []byte) error {
	gri.ctx.Data(code, contentType, b)
	return nil
}

// NoContent writes a status without a body
func (gri *GinResponseInterface) NoContent(code int) error {
	gri.ctx.Status(code)
	gri.ctx.Writer.WriteHeaderNow()
	return nil
}

// Redirect writes a redirect response
func (gri *GinResponseInterface) Redirect(code int, url string) error {
	if code < http.StatusMultipleChoices || code > http.StatusPermanentRedirect {
		return fmt.Errorf("invalid redirect status code %d", code)
	}
	gri.ctx.Redirect(code, url)
	return nil
}

// SetCookie sets a response cookie
func (gri *GinResponseInterface) SetCookie(cookie *http.Cookie) {
	http.SetCookie(gri.ctx.Writer, cookie)
}

// Written returns whether the response has been written
func (gri *GinResponseInterface) Written() bool {
	return gri.ctx.Writer.Written()
}
