package wynk

import (
	"context"
	"net/http"
)

// WebServer defines the contract an HTTP engine adapter fulfils
type WebServer interface {
	// Route registration
	RegisterRoute(method string, path WynkPath, handler HandlerFunc, middlewares ...MiddlewareFunc)

	// Global middleware
	Use(middleware MiddlewareFunc)

	// Server lifecycle
	Start(addr string) error
	Stop(ctx context.Context) error

	// Server information
	Name() string
}

// RequestContext provides a framework-agnostic view of one HTTP exchange
type RequestContext interface {
	// Request data
	Method() string
	Path() string
	RealIP() string

	// Path parameters
	Param(key string) string
	ParamNames() []string
	ParamValues() []string

	// Query parameters
	QueryParam(key string) string
	QueryParams() map[string][]string

	Request() RequestInterface
	Response() ResponseInterface

	// Context data
	Get(key string) interface{}
	Set(key string, val interface{})

	// Context returns the request's cancellation context
	Context() context.Context
}

// RequestInterface provides access to the underlying request
type RequestInterface interface {
	Header(key string) string
	Headers() map[string][]string
	Body() ([]byte, error)
	ContentType() string
	Cookie(name string) (*http.Cookie, error)
}

// ResponseInterface provides response writing capabilities
type ResponseInterface interface {
	Status() int

	// Headers
	Header(key string) string
	SetHeader(key, value string)
	AddHeader(key, value string)
	DelHeader(key string)

	// Content
	Blob(code int, contentType string, b []byte) error
	NoContent(code int) error
	Redirect(code int, url string) error

	SetCookie(cookie *http.Cookie)

	// Written reports whether the status line has been sent
	Written() bool
}

// HandlerFunc defines the signature for engine-level handlers
type HandlerFunc func(RequestContext) error

// MiddlewareFunc defines the signature for engine-level middleware
type MiddlewareFunc func(HandlerFunc) HandlerFunc
