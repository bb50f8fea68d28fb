// Package middleware provides engine-level middleware for wynk applications.
package middleware

import (
	"github.com/google/uuid"

	"github.com/wynkjs/wynk/pkg/wynk"
)

const (
	// RequestIDHeader is read from the request and echoed on the response
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the context key holding the request id
	RequestIDKey = "wynk.requestID"
)

// RequestID assigns every request an id, reusing the client's X-Request-ID
// when present.
func RequestID() wynk.MiddlewareFunc {
	return func(next wynk.HandlerFunc) wynk.HandlerFunc {
		return func(c wynk.RequestContext) error {
			id := c.Request().Header(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			c.Set(RequestIDKey, id)
			c.Response().SetHeader(RequestIDHeader, id)
			return next(c)
		}
	}
}

// GetRequestID returns the id assigned by RequestID, or ""
func GetRequestID(c wynk.RequestContext) string {
	id, _ := c.Get(RequestIDKey).(string)
	return id
}
