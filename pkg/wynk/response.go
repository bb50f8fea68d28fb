package wynk

import (
	"net/http"
)

// Response represents an HTTP response with custom status code, headers and body.
// Handlers return it when they need full control over what is sent.
//
// Example usage:
//
//	func (c *UserController) Create(dto CreateUserDTO) (*wynk.Response, error) {
//	    user, err := c.users.Create(dto)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return wynk.Created(user).WithHeader("Location", "/users/"+user.ID), nil
//	}
type Response struct {
	// StatusCode is the HTTP status code to return (e.g., 200, 201, 404, 500)
	StatusCode int `json:"-"`

	// Headers are set on the response before the body is written
	Headers http.Header `json:"-"`

	// Cookies are added to the response
	Cookies []*http.Cookie `json:"-"`

	// Body is serialized to the client: []byte and string are sent verbatim,
	// anything else is JSON-encoded
	Body interface{} `json:"body,omitempty"`
}

// NewResponse creates a new Response with the specified status code and body
func NewResponse(statusCode int, body interface{}) *Response {
	return &Response{
		StatusCode: statusCode,
		Body:       body,
	}
}

// WithHeader sets a response header, replacing any previous value
func (r *Response) WithHeader(key, value string) *Response {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	r.Headers.Set(key, value)
	return r
}

// WithCookie adds a cookie to the response
func (r *Response) WithCookie(cookie *http.Cookie) *Response {
	r.Cookies = append(r.Cookies, cookie)
	return r
}

// OK creates a 200 OK response with the given body
func OK(body interface{}) *Response {
	return NewResponse(http.StatusOK, body)
}

// Created creates a 201 Created response with the given body
func Created(body interface{}) *Response {
	return NewResponse(http.StatusCreated, body)
}

// Accepted creates a 202 Accepted response with the given body
func Accepted(body interface{}) *Response {
	return NewResponse(http.StatusAccepted, body)
}

// NoContent creates a 204 No Content response
func NoContent() *Response {
	return NewResponse(http.StatusNoContent, nil)
}

// RedirectResult lets a handler on a redirect route override the target at runtime
type RedirectResult struct {
	URL        string
	StatusCode int
}

// RawJSON is a pre-encoded JSON body sent without re-encoding
type RawJSON []byte
