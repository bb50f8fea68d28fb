// Package interceptors provides stock interceptors for timing, response
// envelopes and response caching.
package interceptors

import (
	"time"

	"github.com/wynkjs/wynk/pkg/wynk"
)

// ResponseTimeHeader carries the handler duration set by Timing
const ResponseTimeHeader = "X-Response-Time"

// Timing reports how long the rest of the chain took in X-Response-Time
func Timing() wynk.Interceptor {
	return wynk.InterceptorFunc(func(c *wynk.Context, next wynk.CallHandler) (any, error) {
		start := time.Now()
		out, err := next()
		c.Response().SetHeader(ResponseTimeHeader, time.Since(start).String())
		return out, err
	})
}

// Envelope is the body shape produced by Transform
type Envelope struct {
	Data any `json:"data"`
}

// Transform wraps successful results in {"data": ...}. Empty results,
// redirects and errors pass through unchanged.
func Transform() wynk.Interceptor {
	return wynk.InterceptorFunc(func(c *wynk.Context, next wynk.CallHandler) (any, error) {
		out, err := next()
		if err != nil || out == nil {
			return out, err
		}
		switch v := out.(type) {
		case wynk.RedirectResult, *wynk.RedirectResult:
			return out, nil
		case *wynk.Response:
			if v.Body != nil {
				v.Body = Envelope{Data: v.Body}
			}
			return v, nil
		case wynk.Response:
			if v.Body != nil {
				v.Body = Envelope{Data: v.Body}
			}
			return v, nil
		}
		return Envelope{Data: out}, nil
	})
}
