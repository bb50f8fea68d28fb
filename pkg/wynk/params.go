package wynk

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/goccy/go-json"
)

// Source identifies where a handler argument is extracted from
type Source int

const (
	SourceBody Source = iota
	SourceQuery
	SourceParam
	SourceHeader
	SourceCustom
	SourceContext
	SourceRequest
)

// String returns the source name
func (s Source) String() string {
	switch s {
	case SourceBody:
		return "body"
	case SourceQuery:
		return "query"
	case SourceParam:
		return "param"
	case SourceHeader:
		return "header"
	case SourceCustom:
		return "custom"
	case SourceContext:
		return "context"
	case SourceRequest:
		return "request"
	default:
		return "unknown"
	}
}

// TransformFunc converts the raw extracted value into the handler argument
type TransformFunc func(raw any) (any, error)

// ParamBinding describes how one handler argument is extracted from a request.
// Index -1 means the position is assigned by Args.
type ParamBinding struct {
	Index     int
	Source    Source
	Key       string
	transform TransformFunc
	custom    func(c *Context) (any, error)
}

// Transform returns a copy of the binding that passes the raw value through fn
func (b ParamBinding) Transform(fn TransformFunc) ParamBinding {
	b.transform = fn
	return b
}

// Body binds the decoded JSON request body
func Body() ParamBinding {
	return ParamBinding{Index: -1, Source: SourceBody}
}

// BodyKey binds one top-level property of the JSON request body
func BodyKey(key string) ParamBinding {
	return ParamBinding{Index: -1, Source: SourceBody, Key: key}
}

// Param binds a path parameter, or all of them as map[string]string without a key
func Param(key ...string) ParamBinding {
	return ParamBinding{Index: -1, Source: SourceParam, Key: optionalKey(key)}
}

// Query binds a query parameter, or the whole query without a key
func Query(key ...string) ParamBinding {
	return ParamBinding{Index: -1, Source: SourceQuery, Key: optionalKey(key)}
}

// HeaderArg binds a request header, or all headers as http.Header without a key
func HeaderArg(key ...string) ParamBinding {
	return ParamBinding{Index: -1, Source: SourceHeader, Key: optionalKey(key)}
}

// Custom binds the value returned by fn
func Custom(fn func(c *Context) (any, error)) ParamBinding {
	return ParamBinding{Index: -1, Source: SourceCustom, custom: fn}
}

// Ctx binds the request *Context, or its context.Context
func Ctx() ParamBinding {
	return ParamBinding{Index: -1, Source: SourceContext}
}

// Req binds the engine RequestContext
func Req() ParamBinding {
	return ParamBinding{Index: -1, Source: SourceRequest}
}

func optionalKey(key []string) string {
	if len(key) == 0 {
		return ""
	}
	return key[0]
}

var (
	contextPtrType     = reflect.TypeOf((*Context)(nil))
	stdContextType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	requestContextType = reflect.TypeOf((*RequestContext)(nil)).Elem()
	queryMapType       = reflect.TypeOf(QueryMap{})
	httpHeaderType     = reflect.TypeOf(http.Header{})
	bytesType          = reflect.TypeOf([]byte(nil))
)

// resolve extracts the argument for binding b as a value of type t
func (b ParamBinding) resolve(c *Context, t reflect.Type, v *Validator) (reflect.Value, error) {
	switch b.Source {
	case SourceContext:
		if t == stdContextType {
			return reflect.ValueOf(c.Context()), nil
		}
		return reflect.ValueOf(c), nil
	case SourceRequest:
		return reflect.ValueOf(c.RequestContext), nil
	case SourceCustom:
		raw, err := b.custom(c)
		if err != nil {
			return reflect.Value{}, err
		}
		return b.convert(raw, t)
	case SourceBody:
		return b.resolveBody(c, t)
	}

	if b.Key != "" {
		raw, present := b.lookup(c)
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.String && b.Source == SourceQuery && b.transform == nil {
			return reflect.ValueOf(c.QueryParams()[b.Key]).Convert(t), nil
		}
		if !present && b.transform == nil {
			return reflect.Zero(t), nil
		}
		return b.convert(raw, t)
	}
	return b.resolveCollection(c, t, v)
}

func (b ParamBinding) lookup(c *Context) (string, bool) {
	switch b.Source {
	case SourceParam:
		for _, name := range c.ParamNames() {
			if name == b.Key {
				return c.Param(b.Key), true
			}
		}
		return "", false
	case SourceQuery:
		_, ok := c.QueryParams()[b.Key]
		return c.QueryParam(b.Key), ok
	case SourceHeader:
		value := c.Request().Header(b.Key)
		return value, value != ""
	}
	return "", false
}

func (b ParamBinding) resolveCollection(c *Context, t reflect.Type, v *Validator) (reflect.Value, error) {
	if validated, ok := c.validatedValue(b.Source, t); ok && b.transform == nil {
		return validated, nil
	}

	var raw any
	switch b.Source {
	case SourceParam:
		params := make(map[string]string, len(c.ParamNames()))
		names, values := c.ParamNames(), c.ParamValues()
		for i := range names {
			if i < len(values) {
				params[names[i]] = values[i]
			}
		}
		raw = params
	case SourceQuery:
		switch t {
		case queryMapType:
			raw = NewQueryMap(c.QueryParams())
		default:
			raw = c.QueryParams()
		}
	case SourceHeader:
		raw = http.Header(c.Request().Headers())
	}

	if b.transform != nil {
		return b.convert(raw, t)
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	if t == httpHeaderType {
		return reflect.ValueOf(http.Header(c.Request().Headers())), nil
	}
	if t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.String {
		flat := reflect.MakeMap(t)
		for k, vals := range flattenable(raw) {
			flat.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), reflect.ValueOf(vals).Convert(t.Elem()))
		}
		return flat, nil
	}

	decoded, err := v.decodeMap(b.Source.String(), stringMap(raw), t)
	if err != nil {
		return reflect.Value{}, err
	}
	return decoded, nil
}

func (b ParamBinding) resolveBody(c *Context, t reflect.Type) (reflect.Value, error) {
	if b.Key == "" && b.transform == nil {
		if validated, ok := c.validatedValue(SourceBody, t); ok {
			return validated, nil
		}
	}

	body, err := c.Body()
	if err != nil {
		return reflect.Value{}, BadRequest("unable to read request body").WithCause(err)
	}

	if b.Key != "" {
		if len(body) == 0 {
			return b.convertMissing(t)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return reflect.Value{}, BadRequest("request body must be a JSON object").WithCause(err)
		}
		field, ok := fields[b.Key]
		if !ok {
			return b.convertMissing(t)
		}
		if b.transform != nil {
			var raw any
			if err := json.Unmarshal(field, &raw); err != nil {
				return reflect.Value{}, BadRequest("invalid JSON body").WithCause(err)
			}
			return b.convert(raw, t)
		}
		return decodeJSON(field, t)
	}

	if b.transform != nil {
		return b.convert(body, t)
	}
	switch {
	case t == bytesType:
		return reflect.ValueOf(body), nil
	case t.Kind() == reflect.String:
		return reflect.ValueOf(string(body)).Convert(t), nil
	case len(body) == 0:
		return reflect.Zero(t), nil
	}
	return decodeJSON(body, t)
}

func (b ParamBinding) convertMissing(t reflect.Type) (reflect.Value, error) {
	if b.transform != nil {
		return b.convert(nil, t)
	}
	return reflect.Zero(t), nil
}

// convert applies the binding transform, if any, and coerces the result to t
func (b ParamBinding) convert(raw any, t reflect.Type) (reflect.Value, error) {
	if b.transform != nil {
		out, err := b.transform(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		raw = out
	}
	if raw == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if s, ok := raw.(string); ok && canCoerceString(t) {
		coerced, err := coerceString(s, t)
		if err != nil {
			return reflect.Value{}, BadRequest(fmt.Sprintf("invalid %s parameter %q: expected %s", b.Source, b.Key, t)).WithCause(err)
		}
		return coerced, nil
	}
	if rv.Type().ConvertibleTo(t) && rv.Kind() != reflect.String {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, BadRequest(fmt.Sprintf("invalid %s parameter %q: cannot use %T as %s", b.Source, b.Key, raw, t))
}

func decodeJSON(data []byte, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, BadRequest("invalid JSON body").WithCause(err)
	}
	return ptr.Elem(), nil
}

func flattenable(raw any) map[string]string {
	out := make(map[string]string)
	switch m := raw.(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string][]string:
		for k, v := range m {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
	case http.Header:
		for k, v := range m {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
	}
	return out
}

// stringMap prepares a collection for mapstructure decoding: single values
// become strings, repeated values stay slices.
func stringMap(raw any) map[string]any {
	out := make(map[string]any)
	add := func(k string, v []string) {
		switch len(v) {
		case 0:
		case 1:
			out[k] = v[0]
		default:
			out[k] = v
		}
	}
	switch m := raw.(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string][]string:
		for k, v := range m {
			add(k, v)
		}
	case http.Header:
		for k, v := range m {
			add(k, v)
		}
	case QueryMap:
		for k, v := range m.ToMap() {
			add(k, v)
		}
	}
	return out
}
