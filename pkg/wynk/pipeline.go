package wynk

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"

	"go.uber.org/zap"

	wynkerrors "github.com/wynkjs/wynk/internal/errors"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type argSlot struct {
	binding ParamBinding
	typ     reflect.Type
}

// compiledRoute is the request pipeline assembled for one route at build time
type compiledRoute struct {
	app        *App
	info       *RouteInfo
	desc       *RouteDescriptor
	ctrl       *ControllerDescriptor
	reflector  Reflector
	logger     *zap.Logger
	handler    reflect.Value
	instance   reflect.Value
	receiver   bool
	args       []argSlot
	guards     []Guard
	pipes      []Pipe
	invoke     func(c *Context) (any, error)
	paramTypes map[string]string

	returnsError bool
}

// compile checks the handler signature against its bindings and assembles
// the guard, pipe and interceptor chains.
func compile(a *App, ctrl *ControllerDescriptor, route *RouteDescriptor, info *RouteInfo, instance reflect.Value) (*compiledRoute, wynkerrors.WynkError) {
	origin := wynkerrors.Origin{
		Controller: ctrl.Name,
		Handler:    route.HandlerName,
		Method:     route.Method,
		Path:       string(info.Path),
	}

	hv := reflect.ValueOf(route.Handler)
	if hv.Kind() != reflect.Func || hv.IsNil() {
		return nil, wynkerrors.ConfigurationError(origin, fmt.Sprintf("handler must be a function, got %T", route.Handler))
	}
	ht := hv.Type()
	if ht.IsVariadic() {
		return nil, wynkerrors.BindingError(origin, "variadic handlers cannot be bound")
	}

	r := &compiledRoute{
		app:        a,
		info:       info,
		desc:       route,
		ctrl:       ctrl,
		reflector:  NewReflector(a.store, ctrl.Name, route.HandlerName),
		handler:    hv,
		receiver:   ctrl.takesReceiver(ht),
		paramTypes: route.Path.ParamTypes(),
		logger: a.logger.With(
			zap.String("controller", ctrl.Name),
			zap.String("handler", route.HandlerName),
		),
	}
	if r.receiver {
		r.instance = instance
	}

	switch ht.NumOut() {
	case 0:
	case 1:
		r.returnsError = ht.Out(0) == errorType
	case 2:
		if ht.Out(1) != errorType {
			return nil, wynkerrors.ConfigurationError(origin, "the second handler result must be error")
		}
	default:
		return nil, wynkerrors.ConfigurationError(origin, "handlers return at most (value, error)")
	}

	offset := 0
	if r.receiver {
		offset = 1
	}
	params := make([]reflect.Type, ht.NumIn()-offset)
	for i := range params {
		params[i] = ht.In(i + offset)
	}

	bindings := route.Bindings
	if len(bindings) == 0 && len(params) > 0 {
		inferred, err := inferBindings(origin, params, route.Schemas)
		if err != nil {
			return nil, err
		}
		bindings = inferred
	}
	if err := checkBindings(origin, bindings, params); err != nil {
		return nil, err
	}
	for _, b := range bindings {
		r.args = append(r.args, argSlot{binding: b, typ: params[b.Index]})
	}
	sort.Slice(r.args, func(i, j int) bool {
		return r.args[i].binding.Index < r.args[j].binding.Index
	})

	r.guards = concat(a.guards, ctrl.Guards, route.Guards)
	r.pipes = concat(a.pipes, ctrl.Pipes, route.Pipes)
	r.invoke = composeInterceptors(concat(a.interceptors, ctrl.Interceptors, route.Interceptors), r.call)

	info.Guards = len(r.guards)
	info.Pipes = len(r.pipes)
	info.Interceptors = len(a.interceptors) + len(ctrl.Interceptors) + len(route.Interceptors)
	info.Filters = len(a.filters) + len(ctrl.Filters) + len(route.Filters)
	return r, nil
}

func inferBindings(origin wynkerrors.Origin, params []reflect.Type, schemas Schemas) ([]ParamBinding, wynkerrors.WynkError) {
	bindings := make([]ParamBinding, len(params))
	for i, t := range params {
		var b ParamBinding
		switch {
		case t == contextPtrType || t == stdContextType:
			b = Ctx()
		case t == requestContextType:
			b = Req()
		case schemas.Body != nil && (t == schemas.Body || (t.Kind() == reflect.Pointer && t.Elem() == schemas.Body)):
			b = Body()
		default:
			return nil, wynkerrors.BindingError(origin, "parameter %d (%s) has no binding", i, t)
		}
		b.Index = i
		bindings[i] = b
	}
	return bindings, nil
}

// checkBindings requires exactly one binding per handler parameter
func checkBindings(origin wynkerrors.Origin, bindings []ParamBinding, params []reflect.Type) wynkerrors.WynkError {
	seen := make(map[int]bool, len(bindings))
	for _, b := range bindings {
		if b.Index < 0 || b.Index >= len(params) {
			return wynkerrors.BindingError(origin, "binding index %d is out of range: handler declares %d parameters", b.Index, len(params))
		}
		if seen[b.Index] {
			return wynkerrors.BindingError(origin, "parameter %d is bound more than once", b.Index)
		}
		seen[b.Index] = true

		t := params[b.Index]
		switch b.Source {
		case SourceContext:
			if t != contextPtrType && t != stdContextType {
				return wynkerrors.BindingError(origin, "parameter %d: Ctx() needs *wynk.Context or context.Context, got %s", b.Index, t)
			}
		case SourceRequest:
			if !requestContextType.AssignableTo(t) {
				return wynkerrors.BindingError(origin, "parameter %d: Req() needs wynk.RequestContext, got %s", b.Index, t)
			}
		case SourceCustom:
			if b.custom == nil {
				return wynkerrors.BindingError(origin, "parameter %d: Custom() needs a function", b.Index)
			}
		}
	}
	if len(bindings) != len(params) {
		return wynkerrors.BindingError(origin, "handler declares %d parameters but %d are bound", len(params), len(bindings))
	}
	return nil
}

func concat[T any](scopes ...[]T) []T {
	var out []T
	for _, s := range scopes {
		out = append(out, s...)
	}
	return out
}

// serve is the engine handler for the route
func (r *compiledRoute) serve(rc RequestContext) error {
	c := newContext(rc, r.info, r.reflector, r.logger, r.app.container)
	result, err := r.execute(c)
	if err != nil {
		return r.app.writeError(c, r, err)
	}
	return r.app.writeResult(c, r, result)
}

func (r *compiledRoute) execute(c *Context) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, recovered(rec)
		}
	}()

	for _, g := range r.guards {
		ok, err := g.CanActivate(c)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, Forbidden("Forbidden resource")
		}
	}
	if err := r.checkParamTypes(c); err != nil {
		return nil, err
	}
	if err := r.app.validator.validateRoute(c, r.desc.Schemas); err != nil {
		return nil, err
	}
	args, err := r.resolveArgs(c)
	if err != nil {
		return nil, err
	}
	c.args = args
	return r.invoke(c)
}

// checkParamTypes rejects requests whose typed path parameters do not parse
func (r *compiledRoute) checkParamTypes(c *Context) error {
	for name, typ := range r.paramTypes {
		parser, ok := GetBuiltinParser(typ)
		if !ok {
			continue
		}
		if _, err := parser(c.Param(name)); err != nil {
			return BadRequest(fmt.Sprintf("invalid path parameter %q: expected %s", name, typ)).WithCause(err)
		}
	}
	return nil
}

// resolveArgs builds the handler argument list in index order and runs the
// pipes over every argument.
func (r *compiledRoute) resolveArgs(c *Context) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(r.args))
	for i, slot := range r.args {
		v, err := slot.binding.resolve(c, slot.typ, r.app.validator)
		if err != nil {
			return nil, err
		}
		if len(r.pipes) > 0 {
			v, err = r.applyPipes(c, slot, v)
			if err != nil {
				return nil, err
			}
		}
		args[i] = v
	}
	return args, nil
}

func (r *compiledRoute) applyPipes(c *Context, slot argSlot, v reflect.Value) (reflect.Value, error) {
	meta := ArgumentMetadata{
		Index:  slot.binding.Index,
		Source: slot.binding.Source,
		Key:    slot.binding.Key,
		Type:   slot.typ,
	}
	value := v.Interface()
	for _, p := range r.pipes {
		out, err := p.Transform(c, value, meta)
		if err != nil {
			return reflect.Value{}, err
		}
		value = out
	}
	if value == nil {
		return reflect.Zero(slot.typ), nil
	}
	out := reflect.ValueOf(value)
	switch {
	case out.Type().AssignableTo(slot.typ):
		return out, nil
	case out.Type().ConvertibleTo(slot.typ) && out.Kind() != reflect.String:
		return out.Convert(slot.typ), nil
	}
	return reflect.Value{}, InternalServerError(fmt.Sprintf("pipe returned %T for parameter %d of type %s", value, slot.binding.Index, slot.typ))
}

// call invokes the handler with the arguments resolved for this request
func (r *compiledRoute) call(c *Context) (any, error) {
	in := c.args
	if r.receiver {
		in = append([]reflect.Value{r.instance}, c.args...)
	}
	out := r.handler.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if r.returnsError {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// writeResult applies status, headers and redirects, then sends the body
func (a *App) writeResult(c *Context, r *compiledRoute, result any) error {
	resp := c.Response()
	if resp.Written() {
		return nil
	}

	for _, h := range r.desc.Headers {
		resp.SetHeader(h.Name, h.Value)
	}

	if redirect := redirectFor(r.desc.Redirect, result); redirect != nil {
		return resp.Redirect(redirect.StatusCode, redirect.URL)
	}

	status := r.info.StatusCode
	explicit := r.desc.HTTPCode != 0 || r.desc.Method == http.MethodPost
	body := result
	switch v := result.(type) {
	case *Response:
		if v == nil {
			body = nil
			break
		}
		if v.StatusCode != 0 {
			status, explicit = v.StatusCode, true
		}
		applyResponseHeaders(resp, v)
		body = v.Body
	case Response:
		if v.StatusCode != 0 {
			status, explicit = v.StatusCode, true
		}
		applyResponseHeaders(resp, &v)
		body = v.Body
	}

	if isNil(body) {
		if !explicit {
			status = http.StatusNoContent
		}
		return resp.NoContent(status)
	}
	return a.send(c, r, status, body)
}

func redirectFor(route *RedirectSpec, result any) *RedirectSpec {
	var override *RedirectSpec
	switch v := result.(type) {
	case RedirectResult:
		override = &RedirectSpec{URL: v.URL, StatusCode: v.StatusCode}
	case *RedirectResult:
		if v != nil {
			override = &RedirectSpec{URL: v.URL, StatusCode: v.StatusCode}
		}
	}
	if override == nil {
		return route
	}
	if route != nil {
		if override.URL == "" {
			override.URL = route.URL
		}
		if override.StatusCode == 0 {
			override.StatusCode = route.StatusCode
		}
	}
	if override.StatusCode == 0 {
		override.StatusCode = http.StatusFound
	}
	return override
}

func applyResponseHeaders(w ResponseInterface, r *Response) {
	for name, values := range r.Headers {
		w.DelHeader(name)
		for _, v := range values {
			w.AddHeader(name, v)
		}
	}
	for _, cookie := range r.Cookies {
		w.SetCookie(cookie)
	}
}

// writeError hands err to the filter chain: route scope, controller scope,
// global scope, then the default filter.
func (a *App) writeError(c *Context, r *compiledRoute, err error) error {
	var out *Response
	if reg, ok := selectFilter(err, r.desc.Filters, r.ctrl.Filters, a.filters); ok {
		out = a.catch(reg.Filter, c, err)
	}
	if out == nil {
		out = a.defaultFilter.Catch(c, err)
	}

	resp := c.Response()
	if resp.Written() {
		return nil
	}
	applyResponseHeaders(resp, out)
	status := out.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if isNil(out.Body) {
		return resp.NoContent(status)
	}
	return a.send(c, r, status, out.Body)
}

// catch runs a user filter, falling back to the default filter if it panics
func (a *App) catch(filter ExceptionFilter, c *Context, err error) (out *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			out = a.defaultFilter.Catch(c, recovered(rec))
		}
	}()
	return filter.Catch(c, err)
}

// send serializes body, compresses it when the client allows, and writes it
func (a *App) send(c *Context, r *compiledRoute, status int, body any) error {
	data, contentType, err := serializeBody(body)
	if err != nil {
		r.logger.Error("failed to serialize response", zap.Error(err))
		fallback := a.defaultFilter.Catch(c, InternalServerError("failed to serialize response").WithCause(err))
		data, contentType, _ = serializeBody(fallback.Body)
		status = fallback.StatusCode
	}

	resp := c.Response()
	if ct := resp.Header("Content-Type"); ct != "" {
		contentType = ct
	}
	if a.compressor != nil {
		data = a.compressor.Compress(c.Request().Header("Accept-Encoding"), resp, data)
	}
	return resp.Blob(status, contentType, data)
}
