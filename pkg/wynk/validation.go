package wynk

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-json"
)

// FieldError is one violated field
type FieldError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Value    any    `json:"value"`
	Expected string `json:"expected,omitempty"`
	Tag      string `json:"-"`
}

// ValidationError is returned when request data violates a declared schema
type ValidationError struct {
	Type   string       `json:"type"`
	On     string       `json:"on"`
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		fields = append(fields, fe.Field)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.On, strings.Join(fields, ", "))
}

// SchemaNamer lets a DTO choose the identifier custom messages are registered under
type SchemaNamer interface {
	SchemaName() string
}

type messageKey struct {
	schema string
	field  string
	tag    string
}

// SchemaRegistry holds custom validation messages keyed by schema and field.
// Registered messages take precedence over the built-in ones.
type SchemaRegistry struct {
	mu       sync.RWMutex
	messages map[messageKey]string
}

// NewSchemaRegistry creates an empty registry
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{messages: make(map[messageKey]string)}
}

// Register sets the message for any violation of field in schemaID
func (r *SchemaRegistry) Register(schemaID, field, message string) {
	r.RegisterTag(schemaID, field, "", message)
}

// RegisterTag sets the message for a single validation tag of field in schemaID
func (r *SchemaRegistry) RegisterTag(schemaID, field, tag, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[messageKey{schema: schemaID, field: field, tag: tag}] = message
}

// Message looks up a registered message, preferring the tag-specific one
func (r *SchemaRegistry) Message(schemaID, field, tag string) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if msg, ok := r.messages[messageKey{schema: schemaID, field: field, tag: tag}]; ok {
		return msg, true
	}
	msg, ok := r.messages[messageKey{schema: schemaID, field: field}]
	return msg, ok
}

// SchemaID returns the identifier messages for t are registered under
func SchemaID(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Implements(schemaNamerType) {
		return reflect.Zero(t).Interface().(SchemaNamer).SchemaName()
	}
	if reflect.PointerTo(t).Implements(schemaNamerType) {
		return reflect.New(t).Interface().(SchemaNamer).SchemaName()
	}
	return typeName(t)
}

var schemaNamerType = reflect.TypeOf((*SchemaNamer)(nil)).Elem()

// Validator decodes request data into schema types and validates them
type Validator struct {
	validate *validator.Validate
	registry *SchemaRegistry
}

// NewValidator creates a validator using registry for custom messages
func NewValidator(registry *SchemaRegistry) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	if registry == nil {
		registry = NewSchemaRegistry()
	}
	return &Validator{validate: v, registry: registry}
}

// Engine exposes the underlying validator for custom rule registration
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// DecodeBody decodes JSON into a new value of t and validates it. A field of
// the wrong type is reported alongside every other violated field.
func (v *Validator) DecodeBody(data []byte, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t)
	var typeErrs []FieldError
	if len(data) > 0 {
		if err := json.Unmarshal(data, ptr.Interface()); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return reflect.Value{}, BadRequest("invalid JSON body").WithCause(err)
			}
			ptr = reflect.New(t)
			typeErrs = decodeFields(data, ptr.Elem(), "", typeErr)
		}
	}
	err := v.Struct(SourceBody.String(), ptr.Interface())
	if len(typeErrs) == 0 {
		if err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	out := &ValidationError{Type: "validation", On: SourceBody.String(), Errors: typeErrs}
	var verr *ValidationError
	if err != nil && !errors.As(err, &verr) {
		return reflect.Value{}, err
	}
	if verr != nil {
		seen := make(map[string]bool, len(typeErrs))
		for _, fe := range typeErrs {
			seen[fe.Field] = true
		}
		for _, fe := range verr.Errors {
			if !seen[fe.Field] {
				out.Errors = append(out.Errors, fe)
			}
		}
	}
	return reflect.Value{}, out
}

// decodeFields decodes a JSON object field by field into dst so one
// mistyped field does not hide the others. It returns a type error entry
// for every field that could not be decoded.
func decodeFields(data []byte, dst reflect.Value, prefix string, cause *json.UnmarshalTypeError) []FieldError {
	var raw map[string]json.RawMessage
	if dst.Kind() != reflect.Struct || implementsUnmarshaler(dst) || json.Unmarshal(data, &raw) != nil {
		if err := json.Unmarshal(data, dst.Addr().Interface()); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				typeErr = cause
			}
			field := prefix
			if field == "" {
				field = typeErr.Field
			}
			if field == "" {
				field = SourceBody.String()
			}
			return []FieldError{typeError(field, typeErr)}
		}
		return nil
	}

	var out []FieldError
	for key, value := range raw {
		field, name, ok := jsonField(dst, key)
		if !ok {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if field.Kind() == reflect.Struct && !implementsUnmarshaler(field) {
			out = append(out, decodeFields(value, field, path, cause)...)
			continue
		}
		if err := json.Unmarshal(value, field.Addr().Interface()); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				typeErr = cause
			}
			out = append(out, typeError(path, typeErr))
		}
	}
	slices.SortFunc(out, func(a, b FieldError) int { return strings.Compare(a.Field, b.Field) })
	return out
}

// jsonField finds the field of dst that key decodes into and its declared
// name, matching the way encoding/json does: exact first, then ignoring case.
func jsonField(dst reflect.Value, key string) (reflect.Value, string, bool) {
	var folded reflect.Value
	var foldedName string
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct {
			if f, n, ok := jsonField(dst.Field(i), key); ok {
				return f, n, true
			}
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if name == key {
			return dst.Field(i), name, true
		}
		if !folded.IsValid() && strings.EqualFold(name, key) {
			folded, foldedName = dst.Field(i), name
		}
	}
	return folded, foldedName, folded.IsValid()
}

var (
	jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
)

func implementsUnmarshaler(v reflect.Value) bool {
	pt := reflect.PointerTo(v.Type())
	return pt.Implements(jsonUnmarshalerType) || pt.Implements(textUnmarshalerType)
}

func typeError(field string, typeErr *json.UnmarshalTypeError) FieldError {
	expectedType := "valid JSON"
	if typeErr.Type != nil {
		expectedType = typeErr.Type.String()
	}
	return FieldError{
		Field:    field,
		Message:  fmt.Sprintf("%s must be of type %s", field, expectedType),
		Value:    typeErr.Value,
		Expected: expectedType,
		Tag:      "type",
	}
}

// decodeMap decodes string-valued request data into t without validating it
func (v *Validator) decodeMap(on string, src map[string]any, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           ptr.Interface(),
		WeaklyTypedInput: true,
		TagName:          "json",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := decoder.Decode(src); err != nil {
		return reflect.Value{}, &ValidationError{
			Type: "validation",
			On:   on,
			Errors: []FieldError{{
				Field:   on,
				Message: err.Error(),
				Value:   src,
				Tag:     "type",
			}},
		}
	}
	return ptr.Elem(), nil
}

// DecodeMap decodes string-valued request data into t and validates it
func (v *Validator) DecodeMap(on string, src map[string]any, t reflect.Type) (reflect.Value, error) {
	out, err := v.decodeMap(on, src, t)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(t)
	ptr.Elem().Set(out)
	if err := v.Struct(on, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

// Struct validates a struct value, returning a *ValidationError listing one
// entry per violated field. Non-struct values are accepted as they are.
func (v *Validator) Struct(on string, value any) error {
	t := reflect.TypeOf(value)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	err := v.validate.Struct(value)
	if err == nil {
		return nil
	}
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return err
	}

	schema := SchemaID(t)
	out := &ValidationError{Type: "validation", On: on}
	seen := make(map[string]bool)
	for _, fe := range violations {
		field := fieldPath(fe)
		if seen[field] {
			continue
		}
		seen[field] = true
		msg, ok := v.registry.Message(schema, field, fe.Tag())
		if !ok {
			msg = defaultMessage(field, fe)
		}
		out.Errors = append(out.Errors, FieldError{
			Field:    field,
			Message:  msg,
			Value:    fe.Value(),
			Expected: expected(fe),
			Tag:      fe.Tag(),
		})
	}
	return out
}

// validateRoute validates every declared request schema and caches the
// decoded values on the context for Body/Query/Param/HeaderArg bindings.
func (v *Validator) validateRoute(c *Context, s Schemas) error {
	if s.Body != nil {
		body, err := c.Body()
		if err != nil {
			return BadRequest("unable to read request body").WithCause(err)
		}
		out, err := v.DecodeBody(body, s.Body)
		if err != nil {
			return err
		}
		c.setValidated(SourceBody, out)
	}
	if s.Query != nil {
		out, err := v.DecodeMap(SourceQuery.String(), stringMap(c.QueryParams()), s.Query)
		if err != nil {
			return err
		}
		c.setValidated(SourceQuery, out)
	}
	if s.Params != nil {
		params := make(map[string]any)
		names, values := c.ParamNames(), c.ParamValues()
		for i := range names {
			if i < len(values) {
				params[names[i]] = values[i]
			}
		}
		out, err := v.DecodeMap(SourceParam.String(), params, s.Params)
		if err != nil {
			return err
		}
		c.setValidated(SourceParam, out)
	}
	if s.Headers != nil {
		out, err := v.DecodeMap(SourceHeader.String(), stringMap(c.Request().Headers()), s.Headers)
		if err != nil {
			return err
		}
		c.setValidated(SourceHeader, out)
	}
	return nil
}

// fieldPath drops the root struct name from the namespace, giving
// "address.city" for CreateUserDTO.address.city.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i != -1 {
		return ns[i+1:]
	}
	return fe.Field()
}

func expected(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func defaultMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless", "required_with", "required_without":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "url", "uri", "http_url":
		return field + " must be a valid URL"
	case "uuid", "uuid4":
		return field + " must be a valid UUID"
	case "min":
		if isLengthKind(fe.Kind()) {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isLengthKind(fe.Kind()) {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "numeric", "number":
		return field + " must be numeric"
	case "alpha":
		return field + " must contain only letters"
	case "alphanum":
		return field + " must contain only letters and digits"
	}
	return fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag())
}

func isLengthKind(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map || k == reflect.Array
}
