package wynk

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ParamParser converts a raw path, query or header value
type ParamParser func(value string) (any, error)

// BuiltinParsers maps typed path segment names ({id:int}) to their parser
var BuiltinParsers = map[string]ParamParser{
	"int":       ParseInt,
	"string":    ParseString,
	"float64":   ParseFloat64,
	"float32":   ParseFloat32,
	"bool":      ParseBool,
	"uuid.UUID": ParseUUID,
	"time.Time": ParseTime,
}

// ParserAliases maps convenient aliases to their full type names
var ParserAliases = map[string]string{
	"UUID":    "uuid.UUID",
	"uuid":    "uuid.UUID",
	"float":   "float64",
	"double":  "float64",
	"integer": "int",
	"time":    "time.Time",
}

// ParseInt parses a string parameter to int
func ParseInt(value string) (any, error) {
	return strconv.Atoi(value)
}

// ParseString returns the string parameter as-is
func ParseString(value string) (any, error) {
	return value, nil
}

// ParseFloat64 parses a string parameter to float64
func ParseFloat64(value string) (any, error) {
	return strconv.ParseFloat(value, 64)
}

// ParseFloat32 parses a string parameter to float32
func ParseFloat32(value string) (any, error) {
	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, err
	}
	return float32(val), nil
}

// ParseBool parses a string parameter to bool
func ParseBool(value string) (any, error) {
	return strconv.ParseBool(value)
}

// ParseUUID parses a string parameter to uuid.UUID
func ParseUUID(value string) (any, error) {
	return uuid.Parse(value)
}

// ParseTime parses an RFC 3339 timestamp
func ParseTime(value string) (any, error) {
	return time.Parse(time.RFC3339, value)
}

// GetBuiltinParser returns a built-in parser by type name, checking aliases first
func GetBuiltinParser(typeName string) (ParamParser, bool) {
	parser, exists := BuiltinParsers[ResolveTypeAlias(typeName)]
	return parser, exists
}

// IsBuiltinType checks if a type is a built-in type, including aliases
func IsBuiltinType(typeName string) bool {
	_, exists := BuiltinParsers[ResolveTypeAlias(typeName)]
	return exists
}

// ResolveTypeAlias resolves a type alias to its actual type name
func ResolveTypeAlias(typeName string) string {
	if actualType, isAlias := ParserAliases[typeName]; isAlias {
		return actualType
	}
	return typeName
}

// GetAllBuiltinTypes returns all built-in type names including aliases
func GetAllBuiltinTypes() []string {
	types := make([]string, 0, len(BuiltinParsers)+len(ParserAliases))
	for typeName := range BuiltinParsers {
		types = append(types, typeName)
	}
	for alias := range ParserAliases {
		types = append(types, alias)
	}
	return types
}

var (
	uuidType            = reflect.TypeOf(uuid.UUID{})
	timeType            = reflect.TypeOf(time.Time{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// coerceString converts a raw string into a value assignable to t
func coerceString(value string, t reflect.Type) (reflect.Value, error) {
	switch t {
	case uuidType:
		id, err := uuid.Parse(value)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(id), nil
	case timeType:
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(ts), nil
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value)); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		out.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.Pointer:
		inner, err := coerceString(value, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(inner)
		return ptr, nil
	case reflect.Interface:
		if reflect.TypeOf(value).AssignableTo(t) {
			return reflect.ValueOf(value), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot assign string to %s", t)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type %s", t)
	}
	return out, nil
}

// canCoerceString reports whether coerceString supports t
func canCoerceString(t reflect.Type) bool {
	if t == uuidType || t == timeType || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Pointer:
		return canCoerceString(t.Elem())
	case reflect.Interface:
		return reflect.TypeOf("").AssignableTo(t)
	}
	return false
}
