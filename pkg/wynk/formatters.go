package wynk

import (
	"fmt"
	"net/http"
	"strings"
)

// ValidationFormatter turns a validation failure into the response body.
// Every formatter answers with status 400.
type ValidationFormatter interface {
	Format(err *ValidationError) any
}

// ValidationFormatterFunc adapts a function to ValidationFormatter
type ValidationFormatterFunc func(err *ValidationError) any

// Format implements ValidationFormatter
func (f ValidationFormatterFunc) Format(err *ValidationError) any {
	return f(err)
}

const validationFailed = "Validation failed"

type fieldEntry struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

type listBody struct {
	StatusCode int `json:"statusCode"`
	Message    any `json:"message"`
	Errors     any `json:"errors"`
}

// DefaultFormatter renders errors as [{field, message, value}]
type DefaultFormatter struct{}

// Format implements ValidationFormatter
func (DefaultFormatter) Format(err *ValidationError) any {
	entries := make([]fieldEntry, 0, len(err.Errors))
	for _, fe := range err.Errors {
		entries = append(entries, fieldEntry{Field: fe.Field, Message: fe.Message, Value: fe.Value})
	}
	return listBody{StatusCode: http.StatusBadRequest, Message: validationFailed, Errors: entries}
}

// FieldMapFormatter renders errors as {field: [messages]}
type FieldMapFormatter struct{}

// Format implements ValidationFormatter
func (FieldMapFormatter) Format(err *ValidationError) any {
	fields := make(map[string][]string, len(err.Errors))
	for _, fe := range err.Errors {
		fields[fe.Field] = append(fields[fe.Field], fe.Message)
	}
	return listBody{StatusCode: http.StatusBadRequest, Message: validationFailed, Errors: fields}
}

// NestFormatter renders {statusCode, message: [strings], error: "Bad Request"}
type NestFormatter struct{}

type nestBody struct {
	StatusCode int      `json:"statusCode"`
	Message    []string `json:"message"`
	Error      string   `json:"error"`
}

// Format implements ValidationFormatter
func (NestFormatter) Format(err *ValidationError) any {
	return nestBody{
		StatusCode: http.StatusBadRequest,
		Message:    messages(err),
		Error:      http.StatusText(http.StatusBadRequest),
	}
}

// SimpleFormatter renders errors as a flat list of messages
type SimpleFormatter struct{}

// Format implements ValidationFormatter
func (SimpleFormatter) Format(err *ValidationError) any {
	return listBody{StatusCode: http.StatusBadRequest, Message: validationFailed, Errors: messages(err)}
}

// DetailedFormatter renders errors as [{field, message, value, expected}]
type DetailedFormatter struct{}

type detailedEntry struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Value    any    `json:"value"`
	Expected string `json:"expected"`
}

// Format implements ValidationFormatter
func (DetailedFormatter) Format(err *ValidationError) any {
	entries := make([]detailedEntry, 0, len(err.Errors))
	for _, fe := range err.Errors {
		entries = append(entries, detailedEntry{
			Field:    fe.Field,
			Message:  fe.Message,
			Value:    fe.Value,
			Expected: fe.Expected,
		})
	}
	return listBody{StatusCode: http.StatusBadRequest, Message: validationFailed, Errors: entries}
}

func messages(err *ValidationError) []string {
	out := make([]string, 0, len(err.Errors))
	for _, fe := range err.Errors {
		out = append(out, fe.Message)
	}
	return out
}

// FormatterByName returns the formatter configured under name:
// default, fieldmap, nest, simple or detailed.
func FormatterByName(name string) (ValidationFormatter, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return DefaultFormatter{}, nil
	case "fieldmap", "field_map":
		return FieldMapFormatter{}, nil
	case "nest", "nestjs":
		return NestFormatter{}, nil
	case "simple":
		return SimpleFormatter{}, nil
	case "detailed":
		return DetailedFormatter{}, nil
	}
	return nil, fmt.Errorf("unknown validation formatter %q", name)
}
