package errors

import "fmt"

// ConfigurationError creates an error for an invalid application setup
func ConfigurationError(origin Origin, message string) *BaseError {
	return New(ConfigurationErrorCode, message).WithOrigin(origin)
}

// DuplicateRouteError reports two routes sharing a method and path
func DuplicateRouteError(origin Origin, existing Origin) *BaseError {
	message := fmt.Sprintf("route %s %s is already registered by %s", origin.Method, origin.Path, existing.String())
	return New(DuplicateRouteErrorCode, message).
		WithOrigin(origin).
		WithContext("existing", existing.String()).
		WithSuggestion("Change the path or HTTP method of one of the handlers").
		WithSuggestion("Remove the duplicate route registration")
}

// BindingError reports a parameter binding list that does not match the handler signature
func BindingError(origin Origin, format string, args ...interface{}) *BaseError {
	return Newf(BindingErrorCode, format, args...).
		WithOrigin(origin).
		WithSuggestion("Declare exactly one binding per handler parameter, indexed from 0")
}

// WrapDependencyError wraps dependency injection errors
func WrapDependencyError(dependencyType, dependencyName string, cause error) *BaseError {
	message := fmt.Sprintf("failed to resolve dependency '%s' of type '%s'", dependencyName, dependencyType)
	if dependencyName == "" {
		message = fmt.Sprintf("failed to resolve dependency of type '%s'", dependencyType)
	}
	return Wrap(DependencyErrorCode, message, cause).
		WithContext("dependency_type", dependencyType).
		WithContext("dependency_name", dependencyName)
}

// WrapSchemaError wraps errors raised while inspecting a validation schema
func WrapSchemaError(origin Origin, slot string, cause error) *BaseError {
	message := fmt.Sprintf("invalid %s schema", slot)
	return Wrap(SchemaErrorCode, message, cause).
		WithOrigin(origin).
		WithContext("slot", slot)
}

// WrapConfigurationError wraps configuration loading errors
func WrapConfigurationError(configType, operation string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s configuration '%s'", operation, configType)
	return Wrap(ConfigurationErrorCode, message, cause).
		WithContext("config_type", configType).
		WithContext("operation", operation)
}

// AddToMultiple adds an error to a MultipleErrors, creating it if nil
func AddToMultiple(multiple **MultipleErrors, err WynkError) {
	if *multiple == nil {
		*multiple = NewMultipleErrors()
	}
	(*multiple).Add(err)
}
