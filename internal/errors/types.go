package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeUnknownPrefix   ErrorType = "unknown_prefix"
	ErrorTypeMissingArgument ErrorType = "missing_argument"
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	ErrorTypeDuplicate       ErrorType = "duplicate_declaration"
	ErrorTypeSyntax          ErrorType = "syntax"
	ErrorTypeIO              ErrorType = "io"
	ErrorTypeConfig          ErrorType = "config"
	ErrorTypeInternal        ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeComponentNotFound = "ERR_COMPONENT_NOT_FOUND"
	ErrCodeUnknownPrefix     = "ERR_UNKNOWN_PREFIX"
	ErrCodeMissingArgument   = "ERR_MISSING_ARGUMENT"
	ErrCodeInvalidArgument   = "ERR_INVALID_ARGUMENT"
	ErrCodeDuplicateDef      = "ERR_DUPLICATE_DEF"
	ErrCodeSyntax            = "ERR_SYNTAX"
	ErrCodeUnclosedTag       = "ERR_UNCLOSED_TAG"
	ErrCodeFileNotFound      = "ERR_FILE_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// TagxError is a structured error type with context.
type TagxError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
	FilePath  string
	Line      int
}

// Error implements the error interface.
func (e *TagxError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
		}
		parts = append(parts, location)
	} else if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Line))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *TagxError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *TagxError) Is(target error) bool {
	var t *TagxError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *TagxError) WithContext(key string, value interface{}) *TagxError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *TagxError) WithLocation(filePath string, line int) *TagxError {
	e.FilePath = filePath
	e.Line = line

	return e
}

// WithComponent adds component context.
func (e *TagxError) WithComponent(component string) *TagxError {
	e.Component = component

	return e
}

// WithCause records the underlying error.
func (e *TagxError) WithCause(cause error) *TagxError {
	e.Cause = cause

	return e
}

// Error creation functions

// NewComponentNotFoundError reports a name that matched no file in any searched root.
func NewComponentNotFoundError(name, ext string) *TagxError {
	return &TagxError{
		Type:      ErrorTypeNotFound,
		Code:      ErrCodeComponentNotFound,
		Message:   fmt.Sprintf("Unable to find component `%s` with file extension `*%s`", name, ext),
		Component: name,
	}
}

// NewUnknownPrefixError reports an explicit prefix that was never registered.
func NewUnknownPrefixError(prefix string) *TagxError {
	return &TagxError{
		Type:    ErrorTypeUnknownPrefix,
		Code:    ErrCodeUnknownPrefix,
		Message: fmt.Sprintf("Unknown component prefix `%s`", prefix),
	}
}

// NewMissingArgumentError reports a required parameter omitted by a render call.
func NewMissingArgumentError(component, arg string) *TagxError {
	return &TagxError{
		Type:      ErrorTypeMissingArgument,
		Code:      ErrCodeMissingArgument,
		Message:   fmt.Sprintf("`%s` component requires a `%s` argument", component, arg),
		Component: component,
	}
}

// NewInvalidArgumentError creates an invalid argument error.
func NewInvalidArgumentError(message string, cause error) *TagxError {
	return &TagxError{
		Type:    ErrorTypeInvalidArgument,
		Code:    ErrCodeInvalidArgument,
		Message: message,
		Cause:   cause,
	}
}

// NewDuplicateDeclarationError reports a second parameter declaration.
func NewDuplicateDeclarationError(component string) *TagxError {
	return &TagxError{
		Type:      ErrorTypeDuplicate,
		Code:      ErrCodeDuplicateDef,
		Message:   fmt.Sprintf("`%s` has two parameter declarations", component),
		Component: component,
	}
}

// NewSyntaxError creates a syntax error for template source.
func NewSyntaxError(message, name string, line int) *TagxError {
	return &TagxError{
		Type:     ErrorTypeSyntax,
		Code:     ErrCodeSyntax,
		Message:  message,
		FilePath: name,
		Line:     line,
	}
}

// NewUnclosedTagError reports a content tag with no closing tag.
func NewUnclosedTagError(tag, name string, line int) *TagxError {
	return &TagxError{
		Type:     ErrorTypeSyntax,
		Code:     ErrCodeUnclosedTag,
		Message:  "Unclosed component " + tag,
		FilePath: name,
		Line:     line,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *TagxError {
	return &TagxError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *TagxError {
	return &TagxError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *TagxError {
	return &TagxError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err carries a TagxError of the given type.
func IsType(err error, typ ErrorType) bool {
	var te *TagxError
	if errors.As(err, &te) {
		return te.Type == typ
	}

	return false
}

// IsNotFound checks if an error is a component-not-found error.
func IsNotFound(err error) bool { return IsType(err, ErrorTypeNotFound) }

// IsUnknownPrefix checks if an error is an unknown-prefix error.
func IsUnknownPrefix(err error) bool { return IsType(err, ErrorTypeUnknownPrefix) }

// IsMissingArgument checks if an error is a missing-required-argument error.
func IsMissingArgument(err error) bool { return IsType(err, ErrorTypeMissingArgument) }

// IsInvalidArgument checks if an error is an invalid-argument error.
func IsInvalidArgument(err error) bool { return IsType(err, ErrorTypeInvalidArgument) }

// IsDuplicateDeclaration checks if an error is a duplicate-declaration error.
func IsDuplicateDeclaration(err error) bool { return IsType(err, ErrorTypeDuplicate) }

// IsSyntax checks if an error is a template syntax error.
func IsSyntax(err error) bool { return IsType(err, ErrorTypeSyntax) }

// As returns the TagxError carried by err, if any.
func As(err error) (*TagxError, bool) {
	var te *TagxError
	ok := errors.As(err, &te)

	return te, ok
}
