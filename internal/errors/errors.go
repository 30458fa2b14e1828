package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard application errors
var (
	ErrEmptyInput      = errors.New("input is empty or contains only whitespace")
	ErrInvalidJSON     = errors.New("invalid JSON format")
	ErrMultipleJSON    = errors.New("multiple JSON values found at the root, only one is allowed")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileEmpty       = errors.New("file is empty")
	ErrNoInput         = errors.New("no input provided: please specify a file with -i or pipe JSON data to stdin")
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrNotAnObject     = errors.New("fragments document must be a JSON object")
)

// NotFoundError reports a referenced or start fragment name with no entry in
// the fragment map.
type NotFoundError struct {
	Fragment string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("fragment not found: %s", e.Fragment)
}

// Is matches any NotFoundError regardless of fragment name.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// CircularDependencyError reports a fragment that transitively references
// itself. Cycle holds the ordered path, first element repeated at the end.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CircularDependencyError) Is(target error) bool {
	_, ok := target.(*CircularDependencyError)
	return ok
}

// InvalidKeyError reports a value that had to resolve to a string but did
// not: an object key, a template substitution, or a non-string UseDefault
// value at a template site.
type InvalidKeyError struct {
	Detail string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("fragment used as key must resolve to a string: %s", e.Detail)
}

func (e *InvalidKeyError) Is(target error) bool {
	_, ok := target.(*InvalidKeyError)
	return ok
}

// PathError annotates a resolution error with the evaluation path at which
// it was raised.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v at %s", e.Err, e.Path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// AtPath wraps err with the evaluation path, unless it is already annotated.
func AtPath(err error, path string) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return &PathError{Path: path, Err: err}
}

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeResolution ErrorType = "resolution"
	ErrorTypeOutput     ErrorType = "output"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInput,
		Message: message,
		Err:     err,
	}
}

// NewParsingError creates a new error related to JSON parsing
func NewParsingError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeParsing,
		Message: message,
		Err:     err,
	}
}

// NewConfigError creates a new error related to configuration loading
func NewConfigError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeConfig,
		Message: message,
		Err:     err,
	}
}

// NewResolutionError creates a new error related to fragment resolution
func NewResolutionError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeResolution,
		Message: message,
		Err:     err,
	}
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeOutput,
		Message: message,
		Err:     err,
	}
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("Resolution error: fragment '%s' was not found in the input", notFound.Fragment)
	}
	var circular *CircularDependencyError
	if errors.As(err, &circular) {
		return fmt.Sprintf("Resolution error: circular dependency: %s", strings.Join(circular.Cycle, " -> "))
	}
	var invalidKey *InvalidKeyError
	if errors.As(err, &invalidKey) {
		return fmt.Sprintf("Resolution error: %v", invalidKey)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeParsing:
			return fmt.Sprintf("JSON parsing error: %s", appErr.Message)
		case ErrorTypeConfig:
			return fmt.Sprintf("Configuration error: %s", appErr.Message)
		case ErrorTypeResolution:
			return fmt.Sprintf("Resolution error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	// Handle standard errors
	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide valid JSON data."
	}
	if errors.Is(err, ErrInvalidJSON) {
		return "Error: The input contains invalid JSON. Please check your JSON syntax."
	}
	if errors.Is(err, ErrMultipleJSON) {
		return "Error: Multiple JSON values found. Please provide a single JSON object."
	}
	if errors.Is(err, ErrNotAnObject) {
		return "Error: The fragments document must be a JSON object mapping names to values."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrFileEmpty) {
		return "Error: The specified file is empty. Please provide a file with valid JSON content."
	}
	if errors.Is(err, ErrNoInput) {
		return "Error: No input provided. Please specify a file with -i or pipe JSON data to stdin."
	}
	if errors.Is(err, ErrInvalidFilePath) {
		return "Error: Invalid file path. Please provide a valid file path."
	}

	// Generic error message for unknown errors
	return fmt.Sprintf("Error: %v", err)
}
