// Package errors provides structured error handling for reservoir.
//
// Every failure the pool reports is an *Error carrying an ErrorType, a
// message, optional details and the call stack at the point of creation.
// Callers branch on the type, either with IsType or with the standard
// library's errors.Is against one of the exported sentinels:
//
//	entity, err := p.Retrieve()
//	if errors.Is(err, rerrors.ErrPoolExhausted) {
//	    // free something, or switch the pool to a recycle policy
//	}
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypePoolExhausted is returned when a retrieval finds nothing available
	// and the recycle policy cannot reclaim an in-use entity
	ErrorTypePoolExhausted ErrorType = "pool_exhausted"
	// ErrorTypeInvalidState is returned when an operation is not allowed in the
	// pool's current lifecycle state
	ErrorTypeInvalidState ErrorType = "invalid_state"
	// ErrorTypeUntrackedReturn is returned when an entity handed back to the pool
	// is not currently in use
	ErrorTypeUntrackedReturn ErrorType = "untracked_return"
	// ErrorTypeEmptyStorage is returned by a storage strategy with nothing to give
	ErrorTypeEmptyStorage ErrorType = "empty_storage"
	// ErrorTypeFactory represents a failure of a caller supplied factory
	ErrorTypeFactory ErrorType = "factory"
)

// Sentinels for errors.Is. They match any *Error of the same type.
var (
	ErrPoolExhausted   = &Error{Type: ErrorTypePoolExhausted, Message: "pool exhausted"}
	ErrInvalidState    = &Error{Type: ErrorTypeInvalidState, Message: "invalid pool state"}
	ErrUntrackedReturn = &Error{Type: ErrorTypeUntrackedReturn, Message: "entity is not in use"}
	ErrEmptyStorage    = &Error{Type: ErrorTypeEmptyStorage, Message: "storage is empty"}
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same type. It lets the
// package sentinels be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the type of the outermost *Error in err's chain, or
// ErrorTypeInternal when err carries none.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
