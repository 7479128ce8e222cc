package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel values for the closed set of analyzer error kinds. Callers
// branch on these with errors.Is instead of matching message strings.
var (
	// ErrDecodeFailed indicates the audio decoder could not produce samples
	ErrDecodeFailed = errors.New("audio decode failed")

	// ErrInvalidFormat indicates a sample rate or channel layout mismatch
	ErrInvalidFormat = errors.New("invalid audio format")

	// ErrWindowOutOfRange indicates a time window that does not fit the recording
	ErrWindowOutOfRange = errors.New("window out of range")

	// ErrNoSpeechDetected indicates no sample exceeded the amplitude threshold
	ErrNoSpeechDetected = errors.New("no speech detected")

	// ErrEmptyInput indicates an empty window list or result sequence
	ErrEmptyInput = errors.New("empty input")
)

// Party identifiers carried by no-speech errors so callers can tell which
// side of the dialog was silent.
const (
	PartyAbonent = "abonent"
	PartyAgent   = "agent"
)

// Error represents a structured error with contextual fields and the
// location where it was created
type Error struct {
	// original is the underlying error
	original error

	// message is the error message
	message string

	// fields contains contextual information
	fields map[string]interface{}

	// stackPC is the program counter for the error's creation
	stackPC uintptr

	// file and line record where the error was created
	file string
	line int

	// Code is an optional error code for categorization
	Code string
}

// New creates a new structured error with the given message
func New(message string, fields ...map[string]interface{}) *Error {
	pc, file, line, _ := runtime.Caller(1)

	var fieldMap map[string]interface{}
	if len(fields) > 0 && fields[0] != nil {
		fieldMap = fields[0]
	} else {
		fieldMap = make(map[string]interface{})
	}

	return &Error{
		original: errors.New(message),
		message:  message,
		fields:   fieldMap,
		stackPC:  pc,
		file:     file,
		line:     line,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, message string, fields ...map[string]interface{}) *Error {
	if err == nil {
		return nil
	}

	pc, file, line, _ := runtime.Caller(1)

	var fieldMap map[string]interface{}
	if len(fields) > 0 && fields[0] != nil {
		fieldMap = fields[0]
	} else {
		fieldMap = make(map[string]interface{})
	}

	return &Error{
		original: err,
		message:  message,
		fields:   fieldMap,
		stackPC:  pc,
		file:     file,
		line:     line,
	}
}

// WithField adds a single field to the error context
func (e *Error) WithField(key string, value interface{}) *Error {
	if e == nil {
		return nil
	}

	// Copy so the original error stays immutable
	result := &Error{
		original: e.original,
		message:  e.message,
		fields:   make(map[string]interface{}, len(e.fields)+1),
		stackPC:  e.stackPC,
		file:     e.file,
		line:     e.line,
		Code:     e.Code,
	}

	for k, v := range e.fields {
		result.fields[k] = v
	}
	result.fields[key] = value

	return result
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil || e.original == nil {
		return ""
	}

	if e.message == "" {
		return e.original.Error()
	}

	return fmt.Sprintf("%s: %v", e.message, e.original)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.original
}

// Location returns the file:line where the error was created
func (e *Error) Location() string {
	if e == nil {
		return ""
	}

	parts := strings.Split(e.file, "/")
	filename := parts[len(parts)-1]

	return fmt.Sprintf("%s:%d", filename, e.line)
}

// GetFields returns the error's context fields
func (e *Error) GetFields() map[string]interface{} {
	if e == nil {
		return nil
	}
	return e.fields
}

// GetCode returns the error's code
func (e *Error) GetCode() string {
	if e == nil {
		return ""
	}
	return e.Code
}

// Is reports whether any error in err's tree matches target.
// Implements the errors.Is interface.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}

	if errors.Is(e.original, target) {
		return true
	}

	return e == target
}

// AsJSON returns the error in JSON-friendly map format
func (e *Error) AsJSON() map[string]interface{} {
	if e == nil {
		return nil
	}

	result := map[string]interface{}{
		"message":  e.Error(),
		"location": e.Location(),
	}

	if e.Code != "" {
		result["code"] = e.Code
	}

	if len(e.fields) > 0 {
		result["context"] = e.fields
	}

	return result
}

// NewDecodeError wraps a decoder failure for the given audio source
func NewDecodeError(cause error, path string, fields ...map[string]interface{}) *Error {
	fieldMap := make(map[string]interface{})
	if len(fields) > 0 && fields[0] != nil {
		fieldMap = fields[0]
	}
	fieldMap["path"] = path

	pc, file, line, _ := runtime.Caller(1)

	return &Error{
		original: fmt.Errorf("%w: %v", ErrDecodeFailed, cause),
		message:  fmt.Sprintf("failed to decode audio file: %s", path),
		fields:   fieldMap,
		stackPC:  pc,
		file:     file,
		line:     line,
		Code:     "DECODE_ERROR",
	}
}

// NewFormatError creates a new ErrInvalidFormat error with additional context
func NewFormatError(details string, fields ...map[string]interface{}) *Error {
	fieldMap := make(map[string]interface{})
	if len(fields) > 0 && fields[0] != nil {
		fieldMap = fields[0]
	}

	pc, file, line, _ := runtime.Caller(1)

	return &Error{
		original: ErrInvalidFormat,
		message:  fmt.Sprintf("invalid audio format: %s", details),
		fields:   fieldMap,
		stackPC:  pc,
		file:     file,
		line:     line,
		Code:     "FORMAT_ERROR",
	}
}

// NewRangeError creates a new ErrWindowOutOfRange error with additional context
func NewRangeError(details string, fields ...map[string]interface{}) *Error {
	fieldMap := make(map[string]interface{})
	if len(fields) > 0 && fields[0] != nil {
		fieldMap = fields[0]
	}

	pc, file, line, _ := runtime.Caller(1)

	return &Error{
		original: ErrWindowOutOfRange,
		message:  fmt.Sprintf("window out of range: %s", details),
		fields:   fieldMap,
		stackPC:  pc,
		file:     file,
		line:     line,
		Code:     "RANGE_ERROR",
	}
}

// NewNoSpeechDetected creates a new ErrNoSpeechDetected error recording
// which party's segment was silent
func NewNoSpeechDetected(party string, fields ...map[string]interface{}) *Error {
	fieldMap := make(map[string]interface{})
	if len(fields) > 0 && fields[0] != nil {
		fieldMap = fields[0]
	}
	fieldMap["party"] = party

	pc, file, line, _ := runtime.Caller(1)

	return &Error{
		original: ErrNoSpeechDetected,
		message:  fmt.Sprintf("no speech detected in %s segment", party),
		fields:   fieldMap,
		stackPC:  pc,
		file:     file,
		line:     line,
		Code:     "NO_SPEECH_DETECTED",
	}
}

// NewEmptyInput creates a new ErrEmptyInput error with additional context
func NewEmptyInput(details string, fields ...map[string]interface{}) *Error {
	fieldMap := make(map[string]interface{})
	if len(fields) > 0 && fields[0] != nil {
		fieldMap = fields[0]
	}

	pc, file, line, _ := runtime.Caller(1)

	return &Error{
		original: ErrEmptyInput,
		message:  fmt.Sprintf("empty input: %s", details),
		fields:   fieldMap,
		stackPC:  pc,
		file:     file,
		line:     line,
		Code:     "EMPTY_INPUT",
	}
}

// Party extracts the party identifier from a no-speech error, or returns
// an empty string if the error does not carry one. Wrapping layers without
// the field are walked through.
func Party(err error) string {
	for err != nil {
		var serr *Error
		if !errors.As(err, &serr) {
			return ""
		}
		if party, ok := serr.fields["party"].(string); ok {
			return party
		}
		err = serr.Unwrap()
	}
	return ""
}

// IsErrorType checks if an error is of a specific error type
func IsErrorType(err, target error) bool {
	return errors.Is(err, target)
}

// GetErrorCode extracts the error code from an error if it's a structured error
func GetErrorCode(err error) string {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.GetCode()
	}
	return ""
}

// GetErrorFields extracts fields from an error if it's a structured error
func GetErrorFields(err error) map[string]interface{} {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.GetFields()
	}
	return nil
}
