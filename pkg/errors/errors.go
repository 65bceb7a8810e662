// Package errors defines AppError, the coded error returned across package
// boundaries and rendered by the API as {code, message, details}.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is "E" followed by four digits; the first digit groups the area.
type ErrorCode string

const (
	// 1xxx general
	ErrCodeInternal     ErrorCode = "E1000"
	ErrCodeValidation   ErrorCode = "E1001"
	ErrCodeNotFound     ErrorCode = "E1002"
	ErrCodeUnauthorized ErrorCode = "E1005"

	// 2xxx report assembly
	ErrCodeConfigurationGap ErrorCode = "E2001" // selection without mapping row or content id
	ErrCodeContentNotFound  ErrorCode = "E2002"
	ErrCodeContentInvalid   ErrorCode = "E2003" // content file exists but cannot be parsed
	ErrCodeEmptySelection   ErrorCode = "E2004" // carried by the error flag, never returned as an error
	ErrCodeStructure        ErrorCode = "E2005" // document tree contract violated
	ErrCodeRenderBackend    ErrorCode = "E2006" // external renderer (PDF) failed

	// 3xxx mapping tables
	ErrCodeMappingNotFound ErrorCode = "E3001"
	ErrCodeMappingInvalid  ErrorCode = "E3002"

	// 4xxx sessions
	ErrCodeSessionNotFound ErrorCode = "E4001"
	ErrCodeSessionInvalid  ErrorCode = "E4002"

	// 5xxx database
	ErrCodeDBConnection ErrorCode = "E5001"
	ErrCodeDBQuery      ErrorCode = "E5002"
	ErrCodeDBMigration  ErrorCode = "E5003"

	// 6xxx configuration
	ErrCodeConfigNotFound        ErrorCode = "E6001"
	ErrCodeConfigInvalid         ErrorCode = "E6002"
	ErrCodeConfigParse           ErrorCode = "E6003"
	ErrCodeAdminCredentialsEmpty ErrorCode = "E6004"
	ErrCodePasswordComplexity    ErrorCode = "E6005"
	ErrCodeJWTSecretInvalid      ErrorCode = "E6006"
)

// ExitCodeConfigValidation is the process exit code for invalid configuration
const ExitCodeConfigValidation = 2

var httpStatus = map[ErrorCode]int{
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeSessionNotFound:    http.StatusNotFound,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSessionInvalid:     http.StatusBadRequest,
	ErrCodePasswordComplexity: http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeConfigurationGap:   http.StatusUnprocessableEntity,
	ErrCodeEmptySelection:     http.StatusUnprocessableEntity,
	ErrCodeRenderBackend:      http.StatusBadGateway,
	ErrCodeMappingNotFound:    http.StatusServiceUnavailable,
}

// AppError is an error with a code and optional structured details
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	Details any       `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the code to a response status; unlisted codes are 500.
func (e *AppError) HTTPStatus() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetails attaches details and returns e
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// ErrInternal wraps err as an internal error
func ErrInternal(message string, err error) *AppError {
	return Wrap(ErrCodeInternal, message, err)
}

// ErrContentNotFound reports a (category, filename) pair that does not resolve to a file.
func ErrContentNotFound(category, filename string) *AppError {
	return New(ErrCodeContentNotFound,
		fmt.Sprintf("content file not found: %s/%s", category, filename)).
		WithDetails(map[string]string{"category": category, "filename": filename})
}

// IsAppError reports whether err's chain contains an AppError
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the code of the first AppError in err's chain, or "" if none.
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}
