package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport failure talking to a rate provider
type NetworkError struct {
	Source    string // Provider that was being called
	Op        string // Operation that failed (e.g., "request", "read")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	if e.Source == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Source + " " + e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(source, op string, err error) *NetworkError {
	return &NetworkError{Source: source, Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(source, op string, err error) *NetworkError {
	return &NetworkError{Source: source, Op: op, Err: err, Retriable: false}
}

// BadResponseError means the provider answered, but the payload is unusable:
// missing success flag, unknown shape, or a requested rate that is absent
// or not a positive number.
type BadResponseError struct {
	Source string
	Reason string
}

func (e *BadResponseError) Error() string {
	return "bad response from " + e.Source + ": " + e.Reason
}

func (e *BadResponseError) IsRetriable() bool {
	return false
}

// NewBadResponse builds a BadResponseError with a formatted reason
func NewBadResponse(source, format string, args ...any) *BadResponseError {
	return &BadResponseError{Source: source, Reason: fmt.Sprintf(format, args...)}
}

// ProviderError is a non-2xx HTTP answer from a provider
type ProviderError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	msg := e.Source + " returned status " + strconv.Itoa(e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsRetriable reports true for throttling and server-side failures
func (e *ProviderError) IsRetriable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// AllSourcesFailedError aggregates the failure of every configured provider
type AllSourcesFailedError struct {
	From   string
	To     string
	Errors []error
}

func (e *AllSourcesFailedError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		parts = append(parts, err.Error())
	}
	msg := "all rate sources failed for " + e.From + "/" + e.To
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	}
	return msg
}

func (e *AllSourcesFailedError) Is(target error) bool {
	return target == ErrAllSourcesFailed
}

// IsRetriable reports true when at least one source failed transiently
func (e *AllSourcesFailedError) IsRetriable() bool {
	for _, err := range e.Errors {
		if IsRetriable(err) {
			return true
		}
	}
	return false
}

func (e *AllSourcesFailedError) Unwrap() []error {
	return e.Errors
}

// ValidationError is a local precondition failure on user input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrAllSourcesFailed matches any AllSourcesFailedError.
	ErrAllSourcesFailed = errors.New("all rate sources failed")

	// ErrValidation matches any ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownCurrency is returned for codes outside the catalog. Not retriable.
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrInvalidTheme is returned when a theme is neither dark nor light
	ErrInvalidTheme = errors.New("invalid theme")
)
