package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeParserNotFound means no parser is registered for a domain.
	// Terminal: callers must not retry without operator intervention.
	ErrorTypeParserNotFound ErrorType = "parser_not_found"
	// ErrorTypePriceNotFound means the price could not be extracted from a page
	ErrorTypePriceNotFound ErrorType = "price_not_found"
	// ErrorTypeNetwork represents fetch/transport errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeValidation represents validation errors (e.g. wrong parser invoked for a URL)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// TrackerError represents a tracking-specific error
type TrackerError struct {
	Type    ErrorType
	Domain  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *TrackerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Domain, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Domain, e.Message)
}

// Unwrap returns the underlying error
func (e *TrackerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *TrackerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// New creates a new TrackerError
func New(errType ErrorType, domain, message string, err error) *TrackerError {
	return &TrackerError{
		Type:    errType,
		Domain:  domain,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewParserNotFound creates a new parser-not-found error for a domain
func NewParserNotFound(domain string) *TrackerError {
	return New(ErrorTypeParserNotFound, domain, "no parser found for domain", nil)
}

// NewPriceNotFound creates a new price-not-found error
func NewPriceNotFound(domain, message string) *TrackerError {
	return New(ErrorTypePriceNotFound, domain, message, nil)
}

// NewNetwork creates a new network error
func NewNetwork(domain, message string, err error) *TrackerError {
	return New(ErrorTypeNetwork, domain, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(domain, message string, err error) *TrackerError {
	return New(ErrorTypeParsing, domain, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(domain string, wait time.Duration) *TrackerError {
	return New(ErrorTypeRateLimit, domain, fmt.Sprintf("rate limited for %v", wait), nil)
}

// NewValidation creates a new validation error
func NewValidation(domain, message string) *TrackerError {
	return New(ErrorTypeValidation, domain, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *TrackerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err is a TrackerError of the given type
func IsType(err error, errType ErrorType) bool {
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Type == errType
	}
	return false
}
