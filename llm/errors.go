package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCategory classifies narrative generation failures for audit trails
type ErrorCategory string

const (
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryRateLimit      ErrorCategory = "rate_limit"
	ErrorCategoryDLP            ErrorCategory = "dlp"
	ErrorCategorySystem         ErrorCategory = "system"
	ErrorCategoryTimeout        ErrorCategory = "timeout"
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryModel          ErrorCategory = "model"
)

// NarrativeError wraps a narrator failure with its category and request id
type NarrativeError struct {
	Category  ErrorCategory
	Err       error
	RequestID string
	Timestamp time.Time
}

func (e *NarrativeError) Error() string {
	return fmt.Sprintf("[%s] %s (request: %s)", e.Category, e.Err.Error(), e.RequestID)
}

func (e *NarrativeError) Unwrap() error {
	return e.Err
}

func newNarrativeError(category ErrorCategory, err error, requestID string) *NarrativeError {
	return &NarrativeError{
		Category:  category,
		Err:       err,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

// categorizeError categorizes a tool call error
func categorizeError(err error) ErrorCategory {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "authentication"):
		return ErrorCategoryAuthentication
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests"):
		return ErrorCategoryRateLimit
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return ErrorCategoryTimeout
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection") || strings.Contains(errStr, "broken pipe"):
		return ErrorCategoryNetwork
	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "validation"):
		return ErrorCategoryValidation
	}
	return ErrorCategorySystem
}
