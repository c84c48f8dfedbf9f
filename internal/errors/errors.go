package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryDesign      ErrorCategory = "design"
	CategoryResponse    ErrorCategory = "response"
	CategoryCalibration ErrorCategory = "calibration"
	CategoryNumerical   ErrorCategory = "numerical"
	CategoryInternal    ErrorCategory = "internal"
)

// AppError wraps errbuilder errors with scoring-core context
type AppError struct {
	*errbuilder.ErrBuilder
	Category  ErrorCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	codeStr := "UNKNOWN_ERROR"
	switch e.ErrBuilder.ErrCode() {
	case errbuilder.CodeFailedPrecondition:
		if e.Category == CategoryCalibration {
			codeStr = "CALIBRATION_ERROR"
		} else {
			codeStr = "INSUFFICIENT_POOL"
		}
	case errbuilder.CodeInvalidArgument:
		codeStr = "INVALID_RESPONSE"
	case errbuilder.CodeInternal:
		codeStr = "NUMERICAL_ERROR"
	}

	return fmt.Sprintf("[%s] %s", codeStr, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		Timestamp:  time.Now(),
	}
}

// NewInsufficientPoolError signals that a dimension cannot fill quartet
// blocks. This is fatal at design time and never retried.
func NewInsufficientPoolError(dimension string, have, need int) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("dimension", errors.New(dimension))
	errorMap.Set("statement_count", fmt.Errorf("%d of %d required", have, need))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("dimension %q has %d statements, need at least %d", dimension, have, need)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryDesign)
}

// NewInsufficientDimensionsError signals that the pool does not span enough
// distinct dimensions to fill a quartet.
func NewInsufficientDimensionsError(have, need int) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("pool spans %d dimensions, need at least %d", have, need))

	return NewAppError(builder, CategoryDesign)
}

// NewInvalidResponseError rejects a single malformed forced-choice response.
// The estimator drops the response and proceeds with the remainder.
func NewInvalidResponseError(blockID, reason string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("block_id", errors.New(blockID))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(reason).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryResponse)
}

// NewCalibrationError creates a calibration load/validation error
func NewCalibrationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryCalibration)
}

// NewNumericalError creates an internal numerical error
func NewNumericalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryNumerical)
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal)
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("unexpected error").
		WithCause(err)

	return NewAppError(builder, CategoryInternal)
}

// IsCategory reports whether err is an AppError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Category == category
}

// LogError logs an error with appropriate level and context
func LogError(logger *slog.Logger, err *AppError) {
	if logger == nil || err == nil {
		return
	}

	logEntry := logger.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
	)

	switch err.Category {
	case CategoryResponse:
		logEntry.Warn(err.ErrBuilder.Msg)
	case CategoryDesign, CategoryCalibration:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(err.ErrBuilder.Msg, "cause", cause)
		} else {
			logEntry.Error(err.ErrBuilder.Msg)
		}
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(err.ErrBuilder.Msg, "cause", cause)
		} else {
			logEntry.Error(err.ErrBuilder.Msg)
		}
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	contextMsg := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", contextMsg, err)
}
