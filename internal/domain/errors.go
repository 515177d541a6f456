package domain

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryStorage    ErrorCategory = "storage"
	CategoryWorkflow   ErrorCategory = "workflow"
	CategoryInternal   ErrorCategory = "internal"
)

type ErrorContext struct {
	WorkflowID string
	TaskID     string
	Component  string
	Operation  string
	Details    map[string]interface{}
	File       string
	Line       int
	Function   string
}

// DomainError is the error type returned across package boundaries.
// Two DomainErrors match with errors.Is when their categories match.
type DomainError struct {
	Category   ErrorCategory
	Code       string
	Message    string
	Cause      error
	Retryable  bool
	UserFacing bool
	Context    ErrorContext
	Timestamp  time.Time
}

type ErrorOption func(*DomainError)

func WithRetryable(retryable bool) ErrorOption {
	return func(e *DomainError) { e.Retryable = retryable }
}

func WithCode(code string) ErrorOption {
	return func(e *DomainError) { e.Code = code }
}

func WithComponent(component string) ErrorOption {
	return func(e *DomainError) { e.Context.Component = component }
}

var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrClosed               = errors.New("store closed")
	ErrSubWorkflowIDMissing = errors.New("sub-workflow id not present on task")
)

func newDomainError(category ErrorCategory, message string, cause error, retryable, userFacing bool, opts ...ErrorOption) *DomainError {
	err := &DomainError{
		Category:   category,
		Message:    message,
		Cause:      cause,
		Retryable:  retryable,
		UserFacing: userFacing,
		Timestamp:  time.Now(),
		Context: ErrorContext{
			Details: make(map[string]interface{}),
		},
	}

	if pc, file, line, ok := runtime.Caller(2); ok {
		err.Context.File = file
		err.Context.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			err.Context.Function = fn.Name()
		}
	}

	err.Code = inferCode(category, message)
	for _, opt := range opts {
		opt(err)
	}
	return err
}

func NewValidationError(message string, cause error, opts ...ErrorOption) *DomainError {
	return newDomainError(CategoryValidation, message, cause, false, true, opts...)
}

func NewNotFoundError(message string, cause error, opts ...ErrorOption) *DomainError {
	if cause == nil {
		cause = ErrNotFound
	}
	return newDomainError(CategoryNotFound, message, cause, false, true, opts...)
}

func NewStorageError(message string, cause error, opts ...ErrorOption) *DomainError {
	return newDomainError(CategoryStorage, message, cause, true, false, opts...)
}

func NewWorkflowError(message string, cause error, opts ...ErrorOption) *DomainError {
	return newDomainError(CategoryWorkflow, message, cause, false, false, opts...)
}

func NewInternalError(message string, cause error, opts ...ErrorOption) *DomainError {
	return newDomainError(CategoryInternal, message, cause, false, false, opts...)
}

func inferCode(category ErrorCategory, message string) string {
	prefix := strings.ToUpper(string(category))
	msg := strings.ToLower(message)

	switch {
	case strings.Contains(msg, "required") || strings.Contains(msg, "missing"):
		return prefix + "_REQUIRED"
	case strings.Contains(msg, "not found"):
		return prefix + "_NOT_FOUND"
	case strings.Contains(msg, "terminal") || strings.Contains(msg, "state"):
		return prefix + "_STATE"
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "type"):
		return prefix + "_INVALID"
	default:
		return prefix + "_ERROR"
	}
}

func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", e.Category, e.Code, e.Message)
	if e.Context.Component != "" {
		fmt.Fprintf(&b, " (component=%s)", e.Context.Component)
	}
	if e.Context.WorkflowID != "" {
		fmt.Fprintf(&b, " (workflow=%s)", e.Context.WorkflowID)
	}
	if e.Context.TaskID != "" {
		fmt.Fprintf(&b, " (task=%s)", e.Context.TaskID)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if errors.As(target, &other) {
		return e.Category == other.Category
	}
	return false
}

func (e *DomainError) WithWorkflowID(id string) *DomainError {
	e.Context.WorkflowID = id
	return e
}

func (e *DomainError) WithTaskID(id string) *DomainError {
	e.Context.TaskID = id
	return e
}

func (e *DomainError) WithOperation(op string) *DomainError {
	e.Context.Operation = op
	return e
}

func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Context.Details == nil {
		e.Context.Details = make(map[string]interface{})
	}
	e.Context.Details[key] = value
	return e
}

func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

func GetErrorCategory(err error) ErrorCategory {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Category
	}
	return CategoryInternal
}

func IsRetryableError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	return GetErrorCategory(err) == CategoryNotFound
}

func IsValidation(err error) bool {
	return IsDomainError(err) && GetErrorCategory(err) == CategoryValidation
}
