// Package errors provides the structured error type shared by the HTTP API,
// the qualification service and the Zeebe job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"

	// Model-backed qualification. Both are recovered by the rule engine.
	ErrCodeExtraction   ErrorCode = "EXTRACTION_ERROR"
	ErrCodeModelService ErrorCode = "MODEL_SERVICE_FAILURE"
	ErrCodeModelTimeout ErrorCode = "MODEL_TIMEOUT"

	ErrCodePersistence  ErrorCode = "PERSISTENCE_FAILURE"
	ErrCodeLeadNotFound ErrorCode = "LEAD_NOT_FOUND"
	ErrCodeLockTimeout  ErrorCode = "LOCK_TIMEOUT"
	ErrCodeSearchFailed ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeCRMSyncFailed          ErrorCode = "CRM_SYNC_FAILED"

	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeBusinessRule    ErrorCode = "BUSINESS_RULE_VIOLATION"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.Cause }

// Is matches any StandardError carrying the same code, so the sentinels below
// work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation   = &StandardError{Code: ErrCodeValidation}
	ErrExtraction   = &StandardError{Code: ErrCodeExtraction}
	ErrModelService = &StandardError{Code: ErrCodeModelService}
	ErrModelTimeout = &StandardError{Code: ErrCodeModelTimeout}
	ErrPersistence  = &StandardError{Code: ErrCodePersistence}
	ErrLeadNotFound = &StandardError{Code: ErrCodeLeadNotFound}
	ErrLockTimeout  = &StandardError{Code: ErrCodeLockTimeout}
	ErrRateLimited  = &StandardError{Code: ErrCodeRateLimited}
	ErrUnauthorized = &StandardError{Code: ErrCodeAuthentication}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewValidationError reports a missing or malformed input field.
func NewValidationError(field, details string) *StandardError {
	e := newError(ErrCodeValidation, "Missing required fields", details, false, nil)
	e.Metadata = map[string]interface{}{"field": field}
	return e
}

// NewExtractionError reports a model answer without a usable JSON block.
func NewExtractionError(details string, cause error) *StandardError {
	return newError(ErrCodeExtraction, "Model response could not be parsed", details, false, cause)
}

func NewModelServiceError(provider string, cause error) *StandardError {
	e := newError(ErrCodeModelService, fmt.Sprintf("Model service %s failed", provider), detailsOf(cause), true, cause)
	e.Metadata = map[string]interface{}{"provider": provider}
	return e
}

func NewModelTimeoutError(provider string, cause error) *StandardError {
	e := newError(ErrCodeModelTimeout, fmt.Sprintf("Model service %s timed out", provider), detailsOf(cause), true, cause)
	e.Metadata = map[string]interface{}{"provider": provider}
	return e
}

// NewPersistenceError reports a failed store operation. The turn it belongs
// to must not be treated as committed.
func NewPersistenceError(operation string, cause error) *StandardError {
	e := newError(ErrCodePersistence, "Lead store operation failed", detailsOf(cause), true, cause)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

func NewLeadNotFoundError(email string) *StandardError {
	return newError(ErrCodeLeadNotFound, "Lead not found", fmt.Sprintf("no lead with email %s", email), false, nil)
}

func NewLockTimeoutError(key string, cause error) *StandardError {
	return newError(ErrCodeLockTimeout, "Lead is busy with another message", key, true, cause)
}

func NewSearchFailedError(cause error) *StandardError {
	return newError(ErrCodeSearchFailed, "Lead search failed", detailsOf(cause), true, cause)
}

func NewNotificationSendFailedError(channel string, cause error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, fmt.Sprintf("Failed to send %s notification", channel), detailsOf(cause), true, cause)
}

func NewCRMSyncFailedError(cause error) *StandardError {
	return newError(ErrCodeCRMSyncFailed, "Failed to sync lead to CRM", detailsOf(cause), true, cause)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false, nil)
}

func NewRateLimitedError(key string) *StandardError {
	return newError(ErrCodeRateLimited, "Too many requests", key, true, nil)
}

// NewBusinessRuleError creates a non-retryable business rule error.
func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false, nil)
}

// NewExternalServiceError creates a retryable external service error.
func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service %s failed", service), detailsOf(err), true, err)
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Operation timed out on %s", service), detailsOf(err), true, err)
}

// NewResourceNotFoundError creates a non-retryable not-found error.
func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes onto the error codes modelled in the
// lead qualification BPMN process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidation:             "LEAD_VALIDATION_FAILED",
	ErrCodePersistence:            "LEAD_PERSISTENCE_FAILED",
	ErrCodeLeadNotFound:           "LEAD_NOT_FOUND",
	ErrCodeLockTimeout:            "LEAD_BUSY",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
	ErrCodeCRMSyncFailed:          "CRM_SYNC_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePersistence,
		ErrCodeNotificationSendFailed,
		ErrCodeCRMSyncFailed,
		ErrCodeExternalService,
		ErrCodeSearchFailed:
		return 3

	case ErrCodeLockTimeout,
		ErrCodeTimeout:
		return 2

	case ErrCodeModelService,
		ErrCodeModelTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// As unwraps err to a StandardError if there is one in its chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first StandardError in err's chain.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if stdErr, ok := As(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HTTPStatus maps a code onto the status the HTTP API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeLeadNotFound, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeLockTimeout:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "MODEL") || strings.Contains(codeStr, "EXTRACTION"):
		return "AI"
	case strings.Contains(codeStr, "PERSISTENCE") || strings.Contains(codeStr, "LOCK"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "CRM"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "AUTH") || strings.Contains(codeStr, "RATE"):
		return "ACCESS"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
