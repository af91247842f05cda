package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeDataAccess   ErrorType = "DATA_ACCESS_ERROR"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidTitle     ErrorCode = "INVALID_TITLE"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidType      ErrorCode = "INVALID_TYPE"
	ErrCodeInvalidPriority  ErrorCode = "INVALID_PRIORITY"
	ErrCodeCommentRequired  ErrorCode = "COMMENT_REQUIRED"

	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeStatusConflict      ErrorCode = "STATUS_CONFLICT"
	ErrCodeNotApplicant        ErrorCode = "NOT_APPLICANT"
	ErrCodeCannotModify        ErrorCode = "CANNOT_MODIFY_APPLICATION"

	ErrCodeNotificationNotFound ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeDocumentNotFound     ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeDepartmentNotFound   ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeInvitationNotFound   ErrorCode = "INVITATION_NOT_FOUND"
	ErrCodeMembershipNotFound   ErrorCode = "MEMBERSHIP_NOT_FOUND"
	ErrCodeSettingsNotFound     ErrorCode = "SETTINGS_NOT_FOUND"
	ErrCodeDepartmentInactive   ErrorCode = "DEPARTMENT_INACTIVE"
	ErrCodeDepartmentFull       ErrorCode = "DEPARTMENT_FULL"

	ErrCodeRoleRequired       ErrorCode = "ROLE_REQUIRED"
	ErrCodePlanRequired       ErrorCode = "PLAN_REQUIRED"
	ErrCodeUnauthorizedAccess ErrorCode = "UNAUTHORIZED_ACCESS"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeSessionRevoked     ErrorCode = "SESSION_REVOKED"

	ErrCodeDataAccess ErrorCode = "DATA_ACCESS"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if fieldErrors, ok := e.Details.(FieldErrors); ok && len(fieldErrors.Errors) > 0 {
			return fieldErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if fieldErrors, ok := e.Details.(FieldErrors); ok {
			if len(fieldErrors.Errors) == 1 {
				return fieldErrors.Errors[0].Message
			} else if len(fieldErrors.Errors) > 1 {
				messages := make([]string, len(fieldErrors.Errors))
				for i, err := range fieldErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type FieldErrors struct {
	Errors []FieldError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: FieldErrors{
			Errors: []FieldError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewAuthorizationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewDataAccessError wraps a raw store error so it never crosses the
// repository boundary untranslated.
func NewDataAccessError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDataAccess,
		Code:       ErrCodeDataAccess,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrApplicationNotFound  = NewNotFoundError("Application not found", ErrCodeApplicationNotFound)
	ErrNotificationNotFound = NewNotFoundError("Notification not found", ErrCodeNotificationNotFound)
	ErrDocumentNotFound     = NewNotFoundError("Document not found", ErrCodeDocumentNotFound)
	ErrDepartmentNotFound   = NewNotFoundError("Department not found", ErrCodeDepartmentNotFound)
	ErrInvitationNotFound   = NewNotFoundError("Invitation not found", ErrCodeInvitationNotFound)
	ErrMembershipNotFound   = NewNotFoundError("Membership not found", ErrCodeMembershipNotFound)

	ErrInvalidTransition  = NewValidationError("invalid status for this action", ErrCodeInvalidTransition)
	ErrCommentRequired    = NewValidationError("comment is required for this action", ErrCodeCommentRequired)
	ErrCannotModify       = NewValidationError("application can only be modified while in draft", ErrCodeCannotModify)
	ErrStatusConflict     = NewConflictError("application was modified concurrently", ErrCodeStatusConflict)
	ErrUnauthorizedAccess = NewAuthorizationError("unauthorized access to resource", ErrCodeUnauthorizedAccess)
	ErrRoleRequired       = NewAuthorizationError("insufficient role for this action", ErrCodeRoleRequired)
	ErrPlanRequired       = NewAuthorizationError("feature not available on current plan", ErrCodePlanRequired)
	ErrDepartmentInactive = NewValidationError("department is not active", ErrCodeDepartmentInactive)
	ErrDepartmentFull     = NewValidationError("department has reached its member capacity", ErrCodeDepartmentFull)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewAuthorizationError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrSessionRevoked     = NewUnauthorizedError("Session has been revoked", ErrCodeSessionRevoked)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
