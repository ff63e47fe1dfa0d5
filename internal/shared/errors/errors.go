// Package errors provides application-level error types and the coded
// status catalog shared by every HTTP operation.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Status couples an application code with its default message and the
// HTTP status used when the error reaches the transport layer.
type Status struct {
	Code    string
	Message string
	HTTP    int
}

// Success is the fixed success triple used by the response envelope.
var Success = Status{Code: "S00000", Message: "success", HTTP: http.StatusOK}

// Credential and authorization statuses.
var (
	IdentifyInvalid       = Status{Code: "E00002", Message: "invalid user identity, please check the submitted credentials", HTTP: http.StatusUnauthorized}
	UserNotActive         = Status{Code: "E00003", Message: "account is not active", HTTP: http.StatusUnauthorized}
	LoginFailed           = Status{Code: "E00004", Message: "login failed, please contact the administrator", HTTP: http.StatusInternalServerError}
	InvalidateCredentials = Status{Code: "E00005", Message: "authentication failed, please sign in again", HTTP: http.StatusUnauthorized}
	ExpiredCredentials    = Status{Code: "E00006", Message: "authentication expired, please sign in again", HTTP: http.StatusUnauthorized}
	ScopeNotAuthorized    = Status{Code: "E00007", Message: "insufficient scope for this endpoint", HTTP: http.StatusForbidden}
	Forbidden             = Status{Code: "E00008", Message: "no permission for this method and path", HTTP: http.StatusForbidden}
	CacheUnavailable      = Status{Code: "E00011", Message: "cache system unavailable", HTTP: http.StatusInternalServerError}
)

// CRUD pipeline statuses. The 54x range keeps conflict and operation
// failures distinguishable from transport-level 5xx.
var (
	ItemNotFound         = Status{Code: "E00021", Message: "item not found", HTTP: http.StatusNotFound}
	MultipleResultsFound = Status{Code: "E00022", Message: "multiple results found for a unique key", HTTP: http.StatusConflict}
	PrimaryKeyExisted    = Status{Code: "E00023", Message: "unique value already exists", HTTP: 540}
	DataValidationFailed = Status{Code: "E00024", Message: "data validation failed", HTTP: http.StatusUnprocessableEntity}
	CreateFailed         = Status{Code: "E00025", Message: "create failed", HTTP: 541}
	UpdateFailed         = Status{Code: "E00026", Message: "update failed", HTTP: 542}
	DeleteFailed         = Status{Code: "E00027", Message: "delete failed", HTTP: 543}
	OnlySuperuser        = Status{Code: "E00028", Message: "operation restricted to superusers", HTTP: http.StatusForbidden}
)

// CommonError is the fallback for unclassified failures.
var CommonError = Status{Code: "E99999", Message: "internal server error, please contact the administrator", HTTP: http.StatusInternalServerError}

// AppError is an error carrying a catalog status and an optional detail
// that overrides the status message toward the client.
type AppError struct {
	Status Status
	Detail string
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Status.Code, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Status.Code, e.Status.Message)
}

// ClientMessage returns the message presented to the caller.
func (e *AppError) ClientMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Status.Message
}

// New creates an AppError for a catalog status.
func New(status Status) *AppError {
	return &AppError{Status: status}
}

// Newf creates an AppError with a formatted client-facing detail.
func Newf(status Status, format string, args ...any) *AppError {
	return &AppError{Status: status, Detail: fmt.Sprintf(format, args...)}
}

// GetAppError extracts an AppError from an error chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasStatus reports whether err is an AppError with the given status code.
func HasStatus(err error, status Status) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Status.Code == status.Code
}
