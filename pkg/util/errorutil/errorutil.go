package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewTransitionDenied signals an illegal status change for the actor and
// current state. No state is mutated.
func NewTransitionDenied(message string, details map[string]any) error {
	return NewDomainError("TRANSITION_DENIED", message, http.StatusConflict, details)
}

// NewMissingArtifact signals a publish blocked by an absent flow artifact.
func NewMissingArtifact(details map[string]any) error {
	return NewDomainError("MISSING_ARTIFACT", "template has no uploaded flow artifact", http.StatusConflict, details)
}

// NewPermissionDenied signals an assignment or mutation the actor may not perform.
func NewPermissionDenied(message string) error {
	return NewDomainError("PERMISSION_DENIED", message, http.StatusForbidden, nil)
}

// NewAlreadyReverted rejects a second revert of the same invoice.
func NewAlreadyReverted(invoiceID string) error {
	return NewDomainError("ALREADY_REVERTED", "invoice already reverted", http.StatusConflict,
		map[string]any{"invoice_id": invoiceID})
}

// NewNothingToInvoice rejects invoice generation with an empty pending pool.
func NewNothingToInvoice(payeeID string) error {
	return NewDomainError("NOTHING_TO_INVOICE", "no active pending items for payee", http.StatusConflict,
		map[string]any{"payee_id": payeeID})
}

// NewExternalSyncFailure reports a failed catalog call. The local transition
// is already committed and is not rolled back; the template is drifted until
// a manual re-sync.
func NewExternalSyncFailure(templateID string, err error) error {
	return &DomainError{
		Code:       "EXTERNAL_SYNC_FAILED",
		Message:    "public catalog call failed; template drifted",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"template_id": templateID},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
