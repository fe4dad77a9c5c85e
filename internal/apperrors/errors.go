package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrServiceNotFound = errors.New("service not found")

	ErrRequesterMismatch = errors.New("requester mismatch")
	ErrTargetMismatch    = errors.New("target mismatch")

	ErrTokenNotFound = errors.New("token not found or expired")
	ErrTokenMismatch = errors.New("token identity mismatch")

	ErrAccessDenied = errors.New("access denied")
)

// MissingParamsError enumerates the required issue parameters that were
// absent from a request. The field names are the client-facing ones, so the
// error may be rendered to the caller as is.
type MissingParamsError struct {
	Fields []string
}

func (e *MissingParamsError) Error() string {
	return fmt.Sprintf("missing parameters: %s", strings.Join(e.Fields, ", "))
}

// TokenMismatchError names the token fields that did not match the presented
// identities. The field list is for internal diagnostics only and must never
// reach the client.
type TokenMismatchError struct {
	Fields []string
}

func (e *TokenMismatchError) Error() string {
	return fmt.Sprintf("token mismatch on: %s", strings.Join(e.Fields, ", "))
}

func (e *TokenMismatchError) Unwrap() error {
	return ErrTokenMismatch
}
