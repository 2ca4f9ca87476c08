package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a stable, machine readable reason attached to a ConfigurationError.
// Callers branch on it and may localize messages from it.
type ErrorCode string

const (
	CodeInvalidURI          ErrorCode = "InvalidURI"
	CodeSchemeMismatch      ErrorCode = "SchemeMismatch"
	CodeMissingOption       ErrorCode = "MissingOption"
	CodeInvalidOption       ErrorCode = "InvalidOption"
	CodeConflictingOptions  ErrorCode = "ConflictingOptions"
	CodeMissingCredentials  ErrorCode = "MissingCredentials"
	CodeConnectivityFailed  ErrorCode = "ConnectivityFailed"
	CodeUnsupportedPlatform ErrorCode = "UnsupportedPlatform"
	CodeUnknownProvider     ErrorCode = "UnknownProvider"
)

// ErrSecretExists is returned by SecretSetter.SetSecret when overwrite is false and the
// key is already present.
var ErrSecretExists = errors.New("secret already exists")

// ConfigurationError reports a malformed or incomplete configuration URI, or a failed
// connectivity probe during Initialize.
//
// Example:
//
//	return ConfigurationError{
//	    Provider: "awssm",
//	    Code:     CodeMissingCredentials,
//	    Field:    "access-key",
//	    Message:  "access-id was given without access-key",
//	}
type ConfigurationError struct {
	// Provider is the scheme key of the provider that rejected the configuration.
	Provider string

	// Code is the stable reason.
	Code ErrorCode

	// Field names the offending option, if there is one.
	Field string

	// Message is a human readable explanation.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e ConfigurationError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	b.WriteString("configuration error [")
	b.WriteString(string(e.Code))
	b.WriteString("]")
	if e.Field != "" {
		b.WriteString(" option '")
		b.WriteString(e.Field)
		b.WriteString("'")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e ConfigurationError) Unwrap() error {
	return e.Err
}

// NotInitializedError is returned when ResolveSecrets or SetSecret is called before a
// successful Initialize. It is a programming error and never retryable.
type NotInitializedError struct {
	Provider string
	Op       string
}

// Error implements the error interface.
func (e NotInitializedError) Error() string {
	return fmt.Sprintf("%s: %s called before Initialize", e.Provider, e.Op)
}

// KeyNotFoundError reports keys that no container or backend of the provider could
// resolve after an exhaustive search.
type KeyNotFoundError struct {
	Provider string

	// Keys are the keys still missing when the search ended, in request order.
	Keys []string
}

// Error implements the error interface.
func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("%s: secrets not found: %s", e.Provider, strings.Join(e.Keys, ", "))
}

// BackendError wraps a failure of the backend client (network, authentication,
// malformed response). The cause is kept untouched and available through Unwrap.
type BackendError struct {
	Provider string

	// Op names what was being done, e.g. "get secret value".
	Op string

	// Container is the container or key being queried, if any.
	Container string

	Err error
}

// Error implements the error interface.
func (e BackendError) Error() string {
	if e.Container != "" {
		return fmt.Sprintf("%s: %s %q: %v", e.Provider, e.Op, e.Container, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the backend client's error.
func (e BackendError) Unwrap() error {
	return e.Err
}

// IsCancellation reports whether err is a cancellation outcome rather than a failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsTyped reports whether err already is one of the error kinds of this package.
func IsTyped(err error) bool {
	var (
		cfgErr  ConfigurationError
		initErr NotInitializedError
		nfErr   KeyNotFoundError
		beErr   BackendError
	)
	return errors.As(err, &cfgErr) || errors.As(err, &initErr) ||
		errors.As(err, &nfErr) || errors.As(err, &beErr)
}

// Backend classifies an error returned by a backend client.
//
// If ctx is done the context error is returned, so a call aborted by cancellation is not
// reported as a backend failure. Cancellation errors and errors that are already typed
// pass through unchanged. Anything else is wrapped in BackendError.
func Backend(ctx context.Context, providerKey, op, container string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if IsCancellation(err) || IsTyped(err) {
		return err
	}
	return BackendError{
		Provider:  providerKey,
		Op:        op,
		Container: container,
		Err:       err,
	}
}

// ProbeFailed classifies an error of a connectivity probe run by Initialize.
//
// Like Backend, a done ctx or a cancellation error is returned as is. Anything else
// becomes a ConfigurationError with CodeConnectivityFailed.
func ProbeFailed(ctx context.Context, providerKey string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if IsCancellation(err) {
		return err
	}
	return ConfigurationError{
		Provider: providerKey,
		Code:     CodeConnectivityFailed,
		Message:  "backend probe failed",
		Err:      err,
	}
}
