// Package errors turns provider and configuration failures into messages for people at
// a terminal. Library code returns the typed errors of pkg/provider; only the CLI calls
// Explain.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/systmms/secretsrc/pkg/provider"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents an error in the secretsrc.yaml file
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CommandError represents a failed external command, such as the pass CLI
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// WrapCommandNotFound wraps command not found errors with helpful suggestions
func WrapCommandNotFound(command string, err error) error {
	suggestions := map[string]string{
		"pass": "Install pass from https://www.passwordstore.org/",
		"gpg":  "Install GnuPG from https://gnupg.org/",
	}

	suggestion := suggestions[command]
	if suggestion == "" {
		suggestion = fmt.Sprintf("Make sure '%s' is installed and in your PATH", command)
	}

	msg := "command not found"
	if err != nil {
		msg = fmt.Sprintf("command not found: %v", err)
	}
	return CommandError{
		Command:    command,
		Message:    msg,
		Suggestion: suggestion,
	}
}

// Explain converts err into a UserError with a suggestion where one is known.
// Errors that already are user facing are returned unchanged.
func Explain(err error) error {
	if err == nil {
		return nil
	}

	var (
		userErr UserError
		cfgErr  ConfigError
		cmdErr  CommandError
	)
	if errors.As(err, &userErr) || errors.As(err, &cfgErr) || errors.As(err, &cmdErr) {
		return err
	}

	if provider.IsCancellation(err) {
		return UserError{
			Message:    "Operation cancelled",
			Suggestion: "Increase --timeout if the backend is slow",
			Err:        err,
		}
	}

	var pcfg provider.ConfigurationError
	if errors.As(err, &pcfg) {
		return UserError{
			Message:    fmt.Sprintf("%s provider is misconfigured", pcfg.Provider),
			Details:    pcfg.Error(),
			Suggestion: configSuggestion(pcfg),
			Err:        err,
		}
	}

	var nf provider.KeyNotFoundError
	if errors.As(err, &nf) {
		return UserError{
			Message:    fmt.Sprintf("%d secret(s) not found in %s", len(nf.Keys), nf.Provider),
			Details:    strings.Join(nf.Keys, ", "),
			Suggestion: notFoundSuggestion(nf.Provider),
			Err:        err,
		}
	}

	var notInit provider.NotInitializedError
	if errors.As(err, &notInit) {
		return UserError{
			Message: fmt.Sprintf("%s provider used before it was initialized", notInit.Provider),
			Err:     err,
		}
	}

	var be provider.BackendError
	if errors.As(err, &be) {
		return UserError{
			Message:    fmt.Sprintf("%s provider error during %s", be.Provider, be.Op),
			Details:    be.Err.Error(),
			Suggestion: backendSuggestion(be),
			Err:        err,
		}
	}

	return explainPlain(err)
}

func configSuggestion(e provider.ConfigurationError) string {
	switch e.Code {
	case provider.CodeUnknownProvider:
		return "Run 'secretsrc providers' to list the supported URI schemes"
	case provider.CodeInvalidURI:
		return "Use the form scheme://[location]?option=value&option=value"
	case provider.CodeMissingOption, provider.CodeInvalidOption, provider.CodeConflictingOptions:
		return fmt.Sprintf("Run 'secretsrc providers -v' to see the options of %s", e.Provider)
	case provider.CodeMissingCredentials:
		return credentialHint(e.Provider)
	case provider.CodeConnectivityFailed:
		return "Check network access to the backend and that the credentials are valid"
	case provider.CodeUnsupportedPlatform:
		return "Pick a provider that runs on this operating system"
	}
	return ""
}

func credentialHint(providerKey string) string {
	switch providerKey {
	case "awssm", "awsps":
		return "Pass both access-id and access-key, or neither to use the default AWS credential chain"
	case "azkv":
		return "client-secret auth needs tenant-id, client-id and client-secret"
	case "gcsm":
		return "Set credentials-file or configure Application Default Credentials with 'gcloud auth application-default login'"
	case "hcv":
		return "Pass a token, or both role-id and secret-id for AppRole"
	}
	return "Check the credential options of the provider"
}

func notFoundSuggestion(providerKey string) string {
	switch providerKey {
	case "awssm":
		return "Verify the secret names and region. List secrets with: 'aws secretsmanager list-secrets'"
	case "awsps":
		return "Verify the parameter paths. List them with: 'aws ssm get-parameters-by-path --path <path>'"
	case "env":
		return "Export the variables or add them to the dotenv file"
	case "hcv":
		return "Verify mount, kv-version and the secret paths"
	}
	return "Check key spelling; keys are case-insensitive unless case-sensitive=true"
}

func backendSuggestion(e provider.BackendError) string {
	errStr := e.Err.Error()

	switch e.Provider {
	case "awssm", "awsps":
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for secretsmanager:GetSecretValue or ssm:GetParametersByPath"
		}
		if strings.Contains(errStr, "ThrottlingException") {
			return "AWS rate limit exceeded. Wait a moment and try again"
		}
	case "hcv":
		if strings.Contains(errStr, "permission denied") {
			return "The Vault token lacks a policy for this path"
		}
	case "pass":
		if strings.Contains(errStr, "gpg") {
			return "Unlock your GPG key, e.g. by running 'pass show' once interactively"
		}
	}

	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and provider configuration"
	}
	return ""
}

// explainPlain covers failures that carry no provider type: file access and
// secretsrc.yaml syntax. Anything else is returned unchanged.
func explainPlain(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Check the path given to --config, dotenv= or path=",
			Err:        err,
		}
	case errors.Is(err, fs.ErrPermission):
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Secret files should be readable by the current user (mode 0600)",
			Err:        err,
		}
	case strings.Contains(err.Error(), "yaml:"):
		return ConfigError{
			Message:    "secretsrc.yaml is not valid YAML",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}
	return err
}
