package testutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsrc/pkg/provider"
)

// AssertNoSecretLeak verifies that none of the secret values appear in output.
//
// Example usage:
//
//	secrets := []string{"password123", "api-key-456"}
//	AssertNoSecretLeak(t, logger.GetOutput(), secrets)
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		assert.NotContains(t, output, secret,
			"Secret %q should never appear in output", secret)
	}
}

// AssertErrorContains verifies that an error occurred and contains a substring.
func AssertErrorContains(t *testing.T, err error, substr string) {
	t.Helper()

	assert.Error(t, err, "Expected an error to occur")
	if err != nil {
		assert.Contains(t, err.Error(), substr,
			"Error message should contain %q", substr)
	}
}

// AssertConfigError verifies that err is a provider.ConfigurationError with code and
// returns it for further checks.
func AssertConfigError(t *testing.T, err error, code provider.ErrorCode) provider.ConfigurationError {
	t.Helper()

	var cfgErr provider.ConfigurationError
	require.Truef(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %T: %v", err, err)
	assert.Equal(t, code, cfgErr.Code, "unexpected error code: %v", err)
	return cfgErr
}

// AssertKeysNotFound verifies that err is a provider.KeyNotFoundError naming exactly
// keys, in order.
func AssertKeysNotFound(t *testing.T, err error, keys ...string) {
	t.Helper()

	var nf provider.KeyNotFoundError
	require.Truef(t, errors.As(err, &nf), "expected KeyNotFoundError, got %T: %v", err, err)
	assert.Equal(t, keys, nf.Keys)
}

// AssertBackendError verifies that err is a provider.BackendError and returns it.
func AssertBackendError(t *testing.T, err error) provider.BackendError {
	t.Helper()

	var be provider.BackendError
	require.Truef(t, errors.As(err, &be), "expected BackendError, got %T: %v", err, err)
	return be
}

// AssertLinesContain verifies that specific lines are present in multi-line output.
//
// Example usage:
//
//	output := "line1\nline2\nline3"
//	AssertLinesContain(t, output, []string{"line1", "line3"})
func AssertLinesContain(t *testing.T, output string, expectedLines []string) {
	t.Helper()

	lines := strings.Split(output, "\n")

	for _, expected := range expectedLines {
		found := false
		for _, line := range lines {
			if strings.Contains(line, expected) {
				found = true
				break
			}
		}

		assert.True(t, found,
			"Expected to find line containing %q in output", expected)
	}
}
