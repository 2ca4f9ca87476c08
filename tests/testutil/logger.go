package testutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/secretsrc/internal/logging"
)

// TestLogger captures the output of a logging.Logger so tests can check what providers
// log, and that secret values never reach the log.
//
// Example usage:
//
//	logger := testutil.NewTestLogger(t)
//	p := providers.NewEnvProvider(providers.WithEnvLogger(logger.Logger()))
//	// ...
//	logger.AssertNotContains(t, "password123")
type TestLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
	logger *logging.Logger
}

// NewTestLogger creates a TestLogger with debug output enabled and colors off.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()

	l := &TestLogger{}
	l.logger = logging.NewWithWriter(lockedWriter{l}, true, true)
	return l
}

// Logger returns the logging.Logger that writes into this TestLogger.
func (l *TestLogger) Logger() *logging.Logger {
	return l.logger
}

// GetOutput returns everything logged so far.
func (l *TestLogger) GetOutput() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buffer.String()
}

// Lines returns the logged lines, without the trailing empty line.
func (l *TestLogger) Lines() []string {
	out := strings.TrimRight(l.GetOutput(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// AssertContains asserts that the log output contains substr.
func (l *TestLogger) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, l.GetOutput(), substr)
}

// AssertNotContains asserts that the log output does not contain substr.
func (l *TestLogger) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, l.GetOutput(), substr)
}

type lockedWriter struct {
	l *TestLogger
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	return w.l.buffer.Write(p)
}
