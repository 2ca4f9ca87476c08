package logging_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/secretsrc/internal/logging"
)

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, true)

	logger.Info("resolved %d keys", 2)
	logger.Warn("slow backend")
	logger.Error("failed")
	logger.Debug("hidden")

	assert.Equal(t, "✓ resolved 2 keys\n⚠ slow backend\n✗ failed\n", buf.String())
	assert.False(t, logger.DebugEnabled())
}

func TestLoggerDebugAndColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, false)

	logger.Debug("querying %s", "prod/app")
	assert.Equal(t, "\033[36m[DEBUG]\033[0m querying prod/app\n", buf.String())
	assert.True(t, logger.DebugEnabled())
}

func TestSecretNeverPrints(t *testing.T) {
	t.Parallel()

	s := logging.Secret("super-secret-password")

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, true)
	logger.Info("value=%s", s)
	logger.Debug("value=%v", s)
	logger.Error("value=%#v", s)

	assert.NotContains(t, buf.String(), "super-secret-password")
	assert.Equal(t, "[REDACTED]", fmt.Sprint(s))
}

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		secrets []string
		want    string
	}{
		{"replaces all", "token=abcd1234 again abcd1234", []string{"abcd1234"}, "token=[REDACTED] again [REDACTED]"},
		{"short values kept", "id=abc", []string{"abc"}, "id=abc"},
		{"empty list", "nothing", nil, "nothing"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logging.Redact(tt.input, tt.secrets))
		})
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := logging.Discard()
	logger.Info("goes nowhere")
	assert.False(t, logger.DebugEnabled())
}
