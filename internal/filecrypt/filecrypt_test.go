package filecrypt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsrc/internal/filecrypt"
)

// fastParams keeps the tests quick; production files use DefaultArgon2Params.
var fastParams = filecrypt.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	plaintext := []byte(`{"db_user":"admin","db_pass":"hunter2"}`)

	sealed, err := filecrypt.SealWithParams(plaintext, "pass phrase", fastParams)
	require.NoError(t, err)
	assert.True(t, filecrypt.IsSealed(sealed))
	assert.NotContains(t, string(sealed), "hunter2")

	opened, err := filecrypt.Open(sealed, "pass phrase")
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealIsRandomized(t *testing.T) {
	t.Parallel()

	a, err := filecrypt.SealWithParams([]byte("x"), "p", fastParams)
	require.NoError(t, err)
	b, err := filecrypt.SealWithParams([]byte("x"), "p", fastParams)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenFailures(t *testing.T) {
	t.Parallel()

	sealed, err := filecrypt.SealWithParams([]byte(`{"a":"b"}`), "right", fastParams)
	require.NoError(t, err)

	t.Run("wrong passphrase", func(t *testing.T) {
		t.Parallel()
		_, err := filecrypt.Open(sealed, "wrong")
		assert.ErrorIs(t, err, filecrypt.ErrDecrypt)
	})

	t.Run("tampered header", func(t *testing.T) {
		t.Parallel()
		tampered := append([]byte(nil), sealed...)
		tampered[12] ^= 0x01
		_, err := filecrypt.Open(tampered, "right")
		assert.Error(t, err)
	})

	t.Run("tampered body", func(t *testing.T) {
		t.Parallel()
		tampered := append([]byte(nil), sealed...)
		tampered[len(tampered)-1] ^= 0xFF
		_, err := filecrypt.Open(tampered, "right")
		assert.ErrorIs(t, err, filecrypt.ErrDecrypt)
	})

	t.Run("plain json", func(t *testing.T) {
		t.Parallel()
		_, err := filecrypt.Open([]byte(`{"a":"b"}`), "right")
		assert.ErrorIs(t, err, filecrypt.ErrNotSealed)
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		_, err := filecrypt.Open(sealed[:20], "right")
		assert.ErrorIs(t, err, filecrypt.ErrNotSealed)
	})
}

func TestSealRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := filecrypt.Seal([]byte("x"), "")
	assert.Error(t, err)

	_, err = filecrypt.SealWithParams([]byte("x"), "p", filecrypt.Argon2Params{})
	assert.Error(t, err)
}
