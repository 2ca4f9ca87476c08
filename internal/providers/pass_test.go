package providers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/secretsrc/internal/errors"
	"github.com/systmms/secretsrc/internal/providers"
	"github.com/systmms/secretsrc/pkg/provider"
	"github.com/systmms/secretsrc/tests/testutil"
)

func newPass(exec *testutil.MockCommandExecutor) *providers.PassProvider {
	return providers.NewPassProvider(
		providers.WithPassExecutor(exec),
		providers.WithPassGOOS("linux"),
	)
}

func TestPassProviderContract(t *testing.T) {
	t.Parallel()

	exec := testutil.NewMockCommandExecutor()
	exec.AddOutput("pass ls", "Password Store\n└── work\n")
	exec.AddOutput("pass show work/api-key", "sk-123\n")
	exec.AddOutput("pass show work/db-pass", "hunter2\nuser: admin\n")
	exec.AddErrorResponse("pass show work/secretsrc-missing-", "Error: entry is not in the password store.\n")

	testutil.RunProviderContractTests(t, testutil.ProviderTestCase{
		Name:     "pass",
		New:      func() provider.Provider { return newPass(exec) },
		URI:      "pass://?prefix=work",
		TestData: map[string]string{"api-key": "sk-123", "db-pass": "hunter2"},
	})
}

func TestPassProviderResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		entry     string
		output    string
		wantValue string
	}{
		{
			name:      "simple password",
			entry:     "mypassword",
			output:    "secretpassword123\n",
			wantValue: "secretpassword123",
		},
		{
			name:      "password with metadata",
			entry:     "email/gmail",
			output:    "mypassword\nuser: testuser@gmail.com\nurl: https://gmail.com\n",
			wantValue: "mypassword",
		},
		{
			name:      "windows line ending",
			entry:     "crlf",
			output:    "value\r\nnext\r\n",
			wantValue: "value",
		},
		{
			name:      "no trailing newline",
			entry:     "bare",
			output:    "value",
			wantValue: "value",
		},
		{
			name:      "special characters",
			entry:     "special",
			output:    "p@$$w0rd!#$%^&*()\n",
			wantValue: "p@$$w0rd!#$%^&*()",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := testutil.NewMockCommandExecutor()
			exec.AddOutput("pass show "+tt.entry, tt.output)

			p := newPass(exec)
			require.NoError(t, p.Initialize(context.Background(), "pass://"))

			got, err := p.ResolveSecrets(context.Background(), []string{tt.entry})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{tt.entry: tt.wantValue}, got)
		})
	}
}

func TestPassProviderOptionsReachTheCLI(t *testing.T) {
	t.Parallel()

	exec := testutil.NewMockCommandExecutor()
	exec.AddOutput("pass show team/db/user", "admin\n")

	p := newPass(exec)
	require.NoError(t, p.Initialize(context.Background(), "pass://?password-store=/srv/store&prefix=/team/db/"))

	got, err := p.ResolveSecrets(context.Background(), []string{"user"})
	require.NoError(t, err)
	assert.Equal(t, "admin", got["user"])

	calls := exec.Calls("pass")
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"ls"}, calls[0].Args)
	assert.Equal(t, []string{"show", "team/db/user"}, calls[1].Args)
	for _, call := range calls {
		assert.Equal(t, []string{"PASSWORD_STORE_DIR=/srv/store"}, call.Env)
	}
}

func TestPassProviderMissingEntries(t *testing.T) {
	t.Parallel()

	exec := testutil.NewMockCommandExecutor()
	exec.AddOutput("pass show present", "v\n")
	exec.AddErrorResponse("pass show a", "Error: a is not in the password store.\n")
	exec.AddErrorResponse("pass show b", "Error: b is not in the password store.\n")

	p := newPass(exec)
	require.NoError(t, p.Initialize(context.Background(), "pass://"))

	got, err := p.ResolveSecrets(context.Background(), []string{"a", "present", "b"})
	assert.Nil(t, got)
	testutil.AssertKeysNotFound(t, err, "a", "b")
}

func TestPassProviderKeysStayInScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		uri  string
		key  string
	}{
		{name: "parent of prefix", uri: "pass://?prefix=work", key: "../personal/bank"},
		{name: "prefix itself", uri: "pass://?prefix=work", key: "."},
		{name: "sibling via nested dots", uri: "pass://?prefix=work/team", key: "db/../../other"},
		{name: "outside the store", uri: "pass://", key: "../etc/passwd"},
		{name: "absolute path", uri: "pass://", key: "/etc/passwd"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := testutil.NewMockCommandExecutor()
			p := newPass(exec)
			require.NoError(t, p.Initialize(context.Background(), tt.uri))

			got, err := p.ResolveSecrets(context.Background(), []string{tt.key})
			assert.Nil(t, got)
			testutil.AssertKeysNotFound(t, err, tt.key)

			calls := exec.Calls("pass")
			require.Len(t, calls, 1)
			assert.Equal(t, []string{"ls"}, calls[0].Args, "no entry is shown")
		})
	}

	t.Run("nested key inside prefix", func(t *testing.T) {
		t.Parallel()

		exec := testutil.NewMockCommandExecutor()
		exec.AddOutput("pass show work/db/pass", "hunter2\n")
		p := newPass(exec)
		require.NoError(t, p.Initialize(context.Background(), "pass://?prefix=work"))

		got, err := p.ResolveSecrets(context.Background(), []string{"db/x/../pass"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"db/x/../pass": "hunter2"}, got)
	})
}

func TestPassProviderDecryptFailure(t *testing.T) {
	t.Parallel()

	exec := testutil.NewMockCommandExecutor()
	exec.AddErrorResponse("pass show locked", "gpg: decryption failed: No secret key\n")

	p := newPass(exec)
	require.NoError(t, p.Initialize(context.Background(), "pass://"))

	_, err := p.ResolveSecrets(context.Background(), []string{"locked"})
	be := testutil.AssertBackendError(t, err)
	assert.Equal(t, "locked", be.Container)

	var cmdErr dserrors.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Contains(t, cmdErr.Message, "No secret key")
}

func TestPassProviderInitializeErrors(t *testing.T) {
	t.Parallel()

	t.Run("not installed", func(t *testing.T) {
		t.Parallel()

		exec := testutil.NewMockCommandExecutor()
		exec.AddNotFound("pass ls")

		err := newPass(exec).Initialize(context.Background(), "pass://")
		testutil.AssertConfigError(t, err, provider.CodeConnectivityFailed)

		var cmdErr dserrors.CommandError
		require.True(t, errors.As(err, &cmdErr))
		assert.NotEmpty(t, cmdErr.Suggestion)
	})

	t.Run("store not initialized", func(t *testing.T) {
		t.Parallel()

		exec := testutil.NewMockCommandExecutor()
		exec.AddErrorResponse("pass ls", "Error: password store is empty. Try \"pass init\".\n")

		err := newPass(exec).Initialize(context.Background(), "pass://")
		testutil.AssertConfigError(t, err, provider.CodeConnectivityFailed)
	})

	t.Run("windows", func(t *testing.T) {
		t.Parallel()

		exec := testutil.NewMockCommandExecutor()
		p := providers.NewPassProvider(providers.WithPassExecutor(exec), providers.WithPassGOOS("windows"))

		assert.False(t, p.IsSupported())
		err := p.Initialize(context.Background(), "pass://")
		testutil.AssertConfigError(t, err, provider.CodeUnsupportedPlatform)
		assert.Zero(t, exec.CallCount())
	})
}
