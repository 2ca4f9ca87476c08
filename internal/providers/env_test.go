package providers_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsrc/internal/providers"
	"github.com/systmms/secretsrc/pkg/provider"
	"github.com/systmms/secretsrc/tests/testutil"
)

func staticEnviron(vars ...string) func() []string {
	return func() []string { return vars }
}

func TestEnvProviderContract(t *testing.T) {
	t.Parallel()

	testutil.RunProviderContractTests(t, testutil.ProviderTestCase{
		Name: "env",
		New: func() provider.Provider {
			return providers.NewEnvProvider(providers.WithEnviron(staticEnviron("DB_USER=admin", "DB_PASS=hunter2")))
		},
		URI:      "env://",
		TestData: map[string]string{"DB_USER": "admin", "DB_PASS": "hunter2"},
	})
}

func TestEnvProviderResolve(t *testing.T) {
	t.Parallel()

	environ := staticEnviron(
		"Home=/first",
		"HOME=/second",
		"APP_TOKEN=abc",
		"APP_Region=eu",
		"OTHER_TOKEN=nope",
		"EQUALS=a=b=c",
		"broken",
	)

	tests := []struct {
		name    string
		uri     string
		keys    []string
		want    map[string]string
		missing []string
	}{
		{
			name: "case-insensitive first variant wins",
			uri:  "env://",
			keys: []string{"home"},
			want: map[string]string{"home": "/first"},
		},
		{
			name: "case-sensitive exact",
			uri:  "env://?case-sensitive=true",
			keys: []string{"HOME", "Home"},
			want: map[string]string{"HOME": "/second", "Home": "/first"},
		},
		{
			name:    "case-sensitive misses other spelling",
			uri:     "env://?case-sensitive=true",
			keys:    []string{"home"},
			missing: []string{"home"},
		},
		{
			name: "prefix is stripped",
			uri:  "env://?prefix=APP_",
			keys: []string{"TOKEN", "region"},
			want: map[string]string{"TOKEN": "abc", "region": "eu"},
		},
		{
			name: "prefix matches in any case",
			uri:  "env://?prefix=app_",
			keys: []string{"TOKEN", "Region"},
			want: map[string]string{"TOKEN": "abc", "Region": "eu"},
		},
		{
			name:    "case-sensitive prefix is exact",
			uri:     "env://?prefix=app_&case-sensitive=true",
			keys:    []string{"TOKEN"},
			missing: []string{"TOKEN"},
		},
		{
			name: "case variant requests collapse",
			uri:  "env://",
			keys: []string{"home", "HOME"},
			want: map[string]string{"home": "/first"},
		},
		{
			name:    "prefix hides other variables",
			uri:     "env://?prefix=APP_",
			keys:    []string{"HOME"},
			missing: []string{"HOME"},
		},
		{
			name: "value keeps equals signs",
			uri:  "env://",
			keys: []string{"EQUALS"},
			want: map[string]string{"EQUALS": "a=b=c"},
		},
		{
			name:    "all missing keys are reported",
			uri:     "env://",
			keys:    []string{"HOME", "NOPE", "ALSO_NOPE"},
			missing: []string{"NOPE", "ALSO_NOPE"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := providers.NewEnvProvider(providers.WithEnviron(environ))
			require.NoError(t, p.Initialize(context.Background(), tt.uri))

			got, err := p.ResolveSecrets(context.Background(), tt.keys)
			if tt.missing != nil {
				assert.Nil(t, got)
				testutil.AssertKeysNotFound(t, err, tt.missing...)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvProviderDotenv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_USER=from-file\nDB_PASS=\"quoted secret\"\n# comment\n"), 0o600))

	p := providers.NewEnvProvider(providers.WithEnviron(staticEnviron("DB_USER=from-env")))
	require.NoError(t, p.Initialize(context.Background(), "env://?dotenv="+path))

	got, err := p.ResolveSecrets(context.Background(), []string{"DB_USER", "db_pass"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"DB_USER": "from-env", "db_pass": "quoted secret"}, got)
}

func TestEnvProviderReadsEnvironmentPerCall(t *testing.T) {
	t.Parallel()

	vars := []string{"TOKEN=one"}
	p := providers.NewEnvProvider(providers.WithEnviron(func() []string { return vars }))
	require.NoError(t, p.Initialize(context.Background(), "env://"))

	got, err := p.ResolveSecrets(context.Background(), []string{"TOKEN"})
	require.NoError(t, err)
	assert.Equal(t, "one", got["TOKEN"])

	vars = []string{"TOKEN=two"}
	got, err = p.ResolveSecrets(context.Background(), []string{"TOKEN"})
	require.NoError(t, err)
	assert.Equal(t, "two", got["TOKEN"])
}

func TestEnvProviderInitializeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		uri  string
		code provider.ErrorCode
	}{
		{"unparseable", "::bad", provider.CodeInvalidURI},
		{"wrong scheme", "awssm://?secrets=a", provider.CodeSchemeMismatch},
		{"bad boolean", "env://?case-sensitive=perhaps", provider.CodeInvalidOption},
		{"missing dotenv", "env://?dotenv=/does/not/exist/.env", provider.CodeInvalidOption},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := providers.NewEnvProvider(providers.WithEnviron(staticEnviron()))
			err := p.Initialize(context.Background(), tt.uri)
			cfgErr := testutil.AssertConfigError(t, err, tt.code)
			assert.Equal(t, "env", cfgErr.Provider)
		})
	}
}

func TestEnvProviderNeverLogsValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("API_KEY=sk-live-123456\n"), 0o600))

	logger := testutil.NewTestLogger(t)
	p := providers.NewEnvProvider(
		providers.WithEnviron(staticEnviron()),
		providers.WithEnvLogger(logger.Logger()),
	)
	require.NoError(t, p.Initialize(context.Background(), "env://?dotenv="+path))
	_, err := p.ResolveSecrets(context.Background(), []string{"API_KEY"})
	require.NoError(t, err)

	logger.AssertContains(t, "loaded 1 entries")
	logger.AssertContains(t, "1 distinct variables visible")
	testutil.AssertNoSecretLeak(t, logger.GetOutput(), []string{"sk-live-123456"})
}
