package providers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsrc/internal/providers"
	"github.com/systmms/secretsrc/pkg/provider"
	"github.com/systmms/secretsrc/tests/fakes"
	"github.com/systmms/secretsrc/tests/testutil"
)

func newAWSSSM(client *fakes.FakeSSMClient) *providers.AWSSSMProvider {
	return providers.NewAWSSSMProvider(
		providers.WithSSMClient(client),
		providers.WithSTSClient(&fakes.FakeSTSClient{}),
	)
}

func TestAWSSSMProviderContract(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSSMClient()
	client.AddParameter("/prod/app/DB_USER", "admin")
	client.AddParameter("/prod/shared/DB_PASS", "hunter2")

	testutil.RunProviderContractTests(t, testutil.ProviderTestCase{
		Name:     "awsps",
		New:      func() provider.Provider { return newAWSSSM(client) },
		URI:      "awsps://?paths=/prod/app,/prod/shared&region=eu-west-1",
		TestData: map[string]string{"DB_USER": "admin", "DB_PASS": "hunter2"},
	})
}

func TestAWSSSMProviderPagesAndFallback(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSSMClient()
	client.PageSize = 2
	client.AddParameter("/app/one", "1")
	client.AddParameter("/app/two", "2")
	client.AddParameter("/app/three", "3")
	client.AddParameter("/app/nested/deep", "hidden")
	client.AddParameter("/shared/four", "4")

	p := newAWSSSM(client)
	require.NoError(t, p.Initialize(context.Background(), "awsps://?paths=/app,/shared&region=us-east-1"))

	got, err := p.ResolveSecrets(context.Background(), []string{"ONE", "three", "four"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ONE": "1", "three": "3", "four": "4"}, got)
	assert.Equal(t, []string{"/app", "/app", "/shared"}, client.Calls(), "two pages of /app, then /shared")

	_, err = p.ResolveSecrets(context.Background(), []string{"deep"})
	testutil.AssertKeysNotFound(t, err, "deep")
}

func TestAWSSSMProviderShortCircuits(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSSMClient()
	client.AddParameter("/first/a", "from-first")
	client.AddParameter("/second/a", "from-second")

	p := newAWSSSM(client)
	require.NoError(t, p.Initialize(context.Background(), "awsps://?paths=/first,/second&region=us-east-1"))

	got, err := p.ResolveSecrets(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "from-first", got["a"])
	assert.Equal(t, []string{"/first"}, client.Calls())
}

func TestAWSSSMProviderBackendError(t *testing.T) {
	t.Parallel()

	denied := errors.New("AccessDeniedException")
	client := fakes.NewFakeSSMClient()
	client.Errors["/locked"] = denied

	p := newAWSSSM(client)
	require.NoError(t, p.Initialize(context.Background(), "awsps://?paths=/locked&region=us-east-1"))

	_, err := p.ResolveSecrets(context.Background(), []string{"a"})
	be := testutil.AssertBackendError(t, err)
	assert.Equal(t, "/locked", be.Container)
	assert.ErrorIs(t, err, denied)
}

func TestAWSSSMProviderInitializeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		uri   string
		code  provider.ErrorCode
		field string
	}{
		{"no paths", "awsps://?region=us-east-1", provider.CodeMissingOption, "paths"},
		{"relative path", "awsps://?paths=app&region=us-east-1", provider.CodeInvalidOption, "paths"},
		{"wrong scheme", "awssm://?paths=/app", provider.CodeSchemeMismatch, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := newAWSSSM(fakes.NewFakeSSMClient()).Initialize(context.Background(), tt.uri)
			cfgErr := testutil.AssertConfigError(t, err, tt.code)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
