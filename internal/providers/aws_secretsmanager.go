package providers

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/pkg/provider"
)

const awsSecretsManagerKey = "awssm"

// SecretsManagerClientAPI defines the interface for AWS Secrets Manager operations.
// This allows for mocking in tests.
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManagerProvider resolves keys from AWS Secrets Manager. Every secret named
// in the secrets option is a container holding a JSON object; they are searched in order.
type AWSSecretsManagerProvider struct {
	logger    *logging.Logger
	client    SecretsManagerClientAPI
	stsClient STSClientAPI

	initialized bool
	search      resolve.Search
}

// awsSecretsManagerOptions are the URI options of the awssm scheme.
type awsSecretsManagerOptions struct {
	Secrets []string   `uri:"secrets"`
	AWS     awsOptions `uri:",squash"`
}

// AWSOption configures the AWS adapters.
type AWSOption func(*awsClients)

type awsClients struct {
	logger         *logging.Logger
	secretsManager SecretsManagerClientAPI
	ssm            SSMClientAPI
	sts            STSClientAPI
}

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing).
func WithSecretsManagerClient(client SecretsManagerClientAPI) AWSOption {
	return func(c *awsClients) {
		c.secretsManager = client
	}
}

// WithSSMClient sets a custom SSM client (for testing).
func WithSSMClient(client SSMClientAPI) AWSOption {
	return func(c *awsClients) {
		c.ssm = client
	}
}

// WithSTSClient sets a custom STS client used for the credential probe.
func WithSTSClient(client STSClientAPI) AWSOption {
	return func(c *awsClients) {
		c.sts = client
	}
}

// WithAWSLogger sets the logger.
func WithAWSLogger(logger *logging.Logger) AWSOption {
	return func(c *awsClients) {
		c.logger = logger
	}
}

func newAWSClients(opts []AWSOption) awsClients {
	c := awsClients{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NewAWSSecretsManagerProvider creates an uninitialized Secrets Manager provider.
// Clients given as options are used instead of ones built from the URI.
func NewAWSSecretsManagerProvider(opts ...AWSOption) *AWSSecretsManagerProvider {
	c := newAWSClients(opts)
	return &AWSSecretsManagerProvider{
		logger:    c.logger,
		client:    c.secretsManager,
		stsClient: c.sts,
	}
}

// Identity implements provider.Provider.
func (p *AWSSecretsManagerProvider) Identity() provider.Identity {
	return provider.Identity{
		Key:         awsSecretsManagerKey,
		DisplayName: "AWS Secrets Manager",
		Description: "Reads keys from JSON secrets in AWS Secrets Manager, searching the listed secrets in order.",
	}
}

// Options implements provider.Provider.
func (p *AWSSecretsManagerProvider) Options() []provider.OptionDescriptor {
	return append([]provider.OptionDescriptor{{
		Name:             "secrets",
		Type:             provider.OptionString,
		ShortDescription: "Comma separated secret names or ARNs, searched in order",
		LongDescription:  "Each secret holds a JSON object. A secret whose value is not an object provides a single key named like the secret.",
	}}, awsOptionDescriptors()...)
}

// Initialize implements provider.Provider.
func (p *AWSSecretsManagerProvider) Initialize(ctx context.Context, configURI string) error {
	var opts awsSecretsManagerOptions
	if _, err := configuri.Load(awsSecretsManagerKey, configURI, &opts); err != nil {
		return err
	}
	if len(opts.Secrets) == 0 {
		return missingOption(awsSecretsManagerKey, "secrets", "at least one secret name is required")
	}
	if err := opts.AWS.validate(awsSecretsManagerKey); err != nil {
		return err
	}

	client, stsClient := p.client, p.stsClient
	if client == nil || stsClient == nil {
		cfg, err := loadAWSConfig(ctx, awsSecretsManagerKey, opts.AWS)
		if err != nil {
			return err
		}
		if client == nil {
			client = secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
				if opts.AWS.Endpoint != "" {
					o.BaseEndpoint = aws.String(opts.AWS.Endpoint)
				}
			})
		}
		if stsClient == nil {
			stsClient = newSTSClient(cfg, opts.AWS.Endpoint)
		}
	}

	arn, err := probeAWS(ctx, awsSecretsManagerKey, stsClient)
	if err != nil {
		return err
	}
	p.logger.Debug("awssm: authenticated as %s", arn)

	p.client = client
	p.stsClient = stsClient
	p.search = resolve.Search{
		Provider:      awsSecretsManagerKey,
		Containers:    opts.Secrets,
		CaseSensitive: opts.AWS.CaseSensitive,
		Fetch:         p.fetch,
	}
	p.initialized = true
	return nil
}

// ResolveSecrets implements provider.Provider.
func (p *AWSSecretsManagerProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if !p.initialized {
		return nil, provider.NotInitializedError{Provider: awsSecretsManagerKey, Op: "ResolveSecrets"}
	}
	return p.search.Run(ctx, keys)
}

func (p *AWSSecretsManagerProvider) fetch(ctx context.Context, secretName string) ([]resolve.Pair, error) {
	result, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		if isNotFoundError(err) {
			p.logger.Debug("awssm: secret %s does not exist, skipping", secretName)
			return nil, nil
		}
		return nil, err
	}

	var text string
	switch {
	case result.SecretString != nil:
		text = *result.SecretString
	case result.SecretBinary != nil:
		if !utf8.Valid(result.SecretBinary) {
			return nil, fmt.Errorf("binary secret is not valid UTF-8")
		}
		text = string(result.SecretBinary)
	}

	pairs := resolve.ParsePayload(secretName, text)
	p.logger.Debug("awssm: secret %s holds %d keys", secretName, len(pairs))
	return pairs, nil
}

func isNotFoundError(err error) bool {
	var resourceNotFound *types.ResourceNotFoundException
	return errors.As(err, &resourceNotFound)
}
