package providers

import (
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/pkg/provider"
)

const awsParameterStoreKey = "awsps"

// SSMClientAPI defines the interface for AWS SSM Parameter Store operations.
// This allows for mocking in tests.
type SSMClientAPI interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// AWSSSMProvider resolves keys from AWS Systems Manager Parameter Store. Every path in
// the paths option is a container; the parameters directly below it are its keys, named
// by the last segment of the parameter name. SecureString parameters are decrypted.
type AWSSSMProvider struct {
	logger    *logging.Logger
	client    SSMClientAPI
	stsClient STSClientAPI

	initialized bool
	search      resolve.Search
}

type awsParameterStoreOptions struct {
	Paths []string   `uri:"paths"`
	AWS   awsOptions `uri:",squash"`
}

// NewAWSSSMProvider creates an uninitialized Parameter Store provider.
func NewAWSSSMProvider(opts ...AWSOption) *AWSSSMProvider {
	c := newAWSClients(opts)
	return &AWSSSMProvider{
		logger:    c.logger,
		client:    c.ssm,
		stsClient: c.sts,
	}
}

// Identity implements provider.Provider.
func (p *AWSSSMProvider) Identity() provider.Identity {
	return provider.Identity{
		Key:         awsParameterStoreKey,
		DisplayName: "AWS Systems Manager Parameter Store",
		Description: "Reads keys from parameters below the listed paths, searching the paths in order.",
	}
}

// Options implements provider.Provider.
func (p *AWSSSMProvider) Options() []provider.OptionDescriptor {
	return append([]provider.OptionDescriptor{{
		Name:             "paths",
		Type:             provider.OptionString,
		ShortDescription: "Comma separated parameter paths, searched in order",
		LongDescription:  "Paths start with '/'. The parameter /prod/app/DB_USER is found as DB_USER when /prod/app is listed.",
	}}, awsOptionDescriptors()...)
}

// Initialize implements provider.Provider.
func (p *AWSSSMProvider) Initialize(ctx context.Context, configURI string) error {
	var opts awsParameterStoreOptions
	if _, err := configuri.Load(awsParameterStoreKey, configURI, &opts); err != nil {
		return err
	}
	if len(opts.Paths) == 0 {
		return missingOption(awsParameterStoreKey, "paths", "at least one parameter path is required")
	}
	for _, paramPath := range opts.Paths {
		if !strings.HasPrefix(paramPath, "/") {
			return invalidOption(awsParameterStoreKey, "paths", "parameter paths must start with '/'")
		}
	}
	if err := opts.AWS.validate(awsParameterStoreKey); err != nil {
		return err
	}

	client, stsClient := p.client, p.stsClient
	if client == nil || stsClient == nil {
		cfg, err := loadAWSConfig(ctx, awsParameterStoreKey, opts.AWS)
		if err != nil {
			return err
		}
		if client == nil {
			client = ssm.NewFromConfig(cfg, func(o *ssm.Options) {
				if opts.AWS.Endpoint != "" {
					o.BaseEndpoint = aws.String(opts.AWS.Endpoint)
				}
			})
		}
		if stsClient == nil {
			stsClient = newSTSClient(cfg, opts.AWS.Endpoint)
		}
	}

	arn, err := probeAWS(ctx, awsParameterStoreKey, stsClient)
	if err != nil {
		return err
	}
	p.logger.Debug("awsps: authenticated as %s", arn)

	p.client = client
	p.stsClient = stsClient
	p.search = resolve.Search{
		Provider:      awsParameterStoreKey,
		Containers:    opts.Paths,
		CaseSensitive: opts.AWS.CaseSensitive,
		Fetch:         p.fetch,
	}
	p.initialized = true
	return nil
}

// ResolveSecrets implements provider.Provider.
func (p *AWSSSMProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if !p.initialized {
		return nil, provider.NotInitializedError{Provider: awsParameterStoreKey, Op: "ResolveSecrets"}
	}
	return p.search.Run(ctx, keys)
}

// fetch lists every parameter directly below parameterPath. An unknown path is empty.
func (p *AWSSSMProvider) fetch(ctx context.Context, parameterPath string) ([]resolve.Pair, error) {
	paginator := ssm.NewGetParametersByPathPaginator(p.client, &ssm.GetParametersByPathInput{
		Path:           aws.String(parameterPath),
		WithDecryption: aws.Bool(true),
	})

	var pairs []resolve.Pair
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, param := range page.Parameters {
			pairs = append(pairs, resolve.Pair{
				Key:   path.Base(aws.ToString(param.Name)),
				Value: aws.ToString(param.Value),
			})
		}
	}
	p.logger.Debug("awsps: path %s holds %d parameters", parameterPath, len(pairs))
	return pairs, nil
}
