package providers

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/secretsrc/pkg/provider"
)

// STSClientAPI is the part of the STS client used to probe AWS credentials.
type STSClientAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// awsOptions are the connection options shared by the AWS adapters.
type awsOptions struct {
	Region        string `uri:"region"`
	AccessID      string `uri:"access-id"`
	AccessKey     string `uri:"access-key"`
	Endpoint      string `uri:"endpoint"`
	CaseSensitive bool   `uri:"case-sensitive"`
}

func awsOptionDescriptors() []provider.OptionDescriptor {
	return []provider.OptionDescriptor{
		{
			Name:             "region",
			Type:             provider.OptionString,
			ShortDescription: "AWS region",
			LongDescription:  "Defaults to the region of the shared AWS configuration or AWS_REGION.",
		},
		{
			Name:             "access-id",
			Type:             provider.OptionString,
			ShortDescription: "Access key ID",
			LongDescription:  "Static credentials; must be given together with access-key. Without them the default AWS credential chain is used.",
		},
		{
			Name:             "access-key",
			Type:             provider.OptionPassword,
			ShortDescription: "Secret access key",
		},
		{
			Name:             "endpoint",
			Type:             provider.OptionString,
			ShortDescription: "Custom service endpoint, e.g. for LocalStack",
		},
		caseSensitiveOption,
	}
}

func (o awsOptions) validate(providerKey string) error {
	switch {
	case o.AccessID != "" && o.AccessKey == "":
		return provider.ConfigurationError{
			Provider: providerKey,
			Code:     provider.CodeMissingCredentials,
			Field:    "access-key",
			Message:  "access-id was given without access-key",
		}
	case o.AccessID == "" && o.AccessKey != "":
		return provider.ConfigurationError{
			Provider: providerKey,
			Code:     provider.CodeMissingCredentials,
			Field:    "access-id",
			Message:  "access-key was given without access-id",
		}
	}
	return nil
}

// loadAWSConfig builds the SDK configuration from the default chain, overridden by the
// region and static credentials of o.
func loadAWSConfig(ctx context.Context, providerKey string, o awsOptions) (aws.Config, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	if o.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(o.Region))
	}
	if o.AccessID != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessID, o.AccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return aws.Config{}, ctxErr
		}
		return aws.Config{}, provider.ConfigurationError{
			Provider: providerKey,
			Code:     provider.CodeMissingCredentials,
			Message:  "cannot load AWS configuration",
			Err:      err,
		}
	}
	if cfg.Region == "" {
		return aws.Config{}, missingOption(providerKey, "region", "no region configured")
	}
	return cfg, nil
}

func newSTSClient(cfg aws.Config, endpoint string) STSClientAPI {
	return sts.NewFromConfig(cfg, func(o *sts.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// probeAWS checks that the configured credentials are accepted.
func probeAWS(ctx context.Context, providerKey string, client STSClientAPI) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", provider.ProbeFailed(ctx, providerKey, err)
	}
	return aws.ToString(out.Arn), nil
}
