package fakes

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// FakeSecretsManagerClient is a fake of the Secrets Manager client.
// It records the secret IDs it was asked for.
type FakeSecretsManagerClient struct {
	mu sync.Mutex

	// Secrets maps secret names to their data
	Secrets map[string]*SecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// GetSecretValueFunc allows custom behavior for GetSecretValue
	GetSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)

	calls []string
}

// SecretData holds the data for a fake secret
type SecretData struct {
	SecretString *string
	SecretBinary []byte
}

// NewFakeSecretsManagerClient creates a new fake Secrets Manager client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*SecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecretString adds a string secret
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	f.Secrets[name] = &SecretData{SecretString: aws.String(value)}
}

// AddSecretBinary adds a binary secret
func (f *FakeSecretsManagerClient) AddSecretBinary(name string, value []byte) {
	f.Secrets[name] = &SecretData{SecretBinary: value}
}

// AddError configures the fake to return an error for a specific secret
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.Errors[name] = err
}

// Calls returns the secret IDs queried so far, in order.
func (f *FakeSecretsManagerClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// GetSecretValue fakes the GetSecretValue operation
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	secretName := aws.ToString(params.SecretId)

	f.mu.Lock()
	f.calls = append(f.calls, secretName)
	f.mu.Unlock()

	if f.GetSecretValueFunc != nil {
		return f.GetSecretValueFunc(ctx, params)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	data, exists := f.Secrets[secretName]
	if !exists {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", secretName)),
		}
	}

	return &secretsmanager.GetSecretValueOutput{
		ARN:           aws.String(fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", secretName)),
		Name:          params.SecretId,
		SecretString:  data.SecretString,
		SecretBinary:  data.SecretBinary,
		VersionStages: []string{"AWSCURRENT"},
	}, nil
}

// FakeSSMClient is a fake of the SSM client serving GetParametersByPath in pages.
type FakeSSMClient struct {
	mu sync.Mutex

	// Parameters maps full parameter names to values, kept in insertion order
	Parameters map[string]string
	// Errors maps paths to errors to return
	Errors map[string]error
	// PageSize is the number of parameters per page; 0 means 10
	PageSize int

	order []string
	calls []string
}

// NewFakeSSMClient creates a new fake SSM client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]string),
		Errors:     make(map[string]error),
	}
}

// AddParameter adds a parameter
func (f *FakeSSMClient) AddParameter(name, value string) {
	if _, ok := f.Parameters[name]; !ok {
		f.order = append(f.order, name)
	}
	f.Parameters[name] = value
}

// Calls returns the paths of every page request, in order.
func (f *FakeSSMClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// GetParametersByPath fakes the non-recursive GetParametersByPath operation
func (f *FakeSSMClient) GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	path := strings.TrimSuffix(aws.ToString(params.Path), "/")

	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.Errors[path]; ok {
		return nil, err
	}

	var matching []ssmtypes.Parameter
	for _, name := range f.order {
		if !strings.HasPrefix(name, path+"/") || strings.Contains(name[len(path)+1:], "/") {
			continue
		}
		paramType := ssmtypes.ParameterTypeString
		if aws.ToBool(params.WithDecryption) {
			paramType = ssmtypes.ParameterTypeSecureString
		}
		matching = append(matching, ssmtypes.Parameter{
			Name:  aws.String(name),
			Value: aws.String(f.Parameters[name]),
			Type:  paramType,
		})
	}

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	start := 0
	if params.NextToken != nil {
		if _, err := fmt.Sscanf(*params.NextToken, "%d", &start); err != nil {
			return nil, fmt.Errorf("bad token %q", *params.NextToken)
		}
	}
	end := start + pageSize
	if end > len(matching) {
		end = len(matching)
	}

	out := &ssm.GetParametersByPathOutput{Parameters: matching[start:end]}
	if end < len(matching) {
		out.NextToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

// FakeSTSClient is a fake of the STS client used for credential probes.
type FakeSTSClient struct {
	// Err is returned by GetCallerIdentity when set
	Err error
}

// GetCallerIdentity fakes the GetCallerIdentity operation
func (f *FakeSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/test"),
		UserId:  aws.String("AIDATEST"),
	}, nil
}
