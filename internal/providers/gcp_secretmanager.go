package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/pkg/provider"
)

const gcpSecretManagerKey = "gcsm"

// GCPSecretManagerClientAPI is the narrow view of the Secret Manager client used by the
// provider. The generated client returns iterators that cannot be built outside the
// SDK, so the provider talks to this interface instead.
type GCPSecretManagerClientAPI interface {
	// Access returns the payload of the secret version named by resource.
	Access(ctx context.Context, resource string) ([]byte, error)

	// Probe lists at most one secret of project.
	Probe(ctx context.Context, project string) error

	Close() error
}

// GCPSecretManagerProvider resolves every key as the secret of the same name in one
// project.
type GCPSecretManagerProvider struct {
	logger *logging.Logger
	client GCPSecretManagerClientAPI

	initialized bool
	projectID   string
	version     string
}

type gcpSecretManagerOptions struct {
	ProjectID       string `uri:"project-id"`
	Version         string `uri:"version"`
	CredentialsFile string `uri:"credentials-file"`
	Impersonate     string `uri:"impersonate"`
}

// GCPProviderOption is a functional option for configuring the GCP provider.
type GCPProviderOption func(*GCPSecretManagerProvider)

// WithGCPSecretManagerClient sets a custom client (for testing).
func WithGCPSecretManagerClient(client GCPSecretManagerClientAPI) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.client = client
	}
}

// WithGCPLogger sets the logger.
func WithGCPLogger(logger *logging.Logger) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.logger = logger
	}
}

// NewGCPSecretManagerProvider creates an uninitialized Secret Manager provider.
func NewGCPSecretManagerProvider(opts ...GCPProviderOption) *GCPSecretManagerProvider {
	p := &GCPSecretManagerProvider{logger: logging.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Identity implements provider.Provider.
func (p *GCPSecretManagerProvider) Identity() provider.Identity {
	return provider.Identity{
		Key:         gcpSecretManagerKey,
		DisplayName: "Google Cloud Secret Manager",
		Description: "Reads each key from the Secret Manager secret of the same name.",
	}
}

// Options implements provider.Provider.
func (p *GCPSecretManagerProvider) Options() []provider.OptionDescriptor {
	return []provider.OptionDescriptor{
		{
			Name:             "project-id",
			Type:             provider.OptionString,
			ShortDescription: "GCP project holding the secrets",
			LongDescription:  "Defaults to GOOGLE_CLOUD_PROJECT.",
		},
		{
			Name:             "version",
			Type:             provider.OptionString,
			ShortDescription: "Secret version to read",
			DefaultValue:     "latest",
		},
		{
			Name:             "credentials-file",
			Type:             provider.OptionString,
			ShortDescription: "Service account key file; Application Default Credentials otherwise",
		},
		{
			Name:             "impersonate",
			Type:             provider.OptionString,
			ShortDescription: "Service account email to impersonate",
		},
	}
}

// Initialize implements provider.Provider.
func (p *GCPSecretManagerProvider) Initialize(ctx context.Context, configURI string) error {
	opts := gcpSecretManagerOptions{
		ProjectID: os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Version:   "latest",
	}
	if _, err := configuri.Load(gcpSecretManagerKey, configURI, &opts); err != nil {
		return err
	}
	if opts.ProjectID == "" {
		return missingOption(gcpSecretManagerKey, "project-id", "no project configured")
	}
	if opts.Version == "" || strings.Contains(opts.Version, "/") {
		return invalidOption(gcpSecretManagerKey, "version", "must be a version number or 'latest'")
	}

	client := p.client
	if client == nil {
		c, err := newGCPClient(ctx, opts)
		if err != nil {
			return err
		}
		client = c
	}

	if err := client.Probe(ctx, opts.ProjectID); err != nil {
		if client != p.client {
			_ = client.Close()
		}
		return provider.ProbeFailed(ctx, gcpSecretManagerKey, err)
	}
	p.logger.Debug("gcsm: connected to project %s", opts.ProjectID)

	if p.client != nil && p.client != client {
		_ = p.client.Close()
	}
	p.client = client
	p.projectID = opts.ProjectID
	p.version = opts.Version
	p.initialized = true
	return nil
}

// ResolveSecrets implements provider.Provider. Secrets that do not exist are collected
// and reported together.
func (p *GCPSecretManagerProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if !p.initialized {
		return nil, provider.NotInitializedError{Provider: gcpSecretManagerKey, Op: "ResolveSecrets"}
	}

	result := make(map[string]string, len(keys))
	var missing []string
	for _, key := range resolve.Unique(keys, true) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", p.projectID, key, p.version)
		data, err := p.client.Access(ctx, resource)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				missing = append(missing, key)
				continue
			}
			return nil, provider.Backend(ctx, gcpSecretManagerKey, "access secret version", key, err)
		}
		if !utf8.Valid(data) {
			return nil, provider.Backend(ctx, gcpSecretManagerKey, "access secret version", key, errors.New("payload is not valid UTF-8"))
		}
		result[key] = string(data)
	}

	if len(missing) > 0 {
		return nil, provider.KeyNotFoundError{Provider: gcpSecretManagerKey, Keys: missing}
	}
	return result, nil
}

// gcpClient adapts the generated Secret Manager client.
type gcpClient struct {
	c *secretmanager.Client
}

func newGCPClient(ctx context.Context, opts gcpSecretManagerOptions) (*gcpClient, error) {
	var clientOptions []option.ClientOption

	if opts.CredentialsFile != "" {
		path := opts.CredentialsFile
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, invalidOption(gcpSecretManagerKey, "credentials-file", err.Error())
			}
			path = filepath.Join(home, path[2:])
		}
		clientOptions = append(clientOptions, option.WithCredentialsFile(path))
	}

	if opts.Impersonate != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: opts.Impersonate,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		}, clientOptions...)
		if err != nil {
			return nil, provider.ConfigurationError{
				Provider: gcpSecretManagerKey,
				Code:     provider.CodeMissingCredentials,
				Field:    "impersonate",
				Message:  "cannot impersonate service account",
				Err:      err,
			}
		}
		clientOptions = []option.ClientOption{option.WithTokenSource(ts)}
	}

	c, err := secretmanager.NewClient(ctx, clientOptions...)
	if err != nil {
		return nil, provider.ConfigurationError{
			Provider: gcpSecretManagerKey,
			Code:     provider.CodeMissingCredentials,
			Message:  "cannot create Secret Manager client",
			Err:      err,
		}
	}
	return &gcpClient{c: c}, nil
}

func (g *gcpClient) Access(ctx context.Context, resource string) ([]byte, error) {
	resp, err := g.c.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return nil, err
	}
	return resp.GetPayload().GetData(), nil
}

func (g *gcpClient) Probe(ctx context.Context, project string) error {
	it := g.c.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent:   "projects/" + project,
		PageSize: 1,
	})
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

func (g *gcpClient) Close() error {
	return g.c.Close()
}
