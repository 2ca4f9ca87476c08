package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/systmms/secretsrc/internal/resolve"
)

// newClient builds a client for address. Retries are disabled; a failed request is
// reported to the caller.
func newClient(address, namespace string) (*api.Client, error) {
	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, config.Error
	}
	config.Address = address
	config.MaxRetries = 0

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}
	client.ClearToken()
	if namespace != "" {
		client.SetNamespace(namespace)
	}
	return client, nil
}

// authenticate sets the client token, logging in with AppRole when configured, and
// verifies it with a token self-lookup.
func authenticate(ctx context.Context, client *api.Client, cfg Config) error {
	if cfg.RoleID != "" {
		secret, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("approle login: %w", err)
		}
		if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
			return errors.New("approle login: no token in response")
		}
		client.SetToken(secret.Auth.ClientToken)
		return nil
	}

	client.SetToken(cfg.Token)
	if _, err := client.Auth().Token().LookupSelfWithContext(ctx); err != nil {
		return fmt.Errorf("token lookup: %w", err)
	}
	return nil
}

// readKV reads the fields of one KV secret in document order. A secret that does not
// exist, or a KV2 secret whose current version is deleted, has no fields.
func readKV(ctx context.Context, client *api.Client, mount string, kvVersion int, secretPath string) ([]resolve.Pair, error) {
	mount = strings.Trim(mount, "/")
	secretPath = strings.Trim(secretPath, "/")

	path := mount + "/" + secretPath
	if kvVersion == 2 {
		path = mount + "/data/" + secretPath
	}

	resp, err := client.Logical().ReadRawWithContext(ctx, path)
	if resp != nil {
		defer resp.Body.Close()
	}
	if isNotFound(resp, err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	data, err := member(body, "data")
	if err != nil || data == "" {
		return nil, err
	}
	if kvVersion == 2 {
		data, err = member([]byte(data), "data")
		if err != nil || data == "" {
			return nil, err
		}
	}
	return resolve.DecodeObject([]byte(data))
}

// member returns the raw text of the first member of the JSON object doc named name,
// or "" when it is missing or null.
func member(doc []byte, name string) (string, error) {
	pairs, err := resolve.DecodeObject(doc)
	if err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	for _, p := range pairs {
		if p.Key == name {
			return p.Value, nil
		}
	}
	return "", nil
}

func isNotFound(resp *api.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var respErr *api.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
