package fakes

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FakeGCPSecretManagerClient is a fake of the Secret Manager access client.
// Secrets are keyed by full version resource name.
type FakeGCPSecretManagerClient struct {
	mu sync.Mutex

	// Secrets maps resource names to payloads
	Secrets map[string][]byte
	// Errors maps resource names to errors to return
	Errors map[string]error
	// ProbeErr is returned by Probe when set
	ProbeErr error

	calls  []string
	closed bool
}

// NewFakeGCPSecretManagerClient creates a new fake Secret Manager client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Secrets: make(map[string][]byte),
		Errors:  make(map[string]error),
	}
}

// AddSecret adds a payload for secret name in project at version
func (f *FakeGCPSecretManagerClient) AddSecret(project, name, version string, value []byte) {
	f.Secrets[fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, name, version)] = value
}

// Calls returns the resources accessed so far, in order.
func (f *FakeGCPSecretManagerClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Closed reports whether Close was called.
func (f *FakeGCPSecretManagerClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Access fakes AccessSecretVersion
func (f *FakeGCPSecretManagerClient) Access(ctx context.Context, resource string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, resource)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.Errors[resource]; ok {
		return nil, err
	}
	data, ok := f.Secrets[resource]
	if !ok {
		return nil, status.Error(codes.NotFound, fmt.Sprintf("Secret [%s] not found or has no versions.", resource))
	}
	return data, nil
}

// Probe fakes listing the secrets of project
func (f *FakeGCPSecretManagerClient) Probe(ctx context.Context, project string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.ProbeErr
}

// Close marks the client closed
func (f *FakeGCPSecretManagerClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// GCPPermissionDeniedError creates a fake permission denied status
func GCPPermissionDeniedError() error {
	return status.Error(codes.PermissionDenied, "Permission 'secretmanager.versions.access' denied")
}
