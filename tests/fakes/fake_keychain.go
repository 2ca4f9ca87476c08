package fakes

import (
	"sync"

	"github.com/systmms/secretsrc/internal/providers/contracts"
)

// FakeKeyringClient is an in-memory credential store.
type FakeKeyringClient struct {
	mu sync.Mutex

	// Items maps service to account to secret
	Items map[string]map[string]string
	// GetErr is returned by every Get when set
	GetErr error
	// SetErr is returned by every Set when set
	SetErr error

	gets []string
}

// NewFakeKeyringClient creates an empty credential store
func NewFakeKeyringClient() *FakeKeyringClient {
	return &FakeKeyringClient{Items: make(map[string]map[string]string)}
}

// Add stores a secret directly, bypassing SetErr
func (f *FakeKeyringClient) Add(service, account, secret string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Items[service] == nil {
		f.Items[service] = make(map[string]string)
	}
	f.Items[service][account] = secret
}

// Gets returns the accounts looked up so far, in order.
func (f *FakeKeyringClient) Gets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.gets...)
}

// Get implements contracts.KeyringClient
func (f *FakeKeyringClient) Get(service, account string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, account)
	if f.GetErr != nil {
		return "", f.GetErr
	}
	secret, ok := f.Items[service][account]
	if !ok {
		return "", contracts.ErrKeyringItemNotFound
	}
	return secret, nil
}

// Set implements contracts.KeyringClient
func (f *FakeKeyringClient) Set(service, account, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	if f.Items[service] == nil {
		f.Items[service] = make(map[string]string)
	}
	f.Items[service][account] = secret
	return nil
}

var _ contracts.KeyringClient = (*FakeKeyringClient)(nil)
