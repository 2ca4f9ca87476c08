// Package contracts defines interfaces for provider client abstractions.
// These interfaces enable dependency injection for testing.
package contracts

import "errors"

// ErrKeyringItemNotFound is returned by KeyringClient.Get for an unknown item.
var ErrKeyringItemNotFound = errors.New("keyring item not found")

// KeyringClient abstracts OS credential store operations (macOS Keychain, Secret
// Service, Windows Credential Manager).
type KeyringClient interface {
	// Get returns the secret stored for service and account, or ErrKeyringItemNotFound.
	Get(service, account string) (string, error)

	// Set stores secret for service and account, replacing any previous value.
	Set(service, account, secret string) error
}
