package providers

import (
	"errors"

	"github.com/zalando/go-keyring"

	"github.com/systmms/secretsrc/internal/providers/contracts"
)

// osKeyringClient implements contracts.KeyringClient with the platform credential store.
type osKeyringClient struct{}

func newOSKeyringClient() contracts.KeyringClient {
	return osKeyringClient{}
}

func (osKeyringClient) Get(service, account string) (string, error) {
	secret, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", contracts.ErrKeyringItemNotFound
	}
	return secret, err
}

func (osKeyringClient) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}
