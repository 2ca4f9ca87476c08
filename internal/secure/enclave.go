package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// SecureString keeps a credential (passphrase, token, access key) encrypted in memory
// between uses. The plaintext only exists while Reveal's caller holds the returned string.
//
// An empty value is stored without an enclave; memguard refuses empty enclaves.
type SecureString struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	destroyed bool
}

// NewSecureString seals value. The caller should drop its own copy afterwards.
func NewSecureString(value string) *SecureString {
	s := &SecureString{}
	if value != "" {
		s.enclave = memguard.NewEnclave([]byte(value))
	}
	return s
}

// IsEmpty reports whether no value is held, either because none was given or because
// the string was destroyed.
func (s *SecureString) IsEmpty() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed || s.enclave == nil
}

// Reveal decrypts the value. It returns "" for an empty or destroyed SecureString.
func (s *SecureString) Reveal() (string, error) {
	if s == nil {
		return "", nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed || s.enclave == nil {
		return "", nil
	}

	locked, err := s.enclave.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()

	return string(locked.Bytes()), nil
}

// Destroy forgets the value. It is idempotent.
//
// For complete cleanup of all memguard data at application exit, call memguard.Purge()
// in main.
func (s *SecureString) Destroy() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.destroyed = true
}
