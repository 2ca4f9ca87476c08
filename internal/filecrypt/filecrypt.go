// Package filecrypt seals and opens local secret files with a passphrase.
//
// A sealed file is
//
//	magic "SSEC" | version | argon2 memory (u32) | iterations (u32) | parallelism (u8) |
//	salt (16) | nonce (24) | XChaCha20-Poly1305 ciphertext
//
// The header is authenticated as additional data, so tampering with the key derivation
// parameters is detected on Open.
package filecrypt

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	version    = 1
	saltLength = 16
	keyLength  = chacha20poly1305.KeySize
	headerLen  = 4 + 1 + 4 + 4 + 1 + saltLength
)

var magic = []byte("SSEC")

var (
	// ErrNotSealed is returned by Open for data without the sealed file header.
	ErrNotSealed = errors.New("data is not a sealed secrets file")

	// ErrDecrypt is returned by Open when the passphrase is wrong or the data was altered.
	ErrDecrypt = errors.New("cannot decrypt secrets file: wrong passphrase or corrupted data")
)

// Argon2Params are the key derivation parameters written into every sealed file.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultArgon2Params returns the parameters used by Seal.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024, // 64MB
		Iterations:  3,
		Parallelism: 2,
	}
}

// IsSealed reports whether data starts with the sealed file header.
func IsSealed(data []byte) bool {
	return len(data) >= len(magic) && bytes.Equal(data[:len(magic)], magic)
}

// Seal encrypts plaintext with passphrase using DefaultArgon2Params.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	return SealWithParams(plaintext, passphrase, DefaultArgon2Params())
}

// SealWithParams encrypts plaintext with passphrase using the given parameters.
func SealWithParams(plaintext []byte, passphrase string, params Argon2Params) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase must not be empty")
	}
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return nil, fmt.Errorf("invalid argon2 parameters: %+v", params)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	header := make([]byte, 0, headerLen)
	header = append(header, magic...)
	header = append(header, version)
	header = binary.BigEndian.AppendUint32(header, params.Memory)
	header = binary.BigEndian.AppendUint32(header, params.Iterations)
	header = append(header, params.Parallelism)
	header = append(header, salt...)

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt, params))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, len(header)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, header...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, header), nil
}

// Open decrypts data produced by Seal.
func Open(data []byte, passphrase string) ([]byte, error) {
	if !IsSealed(data) || len(data) < headerLen+chacha20poly1305.NonceSizeX {
		return nil, ErrNotSealed
	}
	if data[4] != version {
		return nil, fmt.Errorf("unsupported sealed file version %d", data[4])
	}

	header := data[:headerLen]
	params := Argon2Params{
		Memory:      binary.BigEndian.Uint32(header[5:9]),
		Iterations:  binary.BigEndian.Uint32(header[9:13]),
		Parallelism: header[13],
	}
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return nil, ErrDecrypt
	}
	salt := header[14:headerLen]

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt, params))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	nonce := data[headerLen : headerLen+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, data[headerLen+aead.NonceSize():], header)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func deriveKey(passphrase string, salt []byte, params Argon2Params) []byte {
	return argon2.IDKey([]byte(passphrase), salt, params.Iterations, params.Memory, params.Parallelism, keyLength)
}
