// Package secure provides memory-safe handling of sensitive data.
//
// This package wraps the memguard library to keep credentials held by provider
// instances out of plain process memory. It ensures that sensitive data is:
//
//   - Encrypted at rest in memory (XSalsa20Poly1305)
//   - Protected from swapping via mlock
//   - Securely wiped when no longer needed
//   - Protected from buffer overflow via guard pages
//
// # Usage
//
// Providers seal credentials taken from a configuration URI as soon as they are parsed:
//
//	pass := secure.NewSecureString(opts.Passphrase)
//	opts.Passphrase = ""
//	defer pass.Destroy()
//
//	// When the credential is needed:
//	plaintext, err := pass.Reveal()
//
// # Limits
//
// Reveal hands out an ordinary Go string, which the garbage collector may copy. The
// enclave shortens the window in which plaintext is resident; it does not protect against
// an attacker who can read the process memory while a resolve call is running.
package secure
