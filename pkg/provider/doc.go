// Package provider defines the contract every secretsrc backend implements.
//
// A provider is identified by a short scheme key ("env", "awssm", "hcv", ...) and is
// configured from a URI of the form
//
//	scheme://[authority]?option=value&option=value
//
// Configuration persisted by an application therefore contains only a backend identifier
// and lookup keys. The secret material is fetched lazily by calling ResolveSecrets.
//
// # Lifecycle
//
// A provider instance starts uninitialized. Initialize validates the URI, builds the
// backend client and probes connectivity. Only after a successful Initialize can
// ResolveSecrets be called; before that it returns NotInitializedError. One instance
// serves one configuration for its whole lifetime.
//
// Example:
//
//	p, ok := registry.Find("awssm")
//	if !ok {
//	    return fmt.Errorf("no such provider")
//	}
//	if err := p.Initialize(ctx, "awssm://?secrets=prod/app,prod/shared&region=eu-west-1"); err != nil {
//	    return err
//	}
//	values, err := p.ResolveSecrets(ctx, []string{"DB_USER", "DB_PASSWORD"})
//
// # Error Handling
//
// Failures are reported with the typed errors in this package:
//   - ConfigurationError from Initialize, carrying a stable ErrorCode
//   - NotInitializedError when the lifecycle is violated
//   - KeyNotFoundError with the exact keys that could not be resolved
//   - BackendError wrapping whatever the backend client returned
//
// A cancelled context is never reported as one of the above; the context error is
// returned as-is so callers can tell cancellation apart from failure (see IsCancellation).
//
// # Concurrency
//
// Different instances share no state. A single instance is not safe for concurrent
// ResolveSecrets calls unless its documentation says otherwise.
package provider
