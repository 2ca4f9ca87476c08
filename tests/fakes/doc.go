// Package fakes provides test doubles for the backend clients used by secretsrc
// providers.
//
// The fakes are written by hand rather than generated so tests control exactly what a
// backend returns, including typed not-found errors, and can inspect the calls made.
//
// Usage:
//
//	client := fakes.NewFakeSecretsManagerClient()
//	client.AddSecretString("prod/app", `{"user":"admin"}`)
//	p := providers.NewAWSSecretsManagerProvider(
//	    providers.WithSecretsManagerClient(client),
//	    providers.WithSTSClient(&fakes.FakeSTSClient{}),
//	)
package fakes
