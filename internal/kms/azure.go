// Package kms: Azure Key Vault-backed provider.
//
// File: internal/kms/azure.go
package kms

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/keyvault/azkeys"
)

// azkeysAPI is the subset of the Key Vault keys client this provider
// calls, narrowed so tests can substitute a fake.
type azkeysAPI interface {
	WrapKey(ctx context.Context, name string, version string, parameters azkeys.KeyOperationParameters, options *azkeys.WrapKeyOptions) (azkeys.WrapKeyResponse, error)
	UnwrapKey(ctx context.Context, name string, version string, parameters azkeys.KeyOperationParameters, options *azkeys.UnwrapKeyOptions) (azkeys.UnwrapKeyResponse, error)
}

// AzureProvider wraps DEKs via RSA-OAEP-256 against a Key Vault key.
type AzureProvider struct {
	client     azkeysAPI
	keyName    string
	keyVersion string
}

// NewAzureProvider constructs a provider bound to a specific vault key.
// keyVersion may be empty to use the key's current version.
func NewAzureProvider(client azkeysAPI, keyName, keyVersion string) *AzureProvider {
	return &AzureProvider{client: client, keyName: keyName, keyVersion: keyVersion}
}

var oaep256 = azkeys.EncryptionAlgorithmRSAOAEP256

func (p *AzureProvider) wrap(ctx context.Context, dek []byte) ([]byte, error) {
	resp, err := p.client.WrapKey(ctx, p.keyName, p.keyVersion, azkeys.KeyOperationParameters{
		Algorithm: &oaep256,
		Value:     dek,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("kms: azure wrap key: %w", err)
	}
	return resp.Result, nil
}

func (p *AzureProvider) unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	resp, err := p.client.UnwrapKey(ctx, p.keyName, p.keyVersion, azkeys.KeyOperationParameters{
		Algorithm: &oaep256,
		Value:     wrapped,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("kms: azure unwrap key: %w", err)
	}
	return resp.Result, nil
}

// Encrypt implements Provider.
func (p *AzureProvider) Encrypt(ctx context.Context, plaintext []byte) (string, string, error) {
	blob, err := seal(plaintext, func(dek []byte) ([]byte, error) {
		return p.wrap(ctx, dek)
	})
	if err != nil {
		return "", "", err
	}
	version := p.keyVersion
	if version == "" {
		version = "current"
	}
	return blob, fmt.Sprintf("%s/%s", p.keyName, version), nil
}

// Decrypt implements Provider.
func (p *AzureProvider) Decrypt(ctx context.Context, blob string, keyVersion string) ([]byte, error) {
	return open(blob, func(wrapped []byte) ([]byte, error) {
		return p.unwrap(ctx, wrapped)
	})
}

// EOF: internal/kms/azure.go
