// Package kms: AWS KMS-backed provider.
//
// File: internal/kms/aws.go
package kms

import (
	"context"
	"fmt"

	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// kmsAPI is the subset of the AWS KMS client this provider calls,
// narrowed so tests can substitute a fake without pulling in the network.
type kmsAPI interface {
	GenerateDataKey(ctx context.Context, params *awskms.GenerateDataKeyInput, optFns ...func(*awskms.Options)) (*awskms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *awskms.DecryptInput, optFns ...func(*awskms.Options)) (*awskms.DecryptOutput, error)
}

// AWSProvider wraps DEKs via AWS KMS GenerateDataKey/Decrypt.
type AWSProvider struct {
	client kmsAPI
	keyID  string
}

// NewAWSProvider constructs a provider bound to a specific CMK.
func NewAWSProvider(client *awskms.Client, keyID string) *AWSProvider {
	return &AWSProvider{client: client, keyID: keyID}
}

// Encrypt implements Provider. It asks KMS for a fresh plaintext+ciphertext
// DEK pair, uses the plaintext copy as the envelope DEK, and stores the
// ciphertext copy as the blob's wrapped_dek field.
func (p *AWSProvider) Encrypt(ctx context.Context, plaintext []byte) (string, string, error) {
	out, err := p.client.GenerateDataKey(ctx, &awskms.GenerateDataKeyInput{
		KeyId:   &p.keyID,
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return "", "", fmt.Errorf("kms: aws generate data key: %w", err)
	}
	defer zero(out.Plaintext)

	blob, err := sealWithFixedDEK(plaintext, out.Plaintext, out.CiphertextBlob)
	if err != nil {
		return "", "", err
	}

	keyVersion := p.keyID
	if out.KeyId != nil {
		keyVersion = *out.KeyId
	}
	return blob, keyVersion, nil
}

// Decrypt implements Provider.
func (p *AWSProvider) Decrypt(ctx context.Context, blob string, keyVersion string) ([]byte, error) {
	return open(blob, func(wrapped []byte) ([]byte, error) {
		out, err := p.client.Decrypt(ctx, &awskms.DecryptInput{
			CiphertextBlob: wrapped,
			KeyId:          &keyVersion,
		})
		if err != nil {
			return nil, err
		}
		return out.Plaintext, nil
	})
}

// EOF: internal/kms/aws.go
