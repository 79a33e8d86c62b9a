package crypto

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// Decrypter unwraps secret material that may be stored encrypted at rest.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// KMSClient is the subset of *kms.Client methods used by KMSDecrypter.
type KMSClient interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSDecrypter implements Decrypter using AWS KMS.
type KMSDecrypter struct {
	client KMSClient
	keyID  string
}

// NewKMSDecrypter creates a new KMSDecrypter.
// keyID can be a key ID, key ARN, or alias name (e.g., "alias/homeworklink-secrets").
func NewKMSDecrypter(client KMSClient, keyID string) *KMSDecrypter {
	return &KMSDecrypter{
		client: client,
		keyID:  keyID,
	}
}

// Decrypt decrypts the base64 encoded ciphertext blob using KMS.
func (s *KMSDecrypter) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	result, err := s.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: decoded,
		KeyId:          aws.String(s.keyID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to decrypt data: %w", err)
	}

	return string(result.Plaintext), nil
}
