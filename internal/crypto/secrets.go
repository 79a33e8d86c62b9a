package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/jun/homeworklink/internal/model"
)

const (
	keySize        = 32
	ivSize         = 16
	pathSecretSize = 24
)

// GenerateSecretMaterial returns a fresh random AES-256 key, IV and an
// independent path secret, all base64url encoded without padding.
func GenerateSecretMaterial() (model.SecretMaterial, error) {
	key, err := randomBytes(keySize)
	if err != nil {
		return model.SecretMaterial{}, err
	}
	iv, err := randomBytes(ivSize)
	if err != nil {
		return model.SecretMaterial{}, err
	}
	secret, err := randomBytes(pathSecretSize)
	if err != nil {
		return model.SecretMaterial{}, err
	}
	return model.SecretMaterial{
		PathSecret:    EncodeBase64URL(secret),
		EncryptionKey: EncodeBase64URL(key),
		EncryptionIV:  EncodeBase64URL(iv),
	}, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}
