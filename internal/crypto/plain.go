package crypto

import "context"

// PlainDecrypter implements Decrypter for secrets stored in the clear
// (DEV_MODE, or deployments without KMS wrapping).
type PlainDecrypter struct{}

func NewPlainDecrypter() *PlainDecrypter {
	return &PlainDecrypter{}
}

func (p *PlainDecrypter) Decrypt(_ context.Context, ciphertext string) (string, error) {
	return ciphertext, nil
}
