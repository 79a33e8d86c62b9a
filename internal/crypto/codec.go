package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDecodeFailure is returned when a token is not valid ciphertext for this deployment.
// Callers must not expose it distinctly from "not found".
var ErrDecodeFailure = errors.New("token decode failure")

// Codec maps identities to opaque URL-safe tokens and back using AES-256-CBC
// with a deployment-wide key and IV. The same identity always yields the same token.
type Codec struct {
	block cipher.Block
	iv    []byte
}

// NewCodec creates a codec from a 32-byte key and a 16-byte IV.
func NewCodec(key, iv []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("encryption iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	return &Codec{block: block, iv: bytes.Clone(iv)}, nil
}

// Encode encrypts an identity into a token. Identities are single-byte
// (ASCII) strings; each byte of the string is encrypted as-is.
func (c *Codec) Encode(identity string) string {
	plain := pkcs7Pad([]byte(identity), aes.BlockSize)
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, plain)
	return EncodeBase64URL(out)
}

// Decode reverses Encode. Any malformed input yields ErrDecodeFailure.
func (c *Codec) Decode(token string) (string, error) {
	raw, err := DecodeBase64URL(token)
	if err != nil {
		return "", ErrDecodeFailure
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrDecodeFailure
	}

	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(plain, raw)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", ErrDecodeFailure
	}
	return latin1(plain), nil
}

// EncodeBase64URL encodes b as base64url with padding stripped.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBase64URL decodes unpadded (or padded) base64url. Stripped padding is
// restored by length: remainder 2 gets "==", remainder 3 gets "=".
func DecodeBase64URL(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.Strict().DecodeString(s)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}

// latin1 reinterprets each byte as one character.
func latin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
