// Package config loads the process-wide configuration once at start-up.
// A loaded Config is never mutated.
package config

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jun/homeworklink/internal/auth"
	"github.com/jun/homeworklink/internal/crypto"
	"github.com/jun/homeworklink/internal/homework"
	"github.com/jun/homeworklink/internal/secret"
	"golang.org/x/oauth2/google"
)

var (
	ErrMissingConfig = errors.New("missing required configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

const defaultUpstreamTimeout = 5 * time.Second

// Config is the immutable deployment configuration.
type Config struct {
	DevMode bool

	// ClientOrigin is echoed in Access-Control-Allow-Origin.
	ClientOrigin string
	// PathSecret gates the /encrypt route.
	PathSecret    string
	EncryptionKey []byte
	EncryptionIV  []byte

	ServiceAccountEmail string
	ServiceAccountKey   *rsa.PrivateKey
	TokenURL            string
	ClassroomEndpoint   string

	StudentEmailDomain string
	CourseSuffix       string
	Location           *time.Location
	UpstreamTimeout    time.Duration
}

// Secret parameter keys, resolved through a secret.Resolver.
const (
	paramPathSecret        = "path-secret"
	paramEncryptionKey     = "encryption-key"
	paramEncryptionIV      = "encryption-iv"
	paramServiceAccountKey = "service-account-key"
)

// ParamNames returns the secret parameter names, overridable through
// <NAME>_PARAM environment variables.
func ParamNames(devMode bool) map[string]string {
	names := map[string]string{
		paramPathSecret:    getenvDefault("PATH_SECRET_PARAM", "/homeworklink/path-secret"),
		paramEncryptionKey: getenvDefault("ENCRYPTION_KEY_PARAM", "/homeworklink/encryption-key"),
		paramEncryptionIV:  getenvDefault("ENCRYPTION_IV_PARAM", "/homeworklink/encryption-iv"),
	}
	if !devMode {
		names[paramServiceAccountKey] = getenvDefault("SERVICE_ACCOUNT_KEY_PARAM", "/homeworklink/service-account-key")
	}
	return names
}

// Load reads settings from the environment and secrets from resolver.
// Secrets stored wrapped (KMS) are unwrapped with decrypter.
func Load(ctx context.Context, resolver secret.Resolver, decrypter crypto.Decrypter) (*Config, error) {
	devMode := os.Getenv("DEV_MODE") == "true"

	cfg := &Config{
		DevMode:             devMode,
		ClientOrigin:        os.Getenv("CLIENT_ORIGIN"),
		ServiceAccountEmail: os.Getenv("SERVICE_ACCOUNT_EMAIL"),
		TokenURL:            getenvDefault("GOOGLE_TOKEN_URL", google.Endpoint.TokenURL),
		ClassroomEndpoint:   os.Getenv("CLASSROOM_ENDPOINT"),
		StudentEmailDomain:  os.Getenv("STUDENT_EMAIL_DOMAIN"),
		CourseSuffix:        getenvDefault("COURSES_SUFFIX", homework.WildcardSuffix),
		UpstreamTimeout:     defaultUpstreamTimeout,
	}

	loc, err := time.LoadLocation(getenvDefault("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("%w: TIMEZONE: %v", ErrInvalidConfig, err)
	}
	cfg.Location = loc

	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: UPSTREAM_TIMEOUT must be a positive duration, got %q", ErrInvalidConfig, v)
		}
		cfg.UpstreamTimeout = d
	}

	secrets, err := secret.ResolveAll(ctx, resolver, ParamNames(devMode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}
	cfg.PathSecret = secrets[paramPathSecret]

	rawKey, err := decrypter.Decrypt(ctx, secrets[paramEncryptionKey])
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key: %v", ErrInvalidConfig, err)
	}
	if cfg.EncryptionKey, err = crypto.DecodeBase64URL(strings.TrimSpace(rawKey)); err != nil {
		return nil, fmt.Errorf("%w: encryption key is not base64url: %v", ErrInvalidConfig, err)
	}
	if cfg.EncryptionIV, err = crypto.DecodeBase64URL(strings.TrimSpace(secrets[paramEncryptionIV])); err != nil {
		return nil, fmt.Errorf("%w: encryption iv is not base64url: %v", ErrInvalidConfig, err)
	}

	if pem, ok := secrets[paramServiceAccountKey]; ok {
		rawPEM, err := decrypter.Decrypt(ctx, pem)
		if err != nil {
			return nil, fmt.Errorf("%w: service account key: %v", ErrInvalidConfig, err)
		}
		if cfg.ServiceAccountKey, err = auth.ParsePrivateKey(rawPEM); err != nil {
			return nil, fmt.Errorf("%w: service account key: %v", ErrInvalidConfig, err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.ClientOrigin == "" {
		return fmt.Errorf("%w: CLIENT_ORIGIN is required", ErrMissingConfig)
	}
	if cfg.PathSecret == "" {
		return fmt.Errorf("%w: path secret is required", ErrMissingConfig)
	}
	if strings.Contains(cfg.PathSecret, "/") {
		return fmt.Errorf("%w: path secret must be a single path segment", ErrInvalidConfig)
	}
	if len(cfg.EncryptionKey) != 32 {
		return fmt.Errorf("%w: encryption key must be 32 bytes, got %d", ErrInvalidConfig, len(cfg.EncryptionKey))
	}
	if len(cfg.EncryptionIV) != 16 {
		return fmt.Errorf("%w: encryption iv must be 16 bytes, got %d", ErrInvalidConfig, len(cfg.EncryptionIV))
	}
	if cfg.StudentEmailDomain == "" {
		return fmt.Errorf("%w: STUDENT_EMAIL_DOMAIN is required", ErrMissingConfig)
	}
	if cfg.DevMode {
		return nil
	}
	if cfg.ServiceAccountEmail == "" {
		return fmt.Errorf("%w: SERVICE_ACCOUNT_EMAIL is required", ErrMissingConfig)
	}
	if cfg.ServiceAccountKey == nil {
		return fmt.Errorf("%w: service account key is required", ErrMissingConfig)
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
