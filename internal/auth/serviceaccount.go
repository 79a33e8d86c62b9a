package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jun/homeworklink/internal/adapter"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionTTL   = time.Hour
)

// ClassroomScopes are the read-only scopes requested on behalf of a student.
var ClassroomScopes = []string{
	"https://www.googleapis.com/auth/classroom.courses.readonly",
	"https://www.googleapis.com/auth/classroom.coursework.me.readonly",
}

// ServiceAccount obtains short-lived credentials that impersonate a user
// through domain-wide delegation (RFC 7523 JWT-bearer grant).
type ServiceAccount struct {
	email      string
	key        *rsa.PrivateKey
	tokenURL   string
	scopes     []string
	httpClient *http.Client
	now        func() time.Time
}

// NewServiceAccount creates a ServiceAccount. An empty tokenURL selects
// Google's token endpoint; a nil httpClient selects http.DefaultClient.
func NewServiceAccount(email string, key *rsa.PrivateKey, tokenURL string, httpClient *http.Client) *ServiceAccount {
	if tokenURL == "" {
		tokenURL = google.Endpoint.TokenURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ServiceAccount{
		email:      email,
		key:        key,
		tokenURL:   tokenURL,
		scopes:     ClassroomScopes,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// SetNow overrides the time function (for testing).
func (s *ServiceAccount) SetNow(fn func() time.Time) {
	s.now = fn
}

// Assertion builds and signs the delegation JWT for subject.
func (s *ServiceAccount) Assertion(subject string) (string, error) {
	iat := s.now().Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   s.email,
		"scope": strings.Join(s.scopes, " "),
		"aud":   s.tokenURL,
		"iat":   iat,
		"exp":   iat + int64(assertionTTL.Seconds()),
		"sub":   subject,
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %w", err)
	}
	return signed, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token exchanges a freshly signed assertion for an access token acting as subject.
// Every failure is wrapped in adapter.ErrAuthFailure.
func (s *ServiceAccount) Token(ctx context.Context, subject string) (*oauth2.Token, error) {
	assertion, err := s.Assertion(subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", adapter.ErrAuthFailure, err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: building token request: %v", adapter.ErrAuthFailure, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token request: %v", adapter.ErrAuthFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading token response: %v", adapter.ErrAuthFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %w", adapter.ErrAuthFailure, &oauth2.RetrieveError{Response: resp, Body: body})
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decoding token response: %v", adapter.ErrAuthFailure, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access_token", adapter.ErrAuthFailure)
	}

	token := &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
	}
	if tr.ExpiresIn > 0 {
		token.Expiry = s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return token, nil
}

// GetClient returns an http.Client that sends a fresh bearer credential for subject.
func (s *ServiceAccount) GetClient(ctx context.Context, subject string) (*http.Client, error) {
	token, err := s.Token(ctx, subject)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)), nil
}

// ParsePrivateKey accepts a PEM encoded RSA key (PKCS#1 or PKCS#8) or a bare
// base64 PKCS#8 DER blob.
func ParsePrivateKey(s string) (*rsa.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-----BEGIN") {
		// Keys copied out of JSON key files keep their escaped newlines.
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(strings.ReplaceAll(s, `\n`, "\n")))
		if err != nil {
			return nil, fmt.Errorf("parsing PEM private key: %w", err)
		}
		return key, nil
	}

	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#8 private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}
