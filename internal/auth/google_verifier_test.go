package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type googleFixture struct {
	privateKey *rsa.PrivateKey
	server     *httptest.Server
	idToken    string
}

func newGoogleFixture(t *testing.T, claims jwt.MapClaims) *googleFixture {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwk := map[string]string{
		"kty": "RSA",
		"alg": "RS256",
		"kid": "test-key",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(privateKey.PublicKey.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(privateKey.PublicKey.E)).Bytes()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signedToken, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	fixture := &googleFixture{privateKey: privateKey, idToken: signedToken}
	fixture.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/certs":
			_ = json.NewEncoder(w).Encode(map[string]any{"keys": []any{jwk}})
		case "/token":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			if err := r.ParseForm(); err != nil || r.PostFormValue("code") == "" {
				http.Error(w, "invalid_grant", http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"id_token": fixture.idToken})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fixture.server.Close)
	return fixture
}

func investorClaims(email string, verified bool) jwt.MapClaims {
	now := time.Now().UTC()
	return jwt.MapClaims{
		"aud":            "test-client",
		"iss":            "https://accounts.google.com",
		"sub":            "user-123",
		"email":          email,
		"email_verified": verified,
		"exp":            now.Add(5 * time.Minute).Unix(),
		"iat":            now.Unix(),
	}
}

func (f *googleFixture) verifier(t *testing.T) *GoogleVerifier {
	t.Helper()
	verifier, err := NewGoogleVerifier(GoogleVerifierConfig{
		Audience:      "test-client",
		ClientSecret:  "test-secret",
		JWKSURL:       f.server.URL + "/certs",
		TokenEndpoint: f.server.URL + "/token",
		HTTPClient:    f.server.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return verifier
}

func TestGoogleVerifierResolvesVerifiedEmail(t *testing.T) {
	fixture := newGoogleFixture(t, investorClaims("Partner@Example.com ", true))
	verifier := fixture.verifier(t)

	claims, err := verifier.VerifyIDToken(context.Background(), fixture.idToken)
	if err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
	if claims.Email != "partner@example.com" {
		t.Fatalf("expected normalized email, got %q", claims.Email)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
}

func TestGoogleVerifierRejectsUnverifiedEmail(t *testing.T) {
	fixture := newGoogleFixture(t, investorClaims("partner@example.com", false))
	verifier := fixture.verifier(t)

	if _, err := verifier.VerifyIDToken(context.Background(), fixture.idToken); err == nil {
		t.Fatalf("expected verification to fail for unverified email")
	}
}

func TestGoogleVerifierRejectsMissingEmail(t *testing.T) {
	claims := investorClaims("", true)
	delete(claims, "email")
	fixture := newGoogleFixture(t, claims)
	verifier := fixture.verifier(t)

	if _, err := verifier.VerifyIDToken(context.Background(), fixture.idToken); err == nil {
		t.Fatalf("expected verification to fail for missing email claim")
	}
}

func TestGoogleVerifierExchangesAuthorizationCode(t *testing.T) {
	fixture := newGoogleFixture(t, investorClaims("partner@example.com", true))
	verifier := fixture.verifier(t)

	claims, err := verifier.ExchangeCode(context.Background(), "auth-code-1", "https://site.example/popup")
	if err != nil {
		t.Fatalf("expected code exchange to succeed: %v", err)
	}
	if claims.Email != "partner@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}

	if _, err := verifier.ExchangeCode(context.Background(), "", ""); err == nil {
		t.Fatalf("expected empty code to be rejected")
	}
}

func TestNewGoogleVerifierRequiresAudienceAndJWKS(t *testing.T) {
	_, err := NewGoogleVerifier(GoogleVerifierConfig{
		Audience: "",
		JWKSURL:  "https://example.com/jwks",
	})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}
	if !strings.Contains(err.Error(), errMissingAudienceConfig.Error()) {
		t.Fatalf("expected audience validation error to be reported, got %v", err)
	}

	_, err = NewGoogleVerifier(GoogleVerifierConfig{
		Audience: "test-client",
		JWKSURL:  " ",
	})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}
	if !strings.Contains(err.Error(), errMissingJWKSURL.Error()) {
		t.Fatalf("expected jwks validation error to be reported, got %v", err)
	}
}

func TestNewGoogleVerifierRejectsEmptyIssuerList(t *testing.T) {
	_, err := NewGoogleVerifier(GoogleVerifierConfig{
		Audience:       "test-client",
		JWKSURL:        "https://example.com/jwks",
		AllowedIssuers: []string{"", "   "},
	})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}
	if !strings.Contains(err.Error(), errNoAllowedIssuers.Error()) {
		t.Fatalf("expected allowed issuers validation error to be reported, got %v", err)
	}
}
