package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	sessionTokenType  = "admin"
	defaultSessionTTL = 30 * 24 * time.Hour
)

// ErrMissingSigningSecret indicates the codec was constructed without a secret.
// Issuing a token in that state is a deployment error, not an auth failure.
var ErrMissingSigningSecret = errors.New("auth: signing secret must be provided")

type sessionPayload struct {
	Type string `json:"type"`
	Exp  int64  `json:"exp"`
}

// SessionTokenConfig configures the admin session token codec.
type SessionTokenConfig struct {
	SigningSecret []byte
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// SessionTokenCodec issues and verifies compact signed admin session tokens.
// A token is base64(raw-url) JSON payload, a dot, and a base64(raw-url)
// HMAC-SHA256 signature over the encoded payload.
type SessionTokenCodec struct {
	signingSecret []byte
	tokenTTL      time.Duration
	clock         func() time.Time
}

// NewSessionTokenCodec constructs a codec with sane defaults.
func NewSessionTokenCodec(cfg SessionTokenConfig) *SessionTokenCodec {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionTokenCodec{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		tokenTTL:      ttl,
		clock:         clock,
	}
}

// TokenTTL exposes the configured token lifetime.
func (c *SessionTokenCodec) TokenTTL() time.Duration {
	return c.tokenTTL
}

// Issue produces a signed session token expiring after the configured TTL.
func (c *SessionTokenCodec) Issue() (string, error) {
	if len(c.signingSecret) == 0 {
		return "", ErrMissingSigningSecret
	}

	payload := sessionPayload{
		Type: sessionTokenType,
		Exp:  c.clock().UTC().Add(c.tokenTTL).Unix(),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return encoded + "." + c.sign(encoded), nil
}

// Verify reports whether the supplied token is authentic and unexpired.
// It never returns an error: any defect in the token, including a missing
// server secret, reads as an invalid session.
func (c *SessionTokenCodec) Verify(token string) bool {
	if len(c.signingSecret) == 0 {
		return false
	}

	segments := strings.Split(token, ".")
	if len(segments) != 2 {
		return false
	}
	encoded, signature := segments[0], segments[1]

	if !hmac.Equal([]byte(signature), []byte(c.sign(encoded))) {
		return false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	var payload sessionPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return false
	}
	if payload.Type != sessionTokenType {
		return false
	}
	return payload.Exp > c.clock().UTC().Unix()
}

func (c *SessionTokenCodec) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, c.signingSecret)
	_, _ = mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// HasTokenShape reports whether a candidate token is structurally plausible:
// exactly one dot separating two non-empty segments. It is the only check
// available at the edge, where the signing secret is not in scope.
func HasTokenShape(token string) bool {
	if strings.Count(token, ".") != 1 {
		return false
	}
	segments := strings.SplitN(token, ".", 2)
	return segments[0] != "" && segments[1] != ""
}
