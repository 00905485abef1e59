// Package auth verifies bearer tokens and extracts the traveller identity.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"
)

var (
	// ErrInvalidToken means the token is malformed or its signature failed.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired means the token carries an exp claim in the past.
	ErrTokenExpired = errors.New("auth: token expired")
)

// Identity is the verified caller.
type Identity struct {
	UID  string
	Name string
}

// Verifier validates bearer tokens. Two modes:
//
//	dev  - the token IS the user id, no verification (local development)
//	hmac - HS256 JWT signed with a shared secret
type Verifier struct {
	mode     string
	secret   []byte
	uidClaim string
	now      func() time.Time
}

// NewVerifier creates a verifier in the given mode. secret is required for
// hmac mode and ignored otherwise.
func NewVerifier(mode string, secret []byte) *Verifier {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{mode: mode, secret: secret, uidClaim: "sub", now: time.Now}
}

// NewVerifierFromEnv builds a verifier from AUTH_MODE and AUTH_HMAC_SECRET.
func NewVerifierFromEnv() *Verifier {
	return NewVerifier(os.Getenv("AUTH_MODE"), []byte(os.Getenv("AUTH_HMAC_SECRET")))
}

// Verify checks the token and returns the caller's identity.
func (v *Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	if v.mode == "dev" {
		return Identity{UID: token}, nil
	}

	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Identity{}, ErrInvalidToken
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(segs[0] + "." + segs[1]))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return Identity{}, ErrInvalidToken
	}

	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Identity{}, ErrInvalidToken
	}
	if exp, ok := claims["exp"].(float64); ok {
		if v.now().After(time.Unix(int64(exp), 0)) {
			return Identity{}, ErrTokenExpired
		}
	}

	uid, _ := claims[v.uidClaim].(string)
	if uid == "" {
		return Identity{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	return Identity{UID: uid, Name: name}, nil
}

// SignHS256 mints an HS256 JWT for the given identity. Used by tests and the
// local token helper; production deployments mint tokens elsewhere.
func SignHS256(secret []byte, uid, name string, expires time.Time) string {
	header := b64urlEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims := map[string]any{"sub": uid}
	if name != "" {
		claims["name"] = name
	}
	if !expires.IsZero() {
		claims["exp"] = expires.Unix()
	}
	payloadJSON, _ := json.Marshal(claims)
	payload := b64urlEncode(payloadJSON)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(header + "." + payload))
	return header + "." + payload + "." + b64urlEncode(mac.Sum(nil))
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
func b64urlEncode(b []byte) string          { return base64.RawURLEncoding.EncodeToString(b) }
