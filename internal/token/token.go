// Package token issues and verifies the three credential classes used by the
// exam platform: student logins, instructor logins, and exam attempts. Each
// namespace has its own signing secret and audience, so a credential from one
// namespace never verifies in another even if it reaches the wrong verifier.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Namespace identifies which credential class a token belongs to.
type Namespace string

const (
	NamespaceStudent    Namespace = "student-login"
	NamespaceInstructor Namespace = "instructor-login"
	NamespaceAttempt    Namespace = "exam-attempt"
)

// Default lifetimes: logins last days, an attempt credential long enough to
// outlast any exam's declared duration.
const (
	DefaultLoginTTL   = 72 * time.Hour
	DefaultAttemptTTL = 10 * time.Hour
)

var (
	// ErrMissing means no credential was presented at all.
	ErrMissing = errors.New("credential missing")
	// ErrExpired means the credential was valid but its lifetime has passed.
	ErrExpired = errors.New("credential expired")
	// ErrMalformed covers tampered, misshapen, or wrong-namespace credentials.
	ErrMalformed = errors.New("credential malformed")
)

// Claims is the payload carried by every credential. AttemptID is set only
// for exam-attempt credentials and names the answer record the attempt owns.
type Claims struct {
	SubjectID   string `json:"sub_id"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	AttemptID   string `json:"attempt_id,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies credentials for a single namespace.
type Issuer struct {
	ns     Namespace
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an issuer for one namespace. Secrets must differ per
// namespace; tests pass throwaway keys.
func NewIssuer(ns Namespace, secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{ns: ns, secret: secret, ttl: ttl, now: time.Now}
}

// NewIssuerWithClock is test-only for deterministic expiry.
func NewIssuerWithClock(ns Namespace, secret []byte, ttl time.Duration, now func() time.Time) *Issuer {
	return &Issuer{ns: ns, secret: secret, ttl: ttl, now: now}
}

// Namespace reports which credential class this issuer serves.
func (i *Issuer) Namespace() Namespace { return i.ns }

// TTL reports the configured credential lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a credential for the given principal.
func (i *Issuer) Issue(claims Claims) (string, error) {
	now := i.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{string(i.ns)},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		Issuer:    "exam-session-service",
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Verify checks the signature, expiry, and namespace of a raw credential.
// Failures are classified so the transport layer can tell the caller whether
// to re-login (expired) or fail the request (malformed/missing).
func (i *Issuer) Verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrMissing
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithAudience(string(i.ns)), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrMalformed
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrMalformed
	}
	return *claims, nil
}
