package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"time"

	"eboto/config"
	eboto_errors "eboto/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// SchedulerClaims authenticate one cron trigger. Subject is the request
// path and Body the base64url SHA-256 of the raw request body.
type SchedulerClaims struct {
	Body string `json:"body"`
	jwt.RegisteredClaims
}

// SchedulerVerifier checks the X-Scheduler-Signature header. Both the
// current and the next signing key are accepted so keys can rotate.
type SchedulerVerifier struct {
	keys   [][]byte
	issuer string
	leeway time.Duration
}

func NewSchedulerVerifier(cfg *config.Config) *SchedulerVerifier {
	return &SchedulerVerifier{
		keys:   cfg.SchedulerKeys(),
		issuer: cfg.SchedulerIssuer,
		leeway: 30 * time.Second,
	}
}

func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (v *SchedulerVerifier) Verify(token, path string, body []byte, now time.Time) error {
	if token == "" || len(v.keys) == 0 {
		return eboto_errors.ErrUnauthorized
	}

	for _, key := range v.keys {
		var claims SchedulerClaims
		_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(v.issuer),
			jwt.WithSubject(path),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(v.leeway),
			jwt.WithTimeFunc(func() time.Time { return now }),
		)
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			continue
		}
		if err != nil {
			return eboto_errors.ErrUnauthorized
		}
		if subtle.ConstantTimeCompare([]byte(claims.Body), []byte(BodyHash(body))) != 1 {
			return eboto_errors.ErrUnauthorized
		}
		return nil
	}
	return eboto_errors.ErrUnauthorized
}

// Sign produces a signature with the current key, the way the external
// scheduler does.
func (v *SchedulerVerifier) Sign(path string, body []byte, now time.Time, ttl time.Duration) (string, error) {
	if len(v.keys) == 0 {
		return "", errors.New("no scheduler signing key configured")
	}
	claims := SchedulerClaims{
		Body: BodyHash(body),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   path,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.keys[0])
}
