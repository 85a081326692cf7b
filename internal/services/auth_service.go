package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"eboto/config"
	"eboto/internal/access"
	eboto_errors "eboto/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService validates bearer tokens minted by the identity provider.
// Sign-in itself happens outside this service.
type AuthService struct {
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: time.Hour,
	}
}

type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, eboto_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eboto_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, eboto_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, eboto_errors.ErrUnauthorized
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return AccessClaims{}, eboto_errors.ErrUnauthorized
	}

	return *claims, nil
}

// Principal resolves a bearer token to an authenticated principal.
func (s *AuthService) Principal(tokenString string) (access.Principal, error) {
	claims, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return access.Anonymous(), err
	}
	userID, _ := uuid.Parse(claims.Subject)
	return access.Authenticated(userID, claims.Email), nil
}

// IssueAccessToken mints a token the same way the identity provider does.
// Used by the dev seed and tests.
func (s *AuthService) IssueAccessToken(userID uuid.UUID, email string, now time.Time) (string, error) {
	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, eboto_errors.ErrNotAVoter):
		return http.StatusForbidden
	case errors.Is(err, eboto_errors.ErrAlreadyVoted), errors.Is(err, eboto_errors.ErrElectionNotOpen):
		return http.StatusConflict
	case errors.Is(err, eboto_errors.ErrInvalidSelectionCount), errors.Is(err, eboto_errors.ErrInvalidCandidate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, eboto_errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, eboto_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, eboto_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, eboto_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, eboto_errors.ErrAlreadyExists), errors.Is(err, eboto_errors.ErrConflict),
		errors.Is(err, eboto_errors.ErrVotingStarted), errors.Is(err, eboto_errors.ErrElectionNotEnded):
		return http.StatusConflict
	case errors.Is(err, eboto_errors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, eboto_errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type ctxKey string

var principalKey ctxKey = "principal"

func WithPrincipal(ctx context.Context, p access.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the anonymous principal when none is set.
func PrincipalFromContext(ctx context.Context) access.Principal {
	p, ok := ctx.Value(principalKey).(access.Principal)
	if !ok {
		return access.Anonymous()
	}
	return p
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p := PrincipalFromContext(ctx)
	return p.UserID, p.Authenticated
}
