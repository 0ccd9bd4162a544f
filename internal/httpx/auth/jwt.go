package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vadim/glance/internal/httpx/response"
)

type contextKey struct{}

var userIDKey = contextKey{}

var (
	errMissingToken  = errors.New("missing authorization header")
	errMalformed     = errors.New("invalid authorization header format")
	errInvalidToken  = errors.New("invalid or expired token")
	errMissingClaims = errors.New("token has no subject")
)

// Verifier validates bearer tokens issued by the hosted auth provider
type Verifier struct {
	secret   []byte
	audience string
}

// NewVerifier creates a verifier for HS256 tokens signed with secret.
// An empty audience skips the aud check.
func NewVerifier(secret, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), audience: audience}
}

// Verify parses the token and returns the authenticated user ID
func (v *Verifier) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", errInvalidToken
	}
	if claims.Subject == "" {
		return "", errMissingClaims
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token and stores the user ID in the context
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		userID, err := v.Verify(token)
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errMalformed
	}
	return parts[1], nil
}

// WithUserID returns a context carrying the authenticated user ID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user ID, or "" if absent
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
