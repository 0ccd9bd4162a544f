package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
}

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(testSecret, "authenticated")

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExp := validClaims()
	noExp.ExpiresAt = nil

	wrongAud := validClaims()
	wrongAud.Audience = jwt.ClaimStrings{"anon"}

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name    string
		token   string
		wantID  string
		wantErr error
	}{
		{"valid", signToken(t, testSecret, jwt.SigningMethodHS256, validClaims()), "user-1", nil},
		{"wrong secret", signToken(t, "another-secret", jwt.SigningMethodHS256, validClaims()), "", errInvalidToken},
		{"wrong algorithm", signToken(t, testSecret, jwt.SigningMethodHS512, validClaims()), "", errInvalidToken},
		{"expired", signToken(t, testSecret, jwt.SigningMethodHS256, expired), "", errInvalidToken},
		{"no expiry", signToken(t, testSecret, jwt.SigningMethodHS256, noExp), "", errInvalidToken},
		{"wrong audience", signToken(t, testSecret, jwt.SigningMethodHS256, wrongAud), "", errInvalidToken},
		{"no subject", signToken(t, testSecret, jwt.SigningMethodHS256, noSubject), "", errMissingClaims},
		{"garbage", "not.a.jwt", "", errInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestVerifier_Verify_NoAudience(t *testing.T) {
	v := NewVerifier(testSecret, "")
	claims := validClaims()
	claims.Audience = nil

	id, err := v.Verify(signToken(t, testSecret, jwt.SigningMethodHS256, claims))

	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}

func TestVerifier_Middleware(t *testing.T) {
	v := NewVerifier(testSecret, "authenticated")
	var gotUserID string
	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"valid", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims()), http.StatusNoContent, ""},
		{"lowercase scheme", "bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims()), http.StatusNoContent, ""},
		{"missing header", "", http.StatusUnauthorized, "missing authorization header"},
		{"basic auth", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "invalid authorization header format"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "invalid authorization header format"},
		{"bad token", "Bearer abc.def.ghi", http.StatusUnauthorized, "invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError == "" {
				assert.Equal(t, "user-1", gotUserID)
				return
			}
			assert.Empty(t, gotUserID)

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestUserIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, UserIDFromContext(req.Context()))
}
