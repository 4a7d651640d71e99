package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfi/marketplace/pkg/keyfetcher"
)

const (
	testIssuer   = "marketplace"
	testAudience = "marketplace-api"
)

func generateTestKeyPair(t *testing.T) (*rsa.PrivateKey, keyfetcher.PublicKeyFetcher) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	publicBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicBytes})

	return privateKey, keyfetcher.From(func() ([]byte, error) { return pemBytes, nil })
}

func createValidClaims(userID uuid.UUID) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{testAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func createTestToken(t *testing.T, privateKey *rsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
	require.NoError(t, err)
	return token
}

func TestJWTAuthMiddleware_Handler(t *testing.T) {
	privateKey, fetcher := generateTestKeyPair(t)
	userID := uuid.New()

	newMiddleware := func() *JWTAuthMiddleware {
		return NewJWTAuthMiddleware(JWTConfig{
			KeyFetcher: fetcher,
			Issuer:     testIssuer,
			Audience:   testAudience,
		})
	}

	t.Run("should pass a valid token and set the user ID in context", func(t *testing.T) {
		var gotUserID uuid.UUID
		var gotOK bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID, gotOK = GetUserIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/gigs", nil)
		req.Header.Set("Authorization", "Bearer "+createTestToken(t, privateKey, createValidClaims(userID)))
		recorder := httptest.NewRecorder()

		newMiddleware().Handler(next).ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.True(t, gotOK)
		assert.Equal(t, userID, gotUserID)
	})

	t.Run("should reject invalid tokens", func(t *testing.T) {
		otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		testCases := map[string]func(t *testing.T) string{
			"missing authorization header": func(t *testing.T) string {
				return ""
			},
			"malformed authorization header": func(t *testing.T) string {
				return "Token abc"
			},
			"token signed with another key": func(t *testing.T) string {
				return "Bearer " + createTestToken(t, otherKey, createValidClaims(userID))
			},
			"expired token": func(t *testing.T) string {
				claims := createValidClaims(userID)
				claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
				return "Bearer " + createTestToken(t, privateKey, claims)
			},
			"missing expiration claim": func(t *testing.T) string {
				claims := createValidClaims(userID)
				claims.ExpiresAt = nil
				return "Bearer " + createTestToken(t, privateKey, claims)
			},
			"wrong issuer": func(t *testing.T) string {
				claims := createValidClaims(userID)
				claims.Issuer = "someone-else"
				return "Bearer " + createTestToken(t, privateKey, claims)
			},
			"wrong audience": func(t *testing.T) string {
				claims := createValidClaims(userID)
				claims.Audience = jwt.ClaimStrings{"another-api"}
				return "Bearer " + createTestToken(t, privateKey, claims)
			},
			"missing subject": func(t *testing.T) string {
				claims := createValidClaims(userID)
				claims.Subject = ""
				return "Bearer " + createTestToken(t, privateKey, claims)
			},
			"subject is not a user ID": func(t *testing.T) string {
				claims := createValidClaims(userID)
				claims.Subject = "not-a-uuid"
				return "Bearer " + createTestToken(t, privateKey, claims)
			},
			"token issued too far in the future": func(t *testing.T) string {
				claims := createValidClaims(userID)
				claims.IssuedAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
				return "Bearer " + createTestToken(t, privateKey, claims)
			},
		}

		for name, header := range testCases {
			t.Run(name, func(t *testing.T) {
				nextCalled := false
				next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					nextCalled = true
				})

				req := httptest.NewRequest(http.MethodPost, "/gigs", nil)
				if h := header(t); h != "" {
					req.Header.Set("Authorization", h)
				}
				recorder := httptest.NewRecorder()

				newMiddleware().Handler(next).ServeHTTP(recorder, req)

				assert.Equal(t, http.StatusUnauthorized, recorder.Code)
				assert.False(t, nextCalled, "handler must not run")
			})
		}
	})

	t.Run("should tolerate issued-at within the clock skew", func(t *testing.T) {
		claims := createValidClaims(userID)
		claims.IssuedAt = jwt.NewNumericDate(time.Now().Add(2 * time.Minute))

		next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/gigs", nil)
		req.Header.Set("Authorization", "Bearer "+createTestToken(t, privateKey, claims))
		recorder := httptest.NewRecorder()

		newMiddleware().Handler(next).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestGetUserIDFromContext(t *testing.T) {
	t.Run("should report absence on a bare context", func(t *testing.T) {
		_, ok := GetUserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
		assert.False(t, ok)
	})
}
