package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		OrgID: "org-1",
		KBID:  "kb-1",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthenticate_ValidJWT(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/query", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, time.Now().Add(time.Hour)))

	id := Authenticate(r, testSecret, nil)
	assert.Equal(t, VerdictValid, id.Verdict)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "org-1", id.OrgID)
	assert.Equal(t, "kb-1", id.KBID)
	assert.Equal(t, "jwt", id.Method)
}

func TestAuthenticate_ExpiredIsDistinctFromInvalid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/query", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, time.Now().Add(-time.Hour)))
	assert.Equal(t, VerdictExpired, Authenticate(r, testSecret, nil).Verdict)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/query", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", time.Now().Add(time.Hour)))
	assert.Equal(t, VerdictInvalid, Authenticate(r, testSecret, nil).Verdict)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/query", nil)
	assert.Equal(t, VerdictInvalid, Authenticate(r, testSecret, nil).Verdict)
}

func TestAuthenticate_APIKey(t *testing.T) {
	keys := []string{"key-a", "key-b"}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/query", nil)
	r.Header.Set("X-API-Key", "key-b")
	id := Authenticate(r, testSecret, keys)
	assert.Equal(t, VerdictValid, id.Verdict)
	assert.Equal(t, "api_key", id.Method)
	assert.Empty(t, id.UserID)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/query", nil)
	r.Header.Set("X-API-Key", "key-c")
	assert.Equal(t, VerdictInvalid, Authenticate(r, testSecret, keys).Verdict)
}

func TestAuth_MiddlewareStoresIdentity(t *testing.T) {
	var got Identity
	handler := Auth(testSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/v1/query", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", got.UserID)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/query", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
