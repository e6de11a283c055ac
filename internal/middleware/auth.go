// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const identityKey ContextKey = "identity"

// Verdict classifies an authentication attempt. Expired tokens are
// distinguished from malformed or mis-signed ones so clients know to
// refresh rather than re-authenticate.
type Verdict int

const (
	VerdictInvalid Verdict = iota
	VerdictExpired
	VerdictValid
)

// Identity is the authenticated caller. Method is "jwt" or "api_key";
// API-key callers carry no user binding of their own.
type Identity struct {
	Verdict Verdict
	UserID  string
	OrgID   string
	KBID    string
	Method  string
}

// Claims are the JWT claims this service issues and accepts.
type Claims struct {
	jwt.RegisteredClaims
	OrgID string `json:"org_id"`
	KBID  string `json:"kb_id"`
}

// Authenticate classifies the request's credentials without touching the
// response, so callers can branch on the verdict.
func Authenticate(r *http.Request, jwtSecret string, apiKeys []string) Identity {
	if key := r.Header.Get("X-API-Key"); key != "" {
		for _, k := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(k)) == 1 {
				return Identity{Verdict: VerdictValid, Method: "api_key"}
			}
		}
		return Identity{Verdict: VerdictInvalid}
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return Identity{Verdict: VerdictInvalid}
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Identity{Verdict: VerdictInvalid}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{Verdict: VerdictExpired}
		}
		return Identity{Verdict: VerdictInvalid}
	}
	if !token.Valid {
		return Identity{Verdict: VerdictInvalid}
	}

	return Identity{
		Verdict: VerdictValid,
		UserID:  claims.Subject,
		OrgID:   claims.OrgID,
		KBID:    claims.KBID,
		Method:  "jwt",
	}
}

// Auth rejects requests without a valid JWT or API key and stores the
// identity in the request context.
func Auth(jwtSecret string, apiKeys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := Authenticate(r, jwtSecret, apiKeys)
			switch identity.Verdict {
			case VerdictExpired:
				http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
				return
			case VerdictInvalid:
				http.Error(w, `{"error":"invalid or missing credentials"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity gets the authenticated identity from context.
func GetIdentity(ctx context.Context) Identity {
	if v, ok := ctx.Value(identityKey).(Identity); ok {
		return v
	}
	return Identity{Verdict: VerdictInvalid}
}

// GetUserID gets the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	return GetIdentity(ctx).UserID
}

// GetOrgID gets the authenticated org ID from context.
func GetOrgID(ctx context.Context) string {
	return GetIdentity(ctx).OrgID
}
