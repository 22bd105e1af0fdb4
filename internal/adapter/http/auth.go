package httpadapter

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crowdfund-escrow/internal/core/domain"
)

type callerKey struct{}

// Authenticate returns middleware that verifies an HS256 bearer token and
// stores its subject as the caller identity in the request context.
func Authenticate(secret []byte, issuer string) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				writeErrorMessage(w, http.StatusUnauthorized, "bearer token required")
				return
			}

			var claims jwt.RegisteredClaims
			if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
				writeErrorMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}
			caller, err := domain.ParseIdentity(claims.Subject)
			if err != nil {
				writeErrorMessage(w, http.StatusUnauthorized, "token has no subject")
				return
			}

			ctx := context.WithValue(r.Context(), callerKey{}, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Caller returns the identity stored by Authenticate.
func Caller(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(callerKey{}).(domain.Identity)
	return id, ok
}

// IssueToken signs an HS256 token for subject. It is used by tooling and
// tests to act as an account.
func IssueToken(secret []byte, issuer string, subject domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(subject),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
