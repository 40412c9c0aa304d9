package platformfake

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	ContextKeyClaims  ContextKey = "claims"
	ContextKeyAccount ContextKey = "account"
)

// requireToken validates the Bearer token and injects its claims and account.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		claims, err := s.issuer.Parse(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", err.Error())
			return
		}
		platformGen, systemGen := s.generations()
		if (claims.TokenType == TokenTypePlatform && claims.Generation < platformGen) ||
			(claims.TokenType == TokenTypeSystem && claims.Generation < systemGen) {
			writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "token has expired")
			return
		}

		account, ok := s.directory.ByID(claims.UserID())
		if !ok || account.Blocked {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
		ctx = context.WithValue(ctx, ContextKeyAccount, account)
		next(w, r.WithContext(ctx))
	}
}

func claimsFrom(r *http.Request) *Claims {
	claims, _ := r.Context().Value(ContextKeyClaims).(*Claims)
	return claims
}

func accountFrom(r *http.Request) *Account {
	account, _ := r.Context().Value(ContextKeyAccount).(*Account)
	return account
}
