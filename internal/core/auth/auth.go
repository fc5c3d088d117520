// Package auth provides HMAC-based API key authentication for the HTTP API.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// tenantIDKey is the context key for the authenticated tenant ID.
const tenantIDKey = contextKey("tenant_id")

// Queries defines the database operations authentication needs.
// Implemented by *db.Queries.
type Queries interface {
	Get(name string, dest interface{}, args ...interface{}) error
	Exec(name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds an in-memory secret map for O(1) lookup and queries for key
// verification.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
}

// NewAuthenticator creates an authenticator with HMAC secrets and a
// query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
	}
}

// Authenticate validates an API key and returns the tenant ID on
// success. Each failure mode has a distinct sentinel error.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	computedHash := ComputeHMAC(secret, apiKey)

	// key_hash carries a unique constraint, so at most one row matches
	var result struct {
		APIKeyID   string         `db:"api_key_id"`
		TenantID   string         `db:"tenant_id"`
		RevokedAt  sql.NullString `db:"revoked_at"`
		LastUsedAt sql.NullString `db:"last_used_at"`
	}

	err = a.queries.Get("get-api-key-by-hash", &result, computedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("database error: %w", err)
	}

	if result.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// 1-minute throttle on last_used_at keeps write amplification down
	// for chatty clients
	if shouldUpdateLastUsed(result.LastUsedAt) {
		_, _ = a.queries.Exec("update-last-used",
			time.Now().UTC().Format(time.RFC3339Nano), result.APIKeyID)
	}

	return result.TenantID, nil
}

func shouldUpdateLastUsed(lastUsed sql.NullString) bool {
	if !lastUsed.Valid {
		return true
	}
	t, err := time.Parse(time.RFC3339Nano, lastUsed.String)
	if err != nil {
		return true
	}
	return time.Since(t) > time.Minute
}

// Middleware returns HTTP middleware that authenticates requests via
// the X-Api-Key header and injects the tenant ID into the request
// context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-Api-Key")
		if apiKey == "" {
			http.Error(w, ErrMissingKey.Error(), http.StatusUnauthorized)
			return
		}

		tenantID, err := a.Authenticate(r.Context(), apiKey)
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				http.Error(w, err.Error(), http.StatusForbidden)
			case errors.Is(err, ErrInvalidKeyFormat), errors.Is(err, ErrUnknownKey), errors.Is(err, ErrInvalidKey):
				http.Error(w, err.Error(), http.StatusUnauthorized)
			default:
				// database failure, not a credential problem
				http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithTenantID(r.Context(), tenantID)))
	})
}

// ContextWithTenantID returns a context carrying the authenticated tenant ID.
func ContextWithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantIDFromContext extracts the tenant ID from a request context.
// Returns the empty string if not present.
func TenantIDFromContext(ctx context.Context) string {
	if tenantID, ok := ctx.Value(tenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}
