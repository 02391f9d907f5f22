package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Headers set by the authenticating proxy in front of the API.
const (
	HeaderOrganizationID = "X-Organization-ID"
	HeaderUserID         = "X-User-ID"
	HeaderUserRole       = "X-User-Role"

	RoleAdmin = "admin"
)

// Identity is the caller as vouched for by the auth proxy.
type Identity struct {
	OrganizationID string
	UserID         string
	Role           string
}

// IsAdmin reports whether the caller may use admin endpoints.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by Identify.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Identify reads the caller from the proxy headers. Requests with a user but
// no organization are rejected: every credit operation is organization scoped.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			OrganizationID: strings.TrimSpace(r.Header.Get(HeaderOrganizationID)),
			UserID:         strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:           strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
		}
		if id.OrganizationID == "" && !id.IsAdmin() {
			deny(w, http.StatusForbidden, "organization is not set for this user")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || !id.IsAdmin() {
			deny(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
