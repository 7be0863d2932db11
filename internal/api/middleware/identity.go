package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
)

// DefaultUserIDHeader carries the caller identity when none is configured.
const DefaultUserIDHeader = "X-User-Id"

// IdentityMiddleware trusts an upstream gateway to put the caller identity
// in a request header. It does not authenticate the caller.
type IdentityMiddleware struct {
	header      string
	adminUserID string
}

// NewIdentityMiddleware reads the identity from header; adminUserID is the
// identity allowed through RequireAdmin.
func NewIdentityMiddleware(header, adminUserID string) *IdentityMiddleware {
	if header == "" {
		header = DefaultUserIDHeader
	}
	return &IdentityMiddleware{
		header:      header,
		adminUserID: adminUserID,
	}
}

// RequireIdentity rejects requests without a non-blank identity header with
// 401 and otherwise stores the identity in the request context.
func (m *IdentityMiddleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(m.header))
		if userID == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, m.header+" header required")
			return
		}

		ctx := shared.WithUserID(r.Context(), userID)
		log := logger.FromContextOrDefault(ctx, slog.Default())
		ctx = logger.WithLogger(ctx, log.With(slog.String("user_id", userID)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only the admin identity through; everyone else gets
// 403. It must run after RequireIdentity.
func (m *IdentityMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := shared.GetUserID(r.Context())
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, m.header+" header required")
			return
		}
		if m.adminUserID == "" || userID != m.adminUserID {
			logger.FromContextOrDefault(r.Context(), slog.Default()).
				Warn("non-admin caller rejected from admin route", slog.String("path", r.URL.Path))
			shared.RespondWithError(w, r, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}
