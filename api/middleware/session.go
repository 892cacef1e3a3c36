package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// SessionHeader carries the opaque shopper session id in both directions.
const SessionHeader = "X-Session-Id"

const maxSessionIDLength = 128

// Session binds the shopper session to the request. A missing or malformed id is replaced
// with a fresh one, and the effective id is always echoed back so the client can keep it.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if !validOpaqueID(sessionID, maxSessionIDLength) {
				sessionID = uuid.NewString()
			}

			w.Header().Set(SessionHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validOpaqueID accepts ids made of letters, digits, '-' and '_' that fit in
// max bytes. Anything else is never echoed back to the client.
func validOpaqueID(id string, max int) bool {
	if id == "" || len(id) > max {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
