package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// AnonymousUserID attributes writes made without a resolved caller identity.
const AnonymousUserID int64 = 0

// ContextWithUserID returns a new context that carries the authenticated user id.
func ContextWithUserID(ctx context.Context, id int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext retrieves the authenticated user id from the context, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	value := ctx.Value(userIDKey)
	if value == nil {
		return 0, false
	}
	id, ok := value.(int64)
	if !ok || id < 0 {
		return 0, false
	}
	return id, true
}

// CurrentUserID resolves the caller for audit attribution, anonymous when the
// request carried no identity.
func CurrentUserID(ctx context.Context) int64 {
	if id, ok := UserIDFromContext(ctx); ok {
		return id
	}
	return AnonymousUserID
}

// Middleware resolves the current user from the X-User-ID header into the
// request context. Session validation lives outside this service; a malformed
// header simply yields an anonymous caller.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id >= 0 {
				r = r.WithContext(ContextWithUserID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}
