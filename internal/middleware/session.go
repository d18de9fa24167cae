package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderSessionID      = "X-Session-Id"
	DefaultSessionCookie = "sid"
	sessionMaxAge        = 30 * 24 * time.Hour
)

// session ids become storage keys, so only a conservative alphabet is accepted
var validSessionID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// Session gives every request a cart session id. An explicit X-Session-Id
// header wins over the cookie; a missing or malformed id is replaced by a
// fresh uuid and sent back as an HttpOnly cookie.
func Session(cookieName string, secure bool) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := r.Header.Get(HeaderSessionID)
			if sid == "" {
				if c, err := r.Cookie(cookieName); err == nil {
					sid = c.Value
				}
			}

			if !validSessionID.MatchString(sid) {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(sessionMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(HeaderSessionID, sid)

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sid)))
		})
	}
}

func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, ctxSessionID, sid)
}

func GetSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}
