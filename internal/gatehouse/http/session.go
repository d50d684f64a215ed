package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/service"
	"github.com/gatehouselabs/gatehouse/pkg/httpx"
)

// SessionCookieName is the cookie carrying the signed session reference.
const SessionCookieName = "gatehouse_session"

type ctxKey string

const ctxKeySession ctxKey = "login_session"

// sessionFromCtx returns the resolved session for the request, or nil when
// the request is anonymous.
func sessionFromCtx(ctx context.Context) *domain.LoginSession {
	if s, ok := ctx.Value(ctxKeySession).(*domain.LoginSession); ok {
		return s
	}
	return nil
}

// SessionMiddleware resolves the session cookie into a server-side session
// and attaches it to the request context. A missing, tampered or expired
// cookie simply leaves the request anonymous.
func SessionMiddleware(sessions *service.SessionService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			sess, ok := sessions.Resolve(r.Context(), cookie.Value)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeySession, &sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// setSessionCookie installs the signed session reference on the response.
func setSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie on the client.
func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
