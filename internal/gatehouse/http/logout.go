package http

import (
	"net/http"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/service"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

// LogoutHandler tears down the session and drops the cookie. It is safe to
// hit without a session at all, and answers both GET and POST so plain
// links work alongside forms.
type LogoutHandler struct {
	LoginService  *service.LoginService
	SecureCookies bool
}

func (h *LogoutHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.LoginService.Logout(ctx, sessionFromCtx(ctx)); err != nil {
		slogx.FromContext(ctx).Error("logout failed", "err", err)
	}
	clearSessionCookie(w, h.SecureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
