package http

import (
	"net/http"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/service"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

// DashboardHandler serves the landing page behind the full login flow.
type DashboardHandler struct {
	LoginService *service.LoginService
}

type dashboardPage struct {
	Username string
}

func (h *DashboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromCtx(ctx)

	user, err := h.LoginService.CurrentUser(ctx, sess)
	if err != nil {
		slogx.FromContext(ctx).Debug("dashboard without authenticated session", "err", err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderPage(w, r, http.StatusOK, "dashboard.html", dashboardPage{Username: user.Username})
}
