package http

import (
	"errors"
	"net/http"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/service"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

const (
	msgInvalidCode        = "Invalid code"
	msgTooManyMFAAttempts = "Too many incorrect codes. Please sign in again."
)

// MFAHandler serves enrollment and verification of the second factor. Both
// endpoints require a pending identity from a completed password step; any
// request without one is redirected to the login start without evaluating
// anything.
type MFAHandler struct {
	LoginService  *service.LoginService
	SecureCookies bool
}

type mfaSetupPage struct {
	Error  string
	Secret string
	URI    string
}

type mfaVerifyPage struct {
	Error string
}

func (h *MFAHandler) HandleSetupGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromCtx(ctx)
	if redirectAuthenticated(w, r, sess) {
		return
	}

	data, err := h.LoginService.Enrollment(ctx, sess)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyEnrolled) {
			http.Redirect(w, r, "/mfa/verify", http.StatusSeeOther)
			return
		}
		h.redirectOnMFAError(w, r, err)
		return
	}
	renderPage(w, r, http.StatusOK, "mfa_setup.html", mfaSetupPage{Secret: data.Secret, URI: data.URI})
}

func (h *MFAHandler) HandleSetupPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromCtx(ctx)
	if redirectAuthenticated(w, r, sess) {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/mfa/setup", http.StatusSeeOther)
		return
	}

	err := h.LoginService.ConfirmEnrollment(ctx, sess, r.PostFormValue("code"))
	if err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if errors.Is(err, service.ErrAlreadyEnrolled) {
		http.Redirect(w, r, "/mfa/verify", http.StatusSeeOther)
		return
	}
	if errors.Is(err, service.ErrInvalidMFACode) {
		data, derr := h.LoginService.Enrollment(ctx, sess)
		if derr != nil {
			h.redirectOnMFAError(w, r, derr)
			return
		}
		renderPage(w, r, http.StatusOK, "mfa_setup.html", mfaSetupPage{
			Error:  msgInvalidCode,
			Secret: data.Secret,
			URI:    data.URI,
		})
		return
	}
	h.redirectOnMFAError(w, r, err)
}

func (h *MFAHandler) HandleVerifyGet(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())
	if redirectAuthenticated(w, r, sess) {
		return
	}
	if sess == nil || sess.PendingUserID == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderPage(w, r, http.StatusOK, "mfa_verify.html", mfaVerifyPage{})
}

func (h *MFAHandler) HandleVerifyPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromCtx(ctx)
	if redirectAuthenticated(w, r, sess) {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/mfa/verify", http.StatusSeeOther)
		return
	}

	err := h.LoginService.VerifyCode(ctx, sess, r.PostFormValue("code"))
	if err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if errors.Is(err, service.ErrInvalidMFACode) {
		renderPage(w, r, http.StatusOK, "mfa_verify.html", mfaVerifyPage{Error: msgInvalidCode})
		return
	}
	h.redirectOnMFAError(w, r, err)
}

// redirectOnMFAError sends the user back to the login start. A missing
// pending identity is the expected case and not surfaced as a failure; a
// destroyed session additionally drops the cookie.
func (h *MFAHandler) redirectOnMFAError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrTooManyMFAAttempts):
		clearSessionCookie(w, h.SecureCookies)
	case errors.Is(err, service.ErrNoPendingLogin):
		// nothing to clean up
	default:
		slogx.FromContext(r.Context()).Error("MFA step failed", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
