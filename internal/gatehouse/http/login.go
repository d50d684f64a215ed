package http

import (
	"errors"
	"net/http"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/service"
	"github.com/gatehouselabs/gatehouse/pkg/httpx"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

// User-facing messages for login outcomes. Unknown-username and
// wrong-password share one message so accounts cannot be enumerated.
const (
	msgInvalidCredentials = "Invalid username or password"
	msgAccountLocked      = "Account locked. Try again later."
	msgRateLimited        = "Too many login attempts. Please wait a moment."
	msgCaptchaRequired    = "Please type the CAPTCHA code to continue."
	msgCaptchaMismatch    = "Incorrect CAPTCHA. New code generated."
	msgServerError        = "Something went wrong. Please try again."
)

// LoginHandler serves the login form and runs the password step.
type LoginHandler struct {
	LoginService   *service.LoginService
	SessionService *service.SessionService
	SecureCookies  bool
}

type loginPage struct {
	Error         string
	CaptchaNeeded bool
	CaptchaCode   string
}

func (h *LoginHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())
	if redirectAuthenticated(w, r, sess) {
		return
	}
	renderPage(w, r, http.StatusOK, "login.html", loginPageFor(sess, ""))
}

func (h *LoginHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sess := sessionFromCtx(ctx)
	if redirectAuthenticated(w, r, sess) {
		return
	}

	if err := r.ParseForm(); err != nil {
		renderPage(w, r, http.StatusBadRequest, "login.html", loginPageFor(sess, msgInvalidCredentials))
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	captcha := r.PostFormValue("captcha")

	if username == "" || password == "" {
		renderPage(w, r, http.StatusOK, "login.html", loginPageFor(sess, msgInvalidCredentials))
		return
	}

	// The captcha state has to survive across attempts, so every POST gets
	// a server-side session even while still anonymous.
	if sess == nil {
		created, token, err := h.SessionService.Begin(ctx)
		if err != nil {
			log.Error("failed to create session", "err", err)
			renderPage(w, r, http.StatusInternalServerError, "login.html", loginPage{Error: msgServerError})
			return
		}
		sess = &created
		setSessionCookie(w, token, created.ExpiresAt, h.SecureCookies)
	}

	result, err := h.LoginService.SubmitPassword(ctx, sess, username, password, captcha, httpx.ClientIP(r))
	if err != nil {
		status, msg := loginFailure(err)
		if status == http.StatusInternalServerError {
			log.Error("password step failed", "err", err)
		}
		renderPage(w, r, status, "login.html", loginPageFor(sess, msg))
		return
	}

	setSessionCookie(w, result.Token, result.Session.ExpiresAt, h.SecureCookies)
	switch result.Next {
	case service.StepMFASetup:
		http.Redirect(w, r, "/mfa/setup", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/mfa/verify", http.StatusSeeOther)
	}
}

func loginPageFor(sess *domain.LoginSession, msg string) loginPage {
	page := loginPage{Error: msg}
	if sess != nil && sess.CaptchaArmed() {
		page.CaptchaNeeded = true
		page.CaptchaCode = *sess.CaptchaCode
	}
	return page
}

// loginFailure maps a password-step error to a response status and message.
func loginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, service.ErrAccountLocked):
		return http.StatusOK, msgAccountLocked
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusOK, msgInvalidCredentials
	case errors.Is(err, service.ErrCaptchaRequired):
		return http.StatusOK, msgCaptchaRequired
	case errors.Is(err, service.ErrCaptchaMismatch):
		return http.StatusOK, msgCaptchaMismatch
	default:
		// Store or internal failure; never expose detail.
		return http.StatusInternalServerError, msgServerError
	}
}

// redirectAuthenticated short-circuits pages that only make sense while not
// signed in.
func redirectAuthenticated(w http.ResponseWriter, r *http.Request, sess *domain.LoginSession) bool {
	if sess != nil && sess.UserID != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return true
	}
	return false
}
