package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/service"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
	"github.com/gatehouselabs/gatehouse/pkg/httpx"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	LoginService   *service.LoginService
	SessionService *service.SessionService
	SecureCookies  bool
}

func NewRouter(buildVersion string, st store.Store, sessions *service.SessionService, logger *slog.Logger) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		store:          st,
		SessionService: sessions,
		logger:         logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		SessionMiddleware(r.SessionService),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerMFA()
	r.registerDashboard()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	h := &LoginHandler{
		LoginService:   r.LoginService,
		SessionService: r.SessionService,
		SecureCookies:  r.SecureCookies,
	}

	// GET / - lenient rate limit (just renders the form)
	r.Mux.Handle("GET /{$}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST / - no page-level limiter; credential submissions are throttled
	// per source address by the login service's sliding window, which has
	// to see every attempt to count it.
	r.Mux.Handle("POST /{$}", http.HandlerFunc(h.HandlePost))

	logoutHandler := &LogoutHandler{LoginService: r.LoginService, SecureCookies: r.SecureCookies}
	logout := httpx.Chain(http.HandlerFunc(logoutHandler.Handle),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
	r.Mux.Handle("GET /logout", logout)
	r.Mux.Handle("POST /logout", logout)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{
		LoginService:  r.LoginService,
		SecureCookies: r.SecureCookies,
	}

	r.Mux.Handle("GET /mfa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetupGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Code submissions get the strict limit to slow down TOTP brute force.
	r.Mux.Handle("POST /mfa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetupPost),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /mfa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /mfa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyPost),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerDashboard() {
	h := &DashboardHandler{LoginService: r.LoginService}

	r.Mux.Handle("GET /dashboard",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
