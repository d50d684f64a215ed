package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	httpapi "github.com/gatehouselabs/gatehouse/internal/gatehouse/http"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/service"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/gatehouselabs/gatehouse/pkg/cryptox"
	"github.com/gatehouselabs/gatehouse/pkg/idx"
	"github.com/gatehouselabs/gatehouse/pkg/jwtx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "gatehouse-e2e-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

type env struct {
	store  store.Store
	server *httptest.Server
	client *http.Client
}

// startServer assembles the full service stack on a file-backed database and
// serves it over a real listener, the same wiring the application does at
// boot minus the process lifecycle.
func startServer(t *testing.T) *env {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "gatehouse.db")
	st, err := sqlite.NewStore("file:" + dbPath + "?_busy_timeout=5000&_journal_mode=WAL")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	key, err := cryptox.LoadOrGenerateKeyFile(filepath.Join(t.TempDir(), "session.key"), 32)
	require.NoError(t, err)

	sessions := &service.SessionService{
		Store:  st,
		Signer: jwtx.NewSessionSigner(key, "gatehouse-e2e"),
	}
	login := &service.LoginService{
		Store:      st,
		Limiter:    service.NewOriginLimiter(),
		Failures:   &service.FailureTracker{Store: st},
		Challenges: &service.ChallengeManager{Store: st},
		MFA:        &service.MFAService{Store: st, Issuer: "gatehouse-e2e"},
		Sessions:   sessions,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter("e2e", st, sessions, logger)
	router.LoginService = login
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &env{
		store:  st,
		server: srv,
		client: &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

func (e *env) seedUser(t *testing.T, ctx context.Context) {
	t.Helper()
	boot := &service.BootstrapService{Store: e.store}
	require.NoError(t, boot.EnsureSeedUser(ctx))
}

func (e *env) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *env) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestFullLoginJourney(t *testing.T) {
	ctx := context.Background()
	e := startServer(t)
	e.seedUser(t, ctx)

	// The seed admin password is random; walk the flow with a second
	// account created with a known password.
	_, err := e.store.Users().GetUserByUsername(ctx, "admin")
	require.NoError(t, err)

	password := "e2e battery staple"
	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, e.store.Users().CreateUser(ctx, domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	// Login page is up.
	resp, body := e.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Sign in")

	// Wrong password is rejected in place.
	resp, body = e.postForm(t, "/", url.Values{"username": {"alice"}, "password": {"nope"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Invalid username or password")

	// Correct password: the client follows the redirect to enrollment.
	resp, body = e.postForm(t, "/", url.Values{"username": {"alice"}, "password": {password}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasSuffix(resp.Request.URL.Path, "/mfa/setup"))
	require.Contains(t, body, "authenticator app")

	// The provisioned secret appears on the page and in the store.
	user, err := e.store.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user.TOTPSecret)
	require.Contains(t, body, *user.TOTPSecret)

	// Confirm enrollment with a live code; we land on the dashboard.
	code, err := totp.GenerateCodeCustom(*user.TOTPSecret, time.Now(), totp.ValidateOpts{
		Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	resp, body = e.postForm(t, "/mfa/setup", url.Values{"code": {code}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasSuffix(resp.Request.URL.Path, "/dashboard"))
	require.Contains(t, body, "Welcome, alice")

	// Logout drops the session and the dashboard is gone.
	resp, _ = e.postForm(t, "/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = e.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Sign in")

	// A fresh login now asks for a code instead of enrollment.
	resp, body = e.postForm(t, "/", url.Values{"username": {"alice"}, "password": {password}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasSuffix(resp.Request.URL.Path, "/mfa/verify"))
	require.Contains(t, body, "Two-factor authentication")
}

func TestHealthProbes(t *testing.T) {
	e := startServer(t)

	resp, body := e.get(t, "/livez")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"status":"ok"`)

	resp, body = e.get(t, "/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"database":"ok"`)
}
