package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gatehouselabs/gatehouse/pkg/httpx"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// renderPage writes an HTML page. Pages in this flow carry challenge codes
// and MFA material, so caching is always disabled.
func renderPage(w http.ResponseWriter, r *http.Request, code int, name string, data any) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		slogx.FromContext(r.Context()).Error("template render failed", "template", name, "err", err)
	}
}
