// Package views renders the landing page and serves the browser assets.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/tss1979/timetracker/internal/middleware"
	"github.com/tss1979/timetracker/internal/utils"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var authErrorMessages = map[string]string{
	"true":     "Wrong username or password",
	"missing":  "Username and password are required",
	"password": "Password must be at most 72 bytes",
}

// AuthErrorMessage turns the authError query value into text for the page.
// Unknown values are shown as given.
func AuthErrorMessage(raw string) string {
	if msg, ok := authErrorMessages[raw]; ok {
		return msg
	}
	return raw
}

type indexData struct {
	Username  string
	AuthError string
}

type Renderer struct {
	templates *template.Template
	logger    *slog.Logger
}

func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	templates, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: templates, logger: logger}, nil
}

// IndexHandler shows the login and signup forms, or the timers for a signed
// in user.
func (v *Renderer) IndexHandler(w http.ResponseWriter, r *http.Request) {
	data := indexData{AuthError: AuthErrorMessage(r.URL.Query().Get("authError"))}
	if user, ok := utils.GetUserFromContext(r.Context()); ok {
		data.Username = user.Username
	}
	v.render(w, r, "index.html", data)
}

// StaticHandler serves the embedded assets; mount it under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (v *Renderer) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		v.logger.ErrorContext(r.Context(), "template execution failed",
			"template", name,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
