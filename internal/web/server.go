package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cfumo/irc-stats/internal/config"
	"github.com/cfumo/irc-stats/internal/engine"
	"github.com/cfumo/irc-stats/internal/nicks"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server renders the chat archive UI on top of a query engine.
type Server struct {
	log   *slog.Logger
	cfg   *config.Server
	eng   engine.Engine
	nicks *nicks.Table
	tpl   *template.Template
}

// NewServer parses the embedded templates and wires up a server.
func NewServer(cfg *config.Server, log *slog.Logger, eng engine.Engine, table *nicks.Table) (*Server, error) {
	s := &Server{log: log, cfg: cfg, eng: eng, nicks: table}

	tpl, err := template.New("").Funcs(template.FuncMap{
		"monthName":   monthName,
		"daysInMonth": daysInMonth,
		"seq":         seq,
		"colorForNick": func(nick string) template.CSS {
			return template.CSS(colorForNick(nick))
		},
		"lineTime": lineTime,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.tpl = tpl
	return s, nil
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/query", s.handleQuery)
	r.Get("/browse", s.handleBrowse)
	r.Get("/browse/{year}/{month}/{day}", s.handleBrowseDay)
	r.Get("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("render template", slog.String("template", name), slog.Any("err", err))
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!doctype html><title>error</title><p>%s</p>", template.HTMLEscapeString(msg))
}
