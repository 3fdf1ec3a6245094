// Package webtui serves the terminal screen to a browser: every WebSocket
// connection runs `etapas` in a PTY and pipes it to xterm.js.
package webtui

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

//go:embed templates/*.html static/*.css static/*.js
var assetsFS embed.FS

var staticTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "text/javascript; charset=utf-8",
}

type ServerConfig struct {
	Addr string
	// APIBaseURL, APIToken and Theme are forwarded to the child TUI.
	APIBaseURL string
	APIToken   string
	Theme      string
	// Command replaces the child argv. Tests use it; normally this binary runs.
	Command []string
	Logger  *slog.Logger
}

type Server struct {
	cfg  ServerConfig
	page *template.Template
	log  *slog.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("webtui: missing addr")
	}
	page, err := template.ParseFS(assetsFS, "templates/terminal.html")
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg, page: page, log: cfg.Logger}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", http.RedirectHandler("/terminal", http.StatusFound))
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /static/{name}", handleAsset)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	return mux
}

func handleAsset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctype, ok := staticTypes[path.Ext(name)]
	if !ok {
		http.NotFound(w, r)
		return
	}
	b, err := assetsFS.ReadFile("static/" + path.Base(name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", ctype)
	_, _ = w.Write(b)
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Title      string
		APIBaseURL string
	}{
		Title:      "Gerenciamento de Etapas",
		APIBaseURL: strings.TrimSpace(s.cfg.APIBaseURL),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.log.Error("webtui: render terminal page", "err", err)
	}
}
