// Package webui serves the stage screen to a browser. Each browser session
// gets its own controller; actions are plain form posts enhanced by Datastar,
// which receives an SSE patch of #etapas-main instead of a redirect.
package webui

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"etapas-cli/internal/docs"
	"etapas-cli/internal/gateway"
	"etapas-cli/internal/modal"
	"etapas-cli/internal/model"
	"etapas-cli/internal/notify"
	"etapas-cli/internal/workflow"
)

//go:embed templates/*.html static/*.css static/*.js
var assetsFS embed.FS

const (
	mainSelector      = "#etapas-main"
	defaultSessionTTL = 12 * time.Hour
)

type ServerConfig struct {
	Addr    string
	Gateway gateway.Gateway
	// Source is shown in the page header (usually the API base URL).
	Source string
	// Recorder is shared by every session controller. Optional.
	Recorder workflow.Recorder
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
	// Secret signs session cookies. A random one is generated when empty,
	// which logs everybody out on restart.
	Secret     []byte
	SessionTTL time.Duration
}

type session struct {
	mu       sync.Mutex
	ctrl     *workflow.Controller
	toasts   *notify.Queue
	loaded   bool
	lastSeen time.Time
}

type Server struct {
	cfg  ServerConfig
	tmpl *template.Template
	log  *slog.Logger
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("webui: addr is empty")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("webui: gateway is nil")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if len(cfg.Secret) == 0 {
		secret, err := newSecret()
		if err != nil {
			return nil, err
		}
		cfg.Secret = secret
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
		"dict": dict,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		tmpl:     tmpl,
		log:      cfg.Logger,
		now:      time.Now,
		sessions: map[string]*session{},
	}, nil
}

// dict builds a map from alternating keys and values for sub-templates.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/app.css", s.handleStatic("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /static/app.js", s.handleStatic("static/app.js", "application/javascript; charset=utf-8"))
	mux.HandleFunc("GET /docs/{topic}", s.handleDocs)
	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", s.cfg.Metrics)
	}
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("POST /ui/create", s.action(func(_ context.Context, c *workflow.Controller, _ *http.Request) {
		c.OpenCreate()
	}))
	mux.HandleFunc("POST /ui/edit/{id}", s.action(func(_ context.Context, c *workflow.Controller, r *http.Request) {
		if rec, ok := c.Find(r.PathValue("id")); ok {
			c.OpenEdit(rec)
		}
	}))
	mux.HandleFunc("POST /ui/delete/{id}", s.action(func(_ context.Context, c *workflow.Controller, r *http.Request) {
		rec, ok := c.Find(r.PathValue("id"))
		if !ok {
			// Rendered as "Item não encontrado."
			rec = model.Etapa{ID: r.PathValue("id")}
		}
		c.OpenDeleteConfirm(rec)
	}))
	mux.HandleFunc("POST /ui/cancel", s.action(func(_ context.Context, c *workflow.Controller, _ *http.Request) {
		c.Cancel()
	}))
	mux.HandleFunc("POST /ui/submit", s.action(func(ctx context.Context, c *workflow.Controller, r *http.Request) {
		_, _ = c.Submit(ctx, draftFromForm(r))
	}))
	mux.HandleFunc("POST /ui/confirm-delete", s.action(func(ctx context.Context, c *workflow.Controller, _ *http.Request) {
		_ = c.ConfirmDelete(ctx)
	}))
	mux.HandleFunc("POST /ui/refresh", s.action(func(ctx context.Context, c *workflow.Controller, _ *http.Request) {
		_ = c.LoadAll(ctx)
	}))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatic(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(name)
		if err != nil || len(b) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	md, ok := docs.Get(r.PathValue("topic"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.writeHTMLTemplate(w, "docs", docsVM{
		Title:  "Ajuda",
		Topics: docs.Topics(),
		Body:   renderMarkdownHTML(md),
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.loaded {
		_ = sess.ctrl.LoadAll(r.Context())
		sess.loaded = true
	}
	s.writeHTMLTemplate(w, "page", s.mainVM(sess))
}

// action runs fn on the session controller, then answers with an SSE patch
// for Datastar or a redirect for plain form posts.
func (s *Server) action(fn func(context.Context, *workflow.Controller, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sess := s.session(w, r)
		sess.mu.Lock()
		defer sess.mu.Unlock()

		// A dropped connection must not abort a mutation already sent; the
		// gateway's own timeout still bounds it.
		fn(context.WithoutCancel(r.Context()), sess.ctrl, r)
		sess.loaded = true

		if !isDatastarRequest(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		html, err := s.renderTemplate("main", s.mainVM(sess))
		sse := datastar.NewSSE(w, r)
		if err != nil {
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			return
		}
		_ = sse.PatchElements(html, datastar.WithSelector(mainSelector), datastar.WithMode(datastar.ElementPatchModeOuter))
	}
}

func isDatastarRequest(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("Datastar-Request")), "true")
}

func draftFromForm(r *http.Request) model.Draft {
	return model.Draft{
		Nome:    r.FormValue("nome"),
		Codigo:  r.FormValue("codigo"),
		Posicao: r.FormValue("posicao"),
		Status:  r.FormValue("status"),
	}
}

// session returns the caller's session, creating it (and its cookie) when the
// cookie is missing, forged, expired or refers to a pruned session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := r.Cookie(sessionCookie); err == nil {
		if claims, err := verifyToken(s.cfg.Secret, c.Value, now); err == nil {
			if sess := s.sessions[claims.ID]; sess != nil {
				sess.lastSeen = now
				return sess
			}
		}
	}

	s.pruneLocked(now)
	id, token, err := newSessionToken(s.cfg.Secret, s.cfg.SessionTTL, now)
	if err != nil {
		// No randomness for a session id; serve this request without a cookie.
		s.log.Error("webui: sign session", "err", err)
	}
	toasts := notify.NewQueue(8)
	lg := s.log.With("session", shortID(id))
	sess := &session{
		ctrl: workflow.New(s.cfg.Gateway,
			workflow.WithNotifier(notify.Multi{toasts, notify.LogNotifier{Logger: lg}}),
			workflow.WithRecorder(s.cfg.Recorder),
			workflow.WithLogger(lg),
		),
		toasts:   toasts,
		lastSeen: now,
	}
	if err != nil {
		return sess
	}
	s.sessions[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(s.cfg.SessionTTL),
	})
	lg.Debug("webui: new session")
	return sess
}

func (s *Server) pruneLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.cfg.SessionTTL {
			delete(s.sessions, id)
		}
	}
}

func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type statusOpt struct {
	Value    string
	Label    string
	Selected bool
}

type toastVM struct {
	Kind        string
	Title       string
	Description string
	DurationMS  int64
}

type mainVM struct {
	Title       string
	CreateLabel string
	Source      string
	Records     []model.Etapa

	Modal       string
	ModalTitle  string
	SubmitLabel string
	Draft       model.Draft
	Errors      map[string]string
	Statuses    []statusOpt

	Subject      model.Etapa
	SubjectFound bool

	Toasts []toastVM
}

type docsVM struct {
	Title  string
	Topics []string
	Body   template.HTML
}

func (s *Server) mainVM(sess *session) mainVM {
	c := sess.ctrl
	st := c.Modal()
	vm := mainVM{
		Title:       "Gerenciamento de Etapas",
		CreateLabel: "Criar Nova Etapa",
		Source:      s.cfg.Source,
		Records:     c.Records(),
		ModalTitle:  st.Title(),
		SubmitLabel: st.SubmitLabel(),
		Errors:      c.Errors(),
	}
	switch st.Kind() {
	case modal.Editing:
		vm.Modal = "form"
		vm.Draft, _ = st.Draft()
		for _, opt := range model.Statuses() {
			vm.Statuses = append(vm.Statuses, statusOpt{
				Value:    string(opt),
				Label:    opt.Label(),
				Selected: string(opt) == vm.Draft.Status,
			})
		}
	case modal.ConfirmingDelete:
		vm.Modal = "confirm"
		vm.Subject, _ = st.Subject()
		_, vm.SubjectFound = c.Find(vm.Subject.ID)
	}
	// Each notification is shown once; the browser dismisses it after Duration.
	for _, n := range sess.toasts.Drain() {
		vm.Toasts = append(vm.Toasts, toastVM{
			Kind:        string(n.Kind),
			Title:       n.Title,
			Description: n.Description,
			DurationMS:  n.Duration.Milliseconds(),
		})
	}
	return vm
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

// ListenAndServe blocks until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
