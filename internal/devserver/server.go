package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"etapas-cli/internal/model"
	"etapas-cli/internal/validate"
)

const msgNotFound = "Etapa não encontrada"

type Server struct {
	store  *Store
	prefix string
}

// NewServer serves the API under prefix (e.g. "/api").
func NewServer(store *Store, prefix string) *Server {
	prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Server{store: store, prefix: prefix}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /etapas", s.handleList)
	mux.HandleFunc("POST /etapas", s.handleCreate)
	mux.HandleFunc("GET /etapas/{id}", s.handleGet)
	mux.HandleFunc("PUT /etapas/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /etapas/{id}", s.handleDelete)

	var h http.Handler = mux
	if s.prefix != "" {
		h = http.StripPrefix(s.prefix, mux)
	}
	return logRequests(h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	e, err := s.store.Create(r.Context(), p)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	e, err := s.store.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodePayload(w http.ResponseWriter, r *http.Request) (model.Payload, bool) {
	var p model.Payload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido: "+err.Error())
		return model.Payload{}, false
	}
	p.Nome = strings.TrimSpace(p.Nome)
	p.Codigo = strings.TrimSpace(p.Codigo)
	if res := validate.Etapa(p); !res.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": res.Error(),
			"errors":  res,
		})
		return model.Payload{}, false
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("devserver request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "dur", time.Since(start))
	})
}
