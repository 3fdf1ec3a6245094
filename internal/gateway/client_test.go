package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"etapas-cli/internal/devserver"
	"etapas-cli/internal/gateway"
	"etapas-cli/internal/model"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newDevAPI(t *testing.T) string {
	t.Helper()
	st, err := devserver.Open(context.Background(), filepath.Join(t.TempDir(), "api.sqlite"))
	if err != nil {
		t.Fatalf("open dev store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	srv := httptest.NewServer(devserver.NewServer(st, "/api").Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func TestClient_RoundTripAgainstDevServer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, err := gateway.NewClient(newDevAPI(t))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	list, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	created, err := c.Create(ctx, model.Payload{Nome: "Triagem", Codigo: "TRI", Posicao: 2, Status: model.StatusAtivo})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Posicao != 2 {
		t.Fatalf("unexpected created record %#v", created)
	}

	updated, err := c.Update(ctx, created.ID, model.Payload{Nome: "Triagem", Codigo: "TRI", Posicao: 5, Status: model.StatusInativo})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Posicao != 5 {
		t.Fatalf("unexpected updated record %#v", updated)
	}

	if err := c.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	err = c.Delete(ctx, created.ID)
	if !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if got := gateway.Describe(err); got != "Etapa não encontrada" {
		t.Fatalf("expected server message as description, got %q", got)
	}
}

func TestClient_ValidationErrorCarriesServerMessage(t *testing.T) {
	t.Parallel()

	c, err := gateway.NewClient(newDevAPI(t))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Create(context.Background(), model.Payload{Nome: "", Codigo: "X", Posicao: 1, Status: model.StatusAtivo})
	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *gateway.Error, got %T (%v)", err, err)
	}
	if gerr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", gerr.StatusCode)
	}
	if !strings.Contains(gerr.Description, "Nome é obrigatório") {
		t.Fatalf("expected description to carry the validation message, got %q", gerr.Description)
	}
}

func TestClient_DescribesNonJSONErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	t.Cleanup(srv.Close)

	c, err := gateway.NewClient(srv.URL, gateway.WithListBackoff(nil))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.List(context.Background())
	if got := gateway.Describe(err); got != "Bad Gateway" {
		t.Fatalf("expected status text description, got %q", got)
	}
}

func TestClient_SendsBearerTokenAndJSON(t *testing.T) {
	t.Parallel()

	var gotAuth, gotCT, gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		gotCT.Store(r.Header.Get("Content-Type"))
		gotPath.Store(r.Method + " " + r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id":"abc","nome":"N","codigo":"C","posicao":1,"status":"ativo"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := gateway.NewClient(srv.URL+"/api/", gateway.WithBearerToken("s3cret"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	e, err := c.Update(context.Background(), "abc", model.Payload{Nome: "N", Codigo: "C", Posicao: 1, Status: model.StatusAtivo})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if e.ID != "abc" {
		t.Fatalf("expected id abc, got %q", e.ID)
	}
	if got := gotAuth.Load().(string); got != "Bearer s3cret" {
		t.Fatalf("authorization header = %q", got)
	}
	if got := gotCT.Load().(string); got != "application/json" {
		t.Fatalf("content-type = %q", got)
	}
	if got := gotPath.Load().(string); got != "PUT /api/etapas/abc" {
		t.Fatalf("request = %q", got)
	}
}

func TestClient_ListDoesNotRetryHTTPErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c, err := gateway.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.List(context.Background())
	if got := gateway.Describe(err); got != "boom" {
		t.Fatalf("description = %q, want boom", got)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestClient_MutationsAreSingleAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c, _ := gateway.NewClient(srv.URL)
	if err := c.Delete(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one attempt, got %d", n)
	}
}

func TestClient_RecordsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	c, err := gateway.NewClient(newDevAPI(t), gateway.WithTracer(provider.Tracer("test")))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.List(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	_ = c.Delete(context.Background(), "missing")

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended span count = %d, want 2", len(spans))
	}
	if spans[0].Name() != "etapas.list" || spans[1].Name() != "etapas.delete" {
		t.Fatalf("unexpected span names %q, %q", spans[0].Name(), spans[1].Name())
	}
	if spans[1].Status().Description != "Etapa não encontrada" {
		t.Fatalf("expected error status on delete span, got %+v", spans[1].Status())
	}
}

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "ftp://host/api", "://nope"} {
		if _, err := gateway.NewClient(in); err == nil {
			t.Fatalf("NewClient(%q): expected error", in)
		}
	}
}
