package webui

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etapas-cli/internal/devserver"
	"etapas-cli/internal/gateway"
	"etapas-cli/internal/metrics"
	"etapas-cli/internal/model"
)

type harness struct {
	ui     *httptest.Server
	api    *gateway.Client
	client *http.Client
	srv    *Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := devserver.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	apiSrv := httptest.NewServer(devserver.NewServer(st, "/api").Handler())
	t.Cleanup(apiSrv.Close)

	gw, err := gateway.NewClient(apiSrv.URL+"/api", gateway.WithListBackoff(nil))
	require.NoError(t, err)

	rec := metrics.New()
	srv, err := NewServer(ServerConfig{
		Addr:     "127.0.0.1:0",
		Gateway:  gw,
		Source:   apiSrv.URL,
		Recorder: rec,
		Metrics:  rec.Handler(),
	})
	require.NoError(t, err)
	ui := httptest.NewServer(srv.Handler())
	t.Cleanup(ui.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{ui: ui, api: gw, srv: srv, client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (h *harness) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := h.client.Get(h.ui.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

// post submits a plain form and follows the redirect back to the page.
func (h *harness) post(t *testing.T, path string, form url.Values) string {
	t.Helper()
	resp, err := h.client.PostForm(h.ui.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/", resp.Request.URL.Path, "plain posts redirect home")
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func validForm() url.Values {
	return url.Values{"nome": {"Triagem"}, "codigo": {"TRI"}, "posicao": {"2"}, "status": {"ativo"}}
}

func TestHome_RendersEmptyList(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	code, body := h.get(t, "/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Gerenciamento de Etapas")
	assert.Contains(t, body, "Criar Nova Etapa")
	assert.Contains(t, body, `id="etapas-main"`)
	assert.Contains(t, body, "Nenhuma etapa cadastrada.")
	assert.Equal(t, 1, h.srv.sessionCount())

	// The cookie keeps the same session.
	h.get(t, "/")
	assert.Equal(t, 1, h.srv.sessionCount())
}

func TestCreateFlow_PlainForms(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.get(t, "/")

	body := h.post(t, "/ui/create", nil)
	assert.Contains(t, body, "Criar Etapa")
	assert.Contains(t, body, `<option value="ativo" selected>`)

	bad := validForm()
	bad.Set("posicao", "-1")
	body = h.post(t, "/ui/submit", bad)
	assert.Contains(t, body, "Posição deve ser positiva")
	assert.Contains(t, body, `value="-1"`, "draft must survive a validation failure")

	body = h.post(t, "/ui/submit", validForm())
	assert.Contains(t, body, "Etapa criada com sucesso!")
	assert.Contains(t, body, "Triagem")
	assert.NotContains(t, body, `role="dialog"`)

	recs, err := h.api.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Posicao)

	// Toasts are shown once.
	_, body = h.get(t, "/")
	assert.NotContains(t, body, "Etapa criada com sucesso!")
}

func TestSubmit_SurvivesClientDisconnect(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.get(t, "/")
	h.post(t, "/ui/create", nil)

	u, err := url.Parse(h.ui.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/ui/submit", strings.NewReader(validForm().Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range h.client.Jar.Cookies(u) {
		req.AddCookie(c)
	}
	h.srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	recs, err := h.api.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Triagem", recs[0].Nome)

	_, body := h.get(t, "/")
	assert.Contains(t, body, "Etapa criada com sucesso!")
	assert.NotContains(t, body, "Erro ao salvar etapa.")
}

func TestEditFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	created, err := h.api.Create(context.Background(), model.Payload{Nome: "Triagem", Codigo: "TRI", Posicao: 2, Status: model.StatusAtivo})
	require.NoError(t, err)
	h.get(t, "/")

	body := h.post(t, "/ui/edit/"+created.ID, nil)
	assert.Contains(t, body, "Editar Etapa")
	assert.Contains(t, body, "Atualizar")
	assert.Contains(t, body, `value="Triagem"`)

	form := validForm()
	form.Set("nome", "Triagem inicial")
	body = h.post(t, "/ui/submit", form)
	assert.Contains(t, body, "Etapa atualizada com sucesso!")
	assert.Contains(t, body, "Triagem inicial")
}

func TestDeleteFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	created, err := h.api.Create(context.Background(), model.Payload{Nome: "Entrega", Codigo: "ENT", Posicao: 5, Status: model.StatusInativo})
	require.NoError(t, err)
	h.get(t, "/")

	body := h.post(t, "/ui/delete/"+created.ID, nil)
	assert.Contains(t, body, "Confirmação de Exclusão")
	assert.Contains(t, body, "Você tem certeza que deseja excluir o seguinte item?")
	assert.Contains(t, body, "Entrega")

	body = h.post(t, "/ui/cancel", nil)
	assert.NotContains(t, body, "Confirmação de Exclusão")

	h.post(t, "/ui/delete/"+created.ID, nil)
	body = h.post(t, "/ui/confirm-delete", nil)
	assert.Contains(t, body, "Etapa excluída com sucesso!")
	assert.Contains(t, body, "Nenhuma etapa cadastrada.")
}

func TestDelete_UnknownIDShowsNotFound(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.get(t, "/")

	body := h.post(t, "/ui/delete/nao-existe", nil)
	assert.Contains(t, body, "Item não encontrado.")

	body = h.post(t, "/ui/confirm-delete", nil)
	assert.Contains(t, body, "Erro ao excluir etapa.")
	assert.Contains(t, body, "Confirmação de Exclusão", "dialog stays open after a failed delete")
}

func TestDatastarRequest_GetsSSEPatch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.get(t, "/")

	req, err := http.NewRequest(http.MethodPost, h.ui.URL+"/ui/create", strings.NewReader(""))
	require.NoError(t, err)
	req.Header.Set("Datastar-Request", "true")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "datastar-patch-elements")
	assert.Contains(t, out, "selector #etapas-main")
	assert.Contains(t, out, "Criar Etapa")
}

func TestForgedCookieStartsNewSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodGet, h.ui.URL+"/", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "forged.token"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var fresh *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			fresh = c
		}
	}
	require.NotNil(t, fresh, "a new session cookie must be issued")
	_, err = verifyToken(h.srv.cfg.Secret, fresh.Value, time.Now())
	require.NoError(t, err)
}

func TestDocsAndMetrics(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	code, body := h.get(t, "/docs/tui")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<h1")
	assert.Contains(t, body, "Terminal screen")

	code, _ = h.get(t, "/docs/missing")
	assert.Equal(t, http.StatusNotFound, code)

	h.get(t, "/")
	code, body = h.get(t, "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `etapas_operations_total{op="list",outcome="ok"} 1`)

	code, body = h.get(t, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok\n", body)
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()
	secret := []byte("s3cret")
	now := time.Unix(1_700_000_000, 0)

	id, tok, err := newSessionToken(secret, time.Hour, now)
	require.NoError(t, err)

	claims, err := verifyToken(secret, tok, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, id, claims.ID)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.Expires.Unix())

	_, err = verifyToken(secret, tok, now.Add(2*time.Hour))
	assert.Error(t, err, "expired")
	_, err = verifyToken([]byte("other"), tok, now)
	assert.Error(t, err, "wrong secret")
}
