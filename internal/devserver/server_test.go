package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"etapas-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "etapas.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := httptest.NewServer(NewServer(st, "/api").Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_CreateListUpdateDelete(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/etapas", model.Payload{Nome: "Triagem", Codigo: "TRI", Posicao: 2, Status: model.StatusAtivo})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.Etapa
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 2, created.Posicao)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/etapas", model.Payload{Nome: "Abertura", Codigo: "ABE", Posicao: 1, Status: model.StatusInativo})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/etapas", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []model.Etapa
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "Abertura", list[0].Nome, "list is ordered by posicao")
	assert.Equal(t, "Triagem", list[1].Nome)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/etapas/"+created.ID, model.Payload{Nome: "Triagem 2", Codigo: "TRI", Posicao: 3, Status: model.StatusArquivado})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.Etapa
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, model.StatusArquivado, updated.Status)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/etapas/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/etapas/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var msg struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, "Etapa não encontrada", msg.Message)
}

func TestServer_RejectsInvalidPayload(t *testing.T) {
	t.Parallel()
	srv, st := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/etapas", model.Payload{Nome: "", Codigo: "X", Posicao: 0, Status: "pausado"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Errors, "nome")
	assert.Contains(t, body.Errors, "posicao")
	assert.Contains(t, body.Errors, "status")
	assert.NotContains(t, body.Errors, "codigo")

	list, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestServer_UpdateUnknownIDIs404(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/etapas/nope", model.Payload{Nome: "A", Codigo: "A", Posicao: 1, Status: model.StatusAtivo})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpen_MemoryStoreKeepsRowsAcrossCalls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Create(ctx, model.Payload{Nome: "A", Codigo: "A", Posicao: 1, Status: model.StatusAtivo})
	require.NoError(t, err)
	list, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
