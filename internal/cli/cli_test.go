package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"etapas-cli/internal/config"
	"etapas-cli/internal/devserver"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.ExecuteContext(context.Background())
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate points config at a temp dir and clears the env layer.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	for _, k := range []string{config.EnvAPIURL, config.EnvAPIToken, config.EnvTimeout, config.EnvLogLevel, config.EnvLogFile, config.EnvTUITheme} {
		t.Setenv(k, "")
	}
	return dir
}

func startAPI(t *testing.T) string {
	t.Helper()
	store, err := devserver.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open dev store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	srv := httptest.NewServer(devserver.NewServer(store, "/api").Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func mustRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: etapas %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s", err, stdout)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected data key in %s", stdout)
	}
	return env
}

func TestCRUD_AgainstDevServer(t *testing.T) {
	isolate(t)
	api := startAPI(t)
	base := []string{"--api", api, "--log-level", "error"}
	run := func(args ...string) map[string]any {
		t.Helper()
		return mustRun(t, append(append([]string{}, base...), args...)...)
	}

	created := run("create", "--nome", "Triagem", "--codigo", "TRI", "--posicao", "1")
	rec := created["data"].(map[string]any)
	id, _ := rec["_id"].(string)
	if id == "" || rec["status"] != "ativo" || rec["posicao"] != float64(1) {
		t.Fatalf("unexpected created record: %#v", rec)
	}
	run("create", "--nome", "Análise", "--codigo", "ANA", "--posicao", "2", "--status", "inativo")

	list := run("list")["data"].([]any)
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %#v", list)
	}

	updated := run("update", id, "--posicao", "5")["data"].(map[string]any)
	if updated["posicao"] != float64(5) || updated["nome"] != "Triagem" || updated["codigo"] != "TRI" {
		t.Fatalf("update should keep unset fields: %#v", updated)
	}

	deleted := run("delete", id)["data"].(map[string]any)
	if deleted["deleted"] != id || deleted["remaining"] != float64(1) {
		t.Fatalf("unexpected delete result: %#v", deleted)
	}
}

func TestCreate_InvalidPosicaoNeverReachesAPI(t *testing.T) {
	isolate(t)
	api := startAPI(t)

	stdout, stderr, err := runCLI(t, []string{"--api", api, "create", "--nome", "X", "--codigo", "Y", "--posicao", "-1"})
	if err == nil {
		t.Fatalf("expected error, stdout:\n%s", stdout)
	}
	if !Reported(err) {
		t.Fatalf("expected error to be marked reported")
	}
	if !strings.Contains(string(stderr), "Posição deve ser positiva") {
		t.Fatalf("expected validation message on stderr, got:\n%s", stderr)
	}

	list := mustRun(t, "--api", api, "list")["data"].([]any)
	if len(list) != 0 {
		t.Fatalf("invalid create must not be sent: %#v", list)
	}
}

func TestUpdateAndDelete_UnknownID(t *testing.T) {
	isolate(t)
	api := startAPI(t)

	_, stderr, err := runCLI(t, []string{"--api", api, "update", "nope", "--nome", "X"})
	if err == nil || !strings.Contains(string(stderr), "etapa not found: nope") {
		t.Fatalf("expected not found, err=%v stderr:\n%s", err, stderr)
	}

	_, stderr, err = runCLI(t, []string{"--api", api, "delete", "nope"})
	if err == nil || !strings.Contains(string(stderr), "delete failed: Etapa não encontrada") {
		t.Fatalf("expected delete failure from API, err=%v stderr:\n%s", err, stderr)
	}
}

func TestList_TableAndEDN(t *testing.T) {
	isolate(t)
	api := startAPI(t)
	mustRun(t, "--api", api, "create", "--nome", "Triagem", "--codigo", "TRI", "--posicao", "1")

	stdout, _, err := runCLI(t, []string{"--api", api, "--format", "table", "list"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"NOME", "Triagem", "TRI", "Ativo"} {
		if !strings.Contains(string(stdout), want) {
			t.Fatalf("table missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, err = runCLI(t, []string{"--api", api, "--format", "edn", "list"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(stdout), "{:data [{:id ") || !strings.Contains(string(stdout), ":codigo \"TRI\"") {
		t.Fatalf("unexpected edn:\n%s", stdout)
	}
}

func TestList_UnreachableAPI(t *testing.T) {
	isolate(t)
	mustRun(t, "config", "set", "listRetry", "0s")
	_, stderr, err := runCLI(t, []string{"--api", "http://127.0.0.1:1/api", "--timeout", "200ms", "list"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(string(stderr), "list failed") {
		t.Fatalf("expected list failure on stderr, got:\n%s", stderr)
	}
}

func TestConfig_SetShowPath(t *testing.T) {
	dir := isolate(t)

	mustRun(t, "config", "set", "apiBaseURL", "http://etapas.local/api")
	mustRun(t, "config", "set", "apiToken", "s3cr3t-token")
	mustRun(t, "config", "set", "tui.theme", "dark")

	b, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "http://etapas.local/api") {
		t.Fatalf("config not saved:\n%s", b)
	}

	shown := mustRun(t, "config", "show")["data"].(map[string]any)
	if shown["apiBaseURL"] != "http://etapas.local/api" || shown["apiToken"] != "****oken" {
		t.Fatalf("unexpected settings: %#v", shown)
	}
	if shown["tui"].(map[string]any)["theme"] != "dark" {
		t.Fatalf("unexpected theme: %#v", shown["tui"])
	}

	// Flags win over the file.
	shown = mustRun(t, "--api", "http://flag.local/api", "config", "show")["data"].(map[string]any)
	if shown["apiBaseURL"] != "http://flag.local/api" {
		t.Fatalf("flag should override file: %#v", shown)
	}

	p := mustRun(t, "config", "path")["data"].(map[string]any)["path"]
	if p != filepath.Join(dir, "config.json") {
		t.Fatalf("unexpected path %v", p)
	}

	if _, _, err := runCLI(t, []string{"config", "set", "nope", "x"}); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestDocs(t *testing.T) {
	isolate(t)

	topics := mustRun(t, "docs")["data"].(map[string]any)["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected topics")
	}

	stdout, _, err := runCLI(t, []string{"docs", "tui", "--raw"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(stdout), "Criar Nova Etapa") {
		t.Fatalf("unexpected raw docs:\n%s", stdout)
	}

	if _, _, err := runCLI(t, []string{"docs", "../etc"}); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}

func TestSchema(t *testing.T) {
	isolate(t)
	stdout, _, err := runCLI(t, []string{"schema"})
	if err != nil {
		t.Fatal(err)
	}
	var s struct {
		Title      string                    `json:"title"`
		Required   []string                  `json:"required"`
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(stdout, &s); err != nil {
		t.Fatalf("schema is not json: %v\n%s", err, stdout)
	}
	if s.Title != "Etapa" || len(s.Required) != 4 {
		t.Fatalf("unexpected schema: %s", stdout)
	}
	if s.Properties["posicao"]["minimum"] != float64(1) {
		t.Fatalf("posicao minimum missing: %#v", s.Properties["posicao"])
	}
	if enum, _ := s.Properties["status"]["enum"].([]any); len(enum) != 3 {
		t.Fatalf("status enum missing: %#v", s.Properties["status"])
	}
}

func TestMaskToken(t *testing.T) {
	t.Parallel()
	tests := map[string]string{"": "", "abc": "****", "abcdefgh": "****efgh"}
	for in, want := range tests {
		if got := maskToken(in); got != want {
			t.Fatalf("maskToken(%q) = %q, want %q", in, got, want)
		}
	}
}
