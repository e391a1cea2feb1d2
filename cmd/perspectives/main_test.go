package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/infrastructure/storage"
)

type cliTestEnv struct {
	dir        string
	configPath string
	historyDB  string
}

func setupCLITestEnv(t *testing.T) cliTestEnv {
	t.Helper()

	t.Setenv("PERSPECTIVES_CONFIG", "")
	t.Setenv("PERSPECTIVES_HISTORY_DB", "")
	t.Setenv("GITHUB_STEP_SUMMARY", "")

	dir := t.TempDir()
	env := cliTestEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		historyDB:  filepath.Join(dir, "history.db"),
	}

	cfg := fmt.Sprintf(`logging:
  level: error
paths:
  items: %[1]s/items.json
  perspectives: %[1]s/perspectives.json
history:
  path: %[2]s
models:
  - name: Alpha
    modelId: vendor/alpha
    marker: "A"
    artifact: %[1]s/alpha.json
    agent: alpha-analyzer
  - name: Beta
    modelId: vendor/beta
    marker: "B"
    artifact: %[1]s/beta.json
    agent: beta-analyzer
`, dir, env.historyDB)
	if err := os.WriteFile(env.configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	cmd, cmdCtx := newRootCommand()
	t.Cleanup(cmdCtx.close)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

func TestRootShowsHelp(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, nil, env.configPath)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	for _, name := range []string{"fetch", "analyze", "synthesize", "repair", "history"} {
		requireContains(t, out, name)
	}
}

func TestAnalyzeFlagValidation(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"analyze"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Fatalf("expected missing flag error, got %v", err)
	}

	_, _, err = runCLI(t, []string{"analyze", "--all", "--model", "Alpha"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected exclusivity error, got %v", err)
	}

	if _, statErr := os.Stat(env.historyDB); !os.IsNotExist(statErr) {
		t.Fatalf("flag errors must not open the ledger, stat: %v", statErr)
	}
}

func TestAnalyzeUnknownModel(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"analyze", "--model", "Gamma"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Fatalf("expected unknown model error, got %v", err)
	}
}

func TestFailingCommandStillClosesLedger(t *testing.T) {
	env := setupCLITestEnv(t)

	cmd, cmdCtx := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configPath, "analyze", "--model", "Gamma"})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Fatal("expected unknown model error")
	}

	application := cmdCtx.app
	if application == nil {
		t.Fatal("expected the application to be built")
	}
	if _, err := application.History(context.Background(), "", 1); err != nil {
		t.Fatalf("ledger should be open before close: %v", err)
	}

	cmdCtx.close()
	if cmdCtx.app != nil {
		t.Fatal("close should release the application")
	}
	if _, err := application.History(context.Background(), "", 1); err == nil {
		t.Fatal("expected the ledger to be closed")
	}
	cmdCtx.close()
}

func TestSynthesizeWithoutModelArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"synthesize"}, env.configPath)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	requireContains(t, out, "Synthesized 0 articles from 0 of 2 models")

	if _, err := os.Stat(filepath.Join(env.dir, "perspectives.json")); err != nil {
		t.Fatalf("perspectives artifact missing: %v", err)
	}
}

func TestHistoryListsRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	ctx := context.Background()
	repo, err := storage.OpenRunRepository(ctx, env.historyDB)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	runs := []domain.StageRun{
		{Agent: "alpha-analyzer", Model: "Alpha", Status: domain.StatusCompleted, Items: 4, TotalTokens: 1200, StartedAt: "2026-01-02T10:00:00Z"},
		{Agent: "news-fetcher", Status: domain.StatusFailed, StartedAt: "2026-01-02T09:00:00Z"},
	}
	for _, run := range runs {
		if err := repo.RecordRun(ctx, run); err != nil {
			t.Fatalf("record run: %v", err)
		}
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close ledger: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "alpha-analyzer")
	requireContains(t, out, "news-fetcher")
	requireContains(t, out, "1200")

	out, _, err = runCLI(t, []string{"history", "--agent", "news-fetcher"}, env.configPath)
	if err != nil {
		t.Fatalf("history filtered: %v", err)
	}
	requireContains(t, out, "news-fetcher")
	if strings.Contains(out, "alpha-analyzer") {
		t.Fatalf("filter leaked other agents: %s", out)
	}
}
