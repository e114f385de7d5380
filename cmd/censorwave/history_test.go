package main

import (
	"encoding/json"
	"testing"
	"time"

	"censorwave/internal/history"
)

func seedHistory(t *testing.T, env *cliTestEnv, runs ...history.Run) {
	t.Helper()
	store, err := history.Open(env.cfg.History.Path)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()
	for _, run := range runs {
		if err := store.Record(t.Context(), run); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
}

func TestHistoryListsRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	now := time.Now().UTC()
	seedHistory(t, env,
		history.Run{ID: "run-old", SourcePath: "/music/old.wav", Mode: "backspin", Status: history.StatusFailed, ErrorKind: "timeout", StartedAt: now.Add(-time.Hour), FinishedAt: now.Add(-time.Hour)},
		history.Run{ID: "run-new", SourcePath: "/music/new.wav", Mode: "dual", Status: history.StatusSucceeded, FlaggedCount: 2, SevereCount: 1, StartedAt: now, FinishedAt: now.Add(3 * time.Second)},
	)

	stdout, _, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, stdout, "new.wav")
	requireContains(t, stdout, "timeout")

	stdout, _, err = runCLI(t, env, "history", "--json", "--limit", "1")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-new" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	stdout, _, err = runCLI(t, env, "history", "show", "run-old")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, stdout, `"error_kind": "timeout"`)

	if _, _, err := runCLI(t, env, "history", "show", "missing"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestHistoryPruneRemovesOldRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	now := time.Now().UTC()
	seedHistory(t, env,
		history.Run{ID: "ancient", SourcePath: "/a.wav", Mode: "backspin", Status: history.StatusSucceeded, StartedAt: now.Add(-72 * time.Hour), FinishedAt: now.Add(-72 * time.Hour)},
		history.Run{ID: "fresh", SourcePath: "/b.wav", Mode: "backspin", Status: history.StatusSucceeded, StartedAt: now, FinishedAt: now},
	)

	stdout, _, err := runCLI(t, env, "history", "prune", "--older-than", "24h")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, stdout, "Removed 1 run(s)")
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.History.Enabled = false
	writeTestConfig(t, env.configPath, env.cfg)

	stdout, _, err := runCLI(t, env, "history")
	if err == nil {
		t.Fatalf("expected error, got output %q", stdout)
	}
	requireContains(t, err.Error(), "history is disabled")
}
