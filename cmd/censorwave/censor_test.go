package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"censorwave/internal/history"
	"censorwave/internal/pipeline"
	"censorwave/internal/report"
	"censorwave/internal/testsupport"
	"censorwave/internal/timeline"
)

func TestCensorSwapsFlaggedRangeAndRecordsRun(t *testing.T) {
	env := setupCLITestEnv(t)
	provider := &stubProvider{flagged: []timeline.TimeRange{{StartMS: 200, EndMS: 400, Kind: timeline.KindFlagged}}}
	useStubPipeline(t, provider)
	source := env.writeSong(t, "song.wav", 1000)

	stdout, _, err := runCLI(t, env, "censor", source, "--word", "Darn", "--mode", "v", "--json")
	if err != nil {
		t.Fatalf("censor: %v", err)
	}
	var res pipeline.Result
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, stdout)
	}
	if res.Copied || len(res.Plan.Entries) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Plan.Entries[0].Strategy != timeline.StrategySwap {
		t.Fatalf("strategy = %s, want swap", res.Plan.Entries[0].Strategy)
	}

	out := testsupport.ReadWAV(t, filepath.Join(filepath.Dir(source), "song-censored.wav"))
	if out.Len() != 1000 {
		t.Fatalf("output frames = %d, want 1000", out.Len())
	}
	if got := out.Frame(300)[0]; got < 0.24 || got > 0.26 {
		t.Fatalf("frame 300 = %v, want instrumental 0.25", got)
	}
	if terms := provider.seenTerms(); len(terms) == 0 || !reflect.DeepEqual(terms[0], []string{"darn"}) {
		t.Fatalf("provider terms = %v", terms)
	}

	store := testsupport.MustOpenHistory(t, env.cfg)
	run, err := store.Get(t.Context(), res.RunID)
	if err != nil || run == nil {
		t.Fatalf("history get: run=%v err=%v", run, err)
	}
	if run.Status != history.StatusSucceeded || run.FlaggedCount != 1 {
		t.Fatalf("unexpected ledger row: %+v", run)
	}
}

func TestCensorCopiesCleanSong(t *testing.T) {
	env := setupCLITestEnv(t)
	useStubPipeline(t, &stubProvider{})
	source := env.writeSong(t, "clean.wav", 500)

	stdout, _, err := runCLI(t, env, "censor", source, "-w", "darn")
	if err != nil {
		t.Fatalf("censor: %v", err)
	}
	requireContains(t, stdout, "source copied unchanged")

	want, _ := os.ReadFile(source)
	got, err := os.ReadFile(filepath.Join(filepath.Dir(source), "clean-censored.wav"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != string(want) {
		t.Fatal("expected a byte-identical copy")
	}
}

func TestCensorWithoutTermsCopiesSource(t *testing.T) {
	env := setupCLITestEnv(t)
	provider := &stubProvider{}
	useStubPipeline(t, provider)
	source := env.writeSong(t, "song.wav", 100)

	stdout, _, err := runCLI(t, env, "censor", source)
	if err != nil {
		t.Fatalf("censor: %v", err)
	}
	requireContains(t, stdout, "source copied unchanged")
	for _, terms := range provider.seenTerms() {
		if len(terms) != 0 {
			t.Fatalf("expected empty term list, got %v", terms)
		}
	}
}

func TestCensorRejectsUnknownMode(t *testing.T) {
	env := setupCLITestEnv(t)
	useStubPipeline(t, &stubProvider{})
	source := env.writeSong(t, "song.wav", 100)

	if _, _, err := runCLI(t, env, "censor", source, "-w", "darn", "--mode", "karaoke"); err == nil {
		t.Fatal("expected invalid mode error")
	}
}

func TestTermFlagsReadYAMLSevereList(t *testing.T) {
	env := setupCLITestEnv(t)
	provider := &stubProvider{}
	useStubPipeline(t, provider)
	source := env.writeSong(t, "song.wav", 100)
	lists := filepath.Join(env.baseDir, "terms.yaml")
	if err := os.WriteFile(lists, []byte("flagged: [Heck]\nsevere: [Darn]\n"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	if _, _, err := runCLI(t, env, "plan", source, "--terms", lists, "--mode", "dual"); err != nil {
		t.Fatalf("plan: %v", err)
	}
	terms := provider.seenTerms()
	if len(terms) != 2 || !reflect.DeepEqual(terms[0], []string{"heck"}) || !reflect.DeepEqual(terms[1], []string{"darn"}) {
		t.Fatalf("provider terms = %v", terms)
	}
}

func TestPlanPrintsTableAndWritesWorkbook(t *testing.T) {
	env := setupCLITestEnv(t)
	useStubPipeline(t, &stubProvider{
		flagged: []timeline.TimeRange{{StartMS: 1500, EndMS: 1750, Kind: timeline.KindFlagged}},
	})
	source := env.writeSong(t, "song.wav", 2000)
	xlsx := filepath.Join(env.baseDir, "plan.xlsx")

	stdout, _, err := runCLI(t, env, "plan", source, "-w", "darn", "--xlsx", xlsx)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, stdout, "0:01.500")
	requireContains(t, stdout, "swap")
	requireContains(t, stdout, "Wrote plan workbook")

	plan, err := report.ReadPlan(xlsx)
	if err != nil {
		t.Fatalf("read workbook: %v", err)
	}
	if len(plan.Entries) != 1 || plan.Entries[0].Range.StartMS != 1500 {
		t.Fatalf("unexpected workbook plan: %+v", plan)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(source), "song-censored.wav")); !os.IsNotExist(err) {
		t.Fatal("plan must not write audio")
	}
}
