package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pthm-cable/symbiosis/config"
	"github.com/pthm-cable/symbiosis/telemetry"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestArchiveRun(t *testing.T) {
	db := openTest(t)
	cfg := testConfig(t)

	id, err := db.BeginRun(cfg)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("run id = %q", id)
	}
	if _, err := db.BeginRun(cfg); err == nil {
		t.Error("expected error starting a second run")
	}

	rows := []telemetry.PopulationRow{
		{Time: 0, Total: 1, Clades: []int{1, 0}},
		{Time: 1, Total: 3, Clades: []int{1, 2}},
	}
	for _, r := range rows {
		if err := db.InsertPopulation(r); err != nil {
			t.Fatalf("InsertPopulation: %v", err)
		}
	}
	exits := []telemetry.ExitRecord{
		{ID: 1, Reason: "ESCAPE_IN_G0"},
		{ID: 2, Reason: "ESCAPE_IN_G0"},
		{ID: 3, Reason: "IN_RESIDENCE"},
	}
	for _, e := range exits {
		if err := db.InsertExit(e); err != nil {
			t.Fatalf("InsertExit: %v", err)
		}
	}
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != id || !runs[0].Complete || runs[0].EndTime != cfg.MaxSimulatedTime {
		t.Fatalf("runs = %+v", runs)
	}
	if !strings.Contains(runs[0].Config, "num_rows:") {
		t.Errorf("config snapshot missing: %q", runs[0].Config)
	}

	total, err := db.FinalPopulation(id)
	if err != nil || total != 3 {
		t.Errorf("FinalPopulation = %d, %v; want 3", total, err)
	}
	counts, err := db.ExitCounts(id)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]int{"ESCAPE_IN_G0": 2, "IN_RESIDENCE": 1}, counts); diff != "" {
		t.Errorf("exit counts mismatch (-want +got):\n%s", diff)
	}
}

func TestRollbackDiscardsRun(t *testing.T) {
	db := openTest(t)
	if _, err := db.BeginRun(testConfig(t)); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertPopulation(telemetry.PopulationRow{Clades: []int{0}}); err != nil {
		t.Fatal(err)
	}
	db.Rollback()

	runs, err := db.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("rolled back run archived: %+v", runs)
	}
	if err := db.InsertExit(telemetry.ExitRecord{}); err == nil {
		t.Error("expected error inserting without a run")
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	for i := 0; i < 2; i++ {
		db, err := Open(path)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.BeginRun(testConfig(t)); err != nil {
			t.Fatal(err)
		}
		if err := db.Commit(); err != nil {
			t.Fatal(err)
		}
		db.Close()
	}

	db2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	runs, err := db2.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}
