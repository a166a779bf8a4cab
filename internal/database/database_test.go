package database

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "chart.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(id string, finished time.Time) *Run {
	return &Run{
		ID:                  id,
		StartedAt:           finished.Add(-2 * time.Second),
		FinishedAt:          finished,
		OutputDir:           "data",
		LongRows:            120,
		SubdomainGroups:     14,
		DomainGroups:        6,
		UnresolvedQuestions: 2,
		OverrideVersion:     1,
		Inputs: []RunInput{
			{Role: "mapping", Path: "mapping_file.csv", SHA256: "aa"},
			{Role: "responses", Path: "transposed_data.csv", SHA256: "bb"},
		},
	}
}

func TestInsertAndLatestRun(t *testing.T) {
	db := openTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	if err := db.InsertRun(sampleRun("run-1", now)); err != nil {
		t.Fatalf("InsertRun error: %v", err)
	}

	latest, err := db.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun error: %v", err)
	}
	if latest == nil || latest.ID != "run-1" {
		t.Fatalf("latest = %+v", latest)
	}
	if latest.LongRows != 120 || latest.UnresolvedQuestions != 2 {
		t.Errorf("counts = %+v", latest)
	}
	if !latest.FinishedAt.Equal(now) {
		t.Errorf("finished_at = %v, expected %v", latest.FinishedAt, now)
	}
	if len(latest.Inputs) != 2 || latest.Inputs[0].Role != "mapping" {
		t.Errorf("inputs = %+v", latest.Inputs)
	}
}

func TestLatestRunEmpty(t *testing.T) {
	db := openTestDB(t)

	latest, err := db.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun error: %v", err)
	}
	if latest != nil {
		t.Errorf("expected nil for empty registry, got %+v", latest)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		if err := db.InsertRun(sampleRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("InsertRun %s: %v", id, err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Errorf("runs = %+v", runs)
	}

	n, err := db.CountRuns()
	if err != nil {
		t.Fatalf("CountRuns error: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d", n)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	db.Close()
}
