package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/wdcrawl/internal/model"
)

// newTestDB opens a history database in a temp directory.
func newTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	hdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := hdb.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return hdb
}

// newTestJobRecord builds a record with the given id and status.
func newTestJobRecord(id string, status model.JobStatus, startedAt time.Time) *model.JobRecord {
	return &model.JobRecord{
		ID: id,
		Config: model.CrawlConfig{
			TargetClasses: []model.EntityID{model.MustNewEntityID("Q5")},
			Radius:        2,
			MaxInstances:  100,
			Language:      "en",
		},
		Status:      status,
		TripleCount: 123,
		StartedAt:   startedAt,
		OutputDir:   "/tmp/crawls/" + id,
	}
}

// TestOpenRequiresExistingDB tests the CreateIfNotExists=false path.
func TestOpenRequiresExistingDB(t *testing.T) {
	t.Parallel()

	opts := Options{CreateIfNotExists: false, EnableWAL: true}
	if _, err := Open(t.TempDir(), opts); err == nil {
		t.Error("expected error opening a missing database without create")
	}
}

// TestSaveAndGetJob tests the record round-trip through SQLite.
func TestSaveAndGetJob(t *testing.T) {
	t.Parallel()

	hdb := newTestDB(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)
	rec := newTestJobRecord("job-1", model.StatusRunning, started)
	if err := hdb.SaveJob(ctx, rec); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := hdb.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.ID != "job-1" || got.Status != model.StatusRunning || got.TripleCount != 123 {
		t.Errorf("record mismatch: %+v", got)
	}
	if len(got.Config.TargetClasses) != 1 || got.Config.TargetClasses[0].String() != "Q5" {
		t.Errorf("config mismatch: %+v", got.Config)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, expected %v", got.StartedAt, started)
	}
}

// TestSaveJobUpsert tests that a second save replaces the first record.
func TestSaveJobUpsert(t *testing.T) {
	t.Parallel()

	hdb := newTestDB(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)
	rec := newTestJobRecord("job-1", model.StatusRunning, started)
	if err := hdb.SaveJob(ctx, rec); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	rec.Status = model.StatusCompleted
	rec.TripleCount = 456
	rec.FinishedAt = started.Add(time.Minute)
	if err := hdb.SaveJob(ctx, rec); err != nil {
		t.Fatalf("second SaveJob failed: %v", err)
	}

	got, err := hdb.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != model.StatusCompleted || got.TripleCount != 456 {
		t.Errorf("upsert did not replace record: %+v", got)
	}
	if got.FinishedAt.IsZero() {
		t.Error("FinishedAt lost in upsert")
	}

	all, err := hdb.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("upsert created %d rows, expected 1", len(all))
	}
}

// TestGetJobNotFound tests the sentinel for unknown identifiers.
func TestGetJobNotFound(t *testing.T) {
	t.Parallel()

	hdb := newTestDB(t)
	if _, err := hdb.GetJob(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetJob(missing) = %v, expected ErrJobNotFound", err)
	}
}

// TestListJobsOrdering tests most-recent-first ordering.
func TestListJobsOrdering(t *testing.T) {
	t.Parallel()

	hdb := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"job-old", "job-mid", "job-new"} {
		rec := newTestJobRecord(id, model.StatusCompleted, base.Add(time.Duration(i)*time.Hour))
		if err := hdb.SaveJob(ctx, rec); err != nil {
			t.Fatalf("SaveJob(%s) failed: %v", id, err)
		}
	}

	records, err := hdb.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, expected 3", len(records))
	}
	if records[0].ID != "job-new" || records[2].ID != "job-old" {
		t.Errorf("wrong ordering: %s, %s, %s", records[0].ID, records[1].ID, records[2].ID)
	}
}

// TestListJobsByStatus tests status filtering.
func TestListJobsByStatus(t *testing.T) {
	t.Parallel()

	hdb := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	if err := hdb.SaveJob(ctx, newTestJobRecord("job-ok", model.StatusCompleted, base)); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	if err := hdb.SaveJob(ctx, newTestJobRecord("job-bad", model.StatusFailed, base.Add(time.Hour))); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	failed, err := hdb.ListJobsByStatus(ctx, model.StatusFailed)
	if err != nil {
		t.Fatalf("ListJobsByStatus failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "job-bad" {
		t.Errorf("failed jobs = %v, expected [job-bad]", failed)
	}
}

// TestDeleteJob tests removal and the not-found sentinel.
func TestDeleteJob(t *testing.T) {
	t.Parallel()

	hdb := newTestDB(t)
	ctx := context.Background()

	rec := newTestJobRecord("job-1", model.StatusCompleted, time.Now().UTC())
	if err := hdb.SaveJob(ctx, rec); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	if err := hdb.DeleteJob(ctx, "job-1"); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	if _, err := hdb.GetJob(ctx, "job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Error("record still present after delete")
	}
	if err := hdb.DeleteJob(ctx, "job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("second delete = %v, expected ErrJobNotFound", err)
	}
}

// TestPurge tests clearing the whole history.
func TestPurge(t *testing.T) {
	t.Parallel()

	hdb := newTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for _, id := range []string{"a", "b", "c"} {
		if err := hdb.SaveJob(ctx, newTestJobRecord(id, model.StatusCompleted, base)); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	n, err := hdb.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Purge removed %d rows, expected 3", n)
	}

	records, err := hdb.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("history not empty after purge: %d records", len(records))
	}
}
