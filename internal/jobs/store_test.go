package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"demusic/internal/jobs"
	"demusic/internal/testsupport"
)

func openStore(t *testing.T, backend string) jobs.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStoreBackend(backend))
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", backend, err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store jobs.Store)) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			fn(t, openStore(t, backend))
		})
	}
}

func TestNewJobStartsPending(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store jobs.Store) {
		ctx := context.Background()
		job, err := store.NewJob(ctx, "/uploads/clip.mp4", "clip.mp4")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
		if job.ID == "" {
			t.Fatal("expected job ID to be assigned")
		}
		if job.Status != jobs.StatusPending {
			t.Fatalf("expected pending status, got %s", job.Status)
		}
		if job.Progress != 0 {
			t.Fatalf("expected progress 0, got %d", job.Progress)
		}

		fetched, err := store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.OriginalFilename != "clip.mp4" || fetched.SourcePath != "/uploads/clip.mp4" {
			t.Fatalf("unexpected fetched job: %#v", fetched)
		}
	})
}

func TestGetByIDUnknown(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store jobs.Store) {
		if _, err := store.GetByID(context.Background(), "no-such-job"); !errors.Is(err, jobs.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUpdatePersistsWholeRecord(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store jobs.Store) {
		ctx := context.Background()
		job, err := store.NewJob(ctx, "/uploads/clip.mp4", "clip.mp4")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}

		job.SetProcessing(25)
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		fetched, err := store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.Status != jobs.StatusProcessing || fetched.Progress != 25 {
			t.Fatalf("unexpected job after update: %#v", fetched)
		}
		if !fetched.UpdatedAt.After(fetched.CreatedAt) && !fetched.UpdatedAt.Equal(fetched.CreatedAt) {
			t.Fatalf("UpdatedAt %v precedes CreatedAt %v", fetched.UpdatedAt, fetched.CreatedAt)
		}
	})
}

func TestTerminalStatesAreSticky(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store jobs.Store) {
		ctx := context.Background()
		job, err := store.NewJob(ctx, "/uploads/clip.mp4", "clip.mp4")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}

		job.SetComplete("clip_processed.mp4")
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update to complete failed: %v", err)
		}

		job.SetFailed("late failure")
		if err := store.Update(ctx, job); !errors.Is(err, jobs.ErrTerminal) {
			t.Fatalf("expected ErrTerminal, got %v", err)
		}

		fetched, err := store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.Status != jobs.StatusComplete || fetched.OutputFile != "clip_processed.mp4" {
			t.Fatalf("terminal state was overwritten: %#v", fetched)
		}
	})
}

func TestProgressNeverDecreases(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store jobs.Store) {
		ctx := context.Background()
		job, err := store.NewJob(ctx, "/uploads/clip.mp4", "clip.mp4")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}

		job.SetProcessing(50)
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		job.Progress = 25
		if err := store.Update(ctx, job); err == nil {
			t.Fatal("expected error when progress decreases")
		}

		fetched, err := store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.Progress != 50 {
			t.Fatalf("expected progress to stay at 50, got %d", fetched.Progress)
		}
	})
}

func TestUpdateRejectsInvalidRecords(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store jobs.Store) {
		ctx := context.Background()
		job, err := store.NewJob(ctx, "/uploads/clip.mp4", "clip.mp4")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}

		// A completed job must carry an output file and no error message.
		tainted := job.Clone()
		tainted.Status = jobs.StatusComplete
		tainted.Progress = 100
		tainted.OutputFile = "clip_processed.mp4"
		tainted.ErrorMessage = "but also failed"
		if err := store.Update(ctx, tainted); err == nil {
			t.Fatal("expected validation error for mixed terminal fields")
		}

		missing := job.Clone()
		missing.Status = jobs.StatusError
		missing.Progress = 100
		if err := store.Update(ctx, missing); err == nil {
			t.Fatal("expected validation error for errored job without message")
		}
	})
}

func TestListFiltersByStatus(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store jobs.Store) {
		ctx := context.Background()
		first, err := store.NewJob(ctx, "/uploads/a.mp4", "a.mp4")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
		if _, err := store.NewJob(ctx, "/uploads/b.mp4", "b.mp4"); err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}

		first.SetComplete("a_processed.mp4")
		if err := store.Update(ctx, first); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		complete, err := store.List(ctx, jobs.StatusComplete)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(complete) != 1 || complete[0].ID != first.ID {
			t.Fatalf("unexpected complete list: %#v", complete)
		}

		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 jobs, got %d", len(all))
		}
		if all[0].CreatedAt.After(all[1].CreatedAt) {
			t.Fatal("expected jobs ordered by creation time")
		}
	})
}

func TestHealthSummaryCounts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store jobs.Store) {
		ctx := context.Background()
		if _, err := store.NewJob(ctx, "/uploads/a.mp4", "a.mp4"); err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
		second, err := store.NewJob(ctx, "/uploads/b.mp4", "b.mp4")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
		third, err := store.NewJob(ctx, "/uploads/c.mp4", "c.mp4")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}

		second.SetComplete("b_processed.mp4")
		if err := store.Update(ctx, second); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		third.SetFailed("audio extraction failed")
		if err := store.Update(ctx, third); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		summary, err := store.HealthSummary(ctx)
		if err != nil {
			t.Fatalf("HealthSummary failed: %v", err)
		}
		if summary.Total != 3 || summary.Pending != 1 || summary.Complete != 1 || summary.Errored != 1 {
			t.Fatalf("unexpected summary: %#v", summary)
		}
	})
}

func TestSnapshotsAreIsolated(t *testing.T) {
	store := jobs.NewMemoryStore()
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/uploads/clip.mp4", "clip.mp4")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	// Mutating a returned snapshot must not leak into the store.
	job.Status = jobs.StatusError
	job.ErrorMessage = "mutated locally"

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != jobs.StatusPending || fetched.ErrorMessage != "" {
		t.Fatalf("store leaked caller mutation: %#v", fetched)
	}
}

func TestConcurrentReadsDuringUpdates(t *testing.T) {
	store := jobs.NewMemoryStore()
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/uploads/clip.mp4", "clip.mp4")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, progress := range []int{10, 25, 50, 75} {
			snapshot, err := store.GetByID(ctx, job.ID)
			if err != nil {
				t.Errorf("GetByID failed: %v", err)
				return
			}
			snapshot.SetProcessing(progress)
			if err := store.Update(ctx, snapshot); err != nil {
				t.Errorf("Update failed: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		snapshot, err := store.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		// Readers must always observe a coherent whole record.
		if err := validStatusProgress(snapshot); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Progress != 75 || final.Status != jobs.StatusProcessing {
		t.Fatalf("unexpected final job: %#v", final)
	}
}

func validStatusProgress(job *jobs.Job) error {
	if job.Status == jobs.StatusPending && job.Progress != 0 {
		return errors.New("pending job with nonzero progress")
	}
	return nil
}
