package jobstore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/genbank"
)

func TestCreate_InitialState(t *testing.T) {
	s := NewStore()

	job := s.Create(Input{Organism: "Escherichia coli", Limit: 20}, 20)

	if job.ID == "" {
		t.Fatal("expected a job id")
	}
	if job.Status != StatusQueued {
		t.Fatalf("status = %q, want queued", job.Status)
	}
	if job.Progress.Total != 20 || job.Progress.Completed != 0 || job.Progress.Errors != 0 {
		t.Fatalf("unexpected progress: %+v", job.Progress)
	}
	if job.SubmittedAt.IsZero() || !job.SubmittedAt.Equal(job.UpdatedAt) {
		t.Fatalf("timestamps not initialized: submitted=%v updated=%v", job.SubmittedAt, job.UpdatedAt)
	}
}

func TestGet_AbsentJob(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get("nope"); ok {
		t.Fatal("expected absent job")
	}
	// Mutations on absent jobs are no-ops, not panics.
	s.SetStatus("nope", StatusRunning)
	s.AppendError("nope", "boom")
}

func TestCountersTrackListLengths(t *testing.T) {
	s := NewStore()
	job := s.Create(Input{Accessions: []string{"NC_000913.3"}}, 1)

	s.AppendResult(job.ID, Result{Record: &genbank.Record{Accession: "NC_000913"}})
	s.AppendError(job.ID, "No nuccore link for GCF_1")
	s.AppendError(job.ID, "No nuccore link for GCF_2")

	got, ok := s.Get(job.ID)
	if !ok {
		t.Fatal("job vanished")
	}
	if got.Progress.Completed != len(got.Results) || got.Progress.Completed != 1 {
		t.Fatalf("completed=%d results=%d", got.Progress.Completed, len(got.Results))
	}
	if got.Progress.Errors != len(got.Errors) || got.Progress.Errors != 2 {
		t.Fatalf("errors=%d list=%d", got.Progress.Errors, len(got.Errors))
	}
}

func TestAppend_AdvancesUpdatedAt(t *testing.T) {
	s := NewStore()
	job := s.Create(Input{}, 1)

	time.Sleep(5 * time.Millisecond)
	s.AppendResult(job.ID, Result{Record: &genbank.Record{}})

	got, _ := s.Get(job.ID)
	if !got.UpdatedAt.After(job.UpdatedAt) {
		t.Fatalf("UpdatedAt did not advance: %v -> %v", job.UpdatedAt, got.UpdatedAt)
	}
}

func TestConcurrentAppends_NoLostUpdates(t *testing.T) {
	s := NewStore()
	job := s.Create(Input{}, 200)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.AppendResult(job.ID, Result{Record: &genbank.Record{Accession: fmt.Sprintf("ACC_%d", n)}})
			s.AppendError(job.ID, fmt.Sprintf("err %d", n))
		}(i)
	}
	wg.Wait()

	got, _ := s.Get(job.ID)
	if got.Progress.Completed != 100 || len(got.Results) != 100 {
		t.Fatalf("completed=%d results=%d, want 100", got.Progress.Completed, len(got.Results))
	}
	if got.Progress.Errors != 100 || len(got.Errors) != 100 {
		t.Fatalf("errors=%d list=%d, want 100", got.Progress.Errors, len(got.Errors))
	}
}

func TestList_NewestFirstAndTruncated(t *testing.T) {
	s := NewStore()

	first := s.Create(Input{Organism: "a"}, 0)
	time.Sleep(2 * time.Millisecond)
	second := s.Create(Input{Organism: "b"}, 0)
	time.Sleep(2 * time.Millisecond)
	third := s.Create(Input{Organism: "c"}, 0)

	got := s.List(2)
	if len(got) != 2 {
		t.Fatalf("unexpected job count: %d", len(got))
	}
	if got[0].ID != third.ID || got[1].ID != second.ID {
		t.Fatalf("expected newest first, got [%s %s]", got[0].Input.Organism, got[1].Input.Organism)
	}
	if all := s.List(0); len(all) != 3 {
		t.Fatalf("List(0) should not truncate, got %d", len(all))
	}
	_ = first
}

func TestSnapshot_IsolatedFromLaterMutation(t *testing.T) {
	s := NewStore()
	job := s.Create(Input{}, 2)

	snap, _ := s.Get(job.ID)
	s.AppendError(job.ID, "late error")

	if len(snap.Errors) != 0 {
		t.Fatal("snapshot mutated by later append")
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusQueued:    false,
		StatusRunning:   false,
		StatusSucceeded: true,
		StatusFailed:    true,
		StatusCanceled:  true,
	} {
		if got := status.Terminal(); got != want {
			t.Fatalf("Terminal(%q) = %v, want %v", status, got, want)
		}
	}
}
