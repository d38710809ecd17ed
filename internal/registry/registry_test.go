package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timvw/pane-pilot/internal/model"
)

func newExec(id string, status model.Status, started time.Time) model.Execution {
	return model.Execution{ID: id, PaneID: "%1", Command: "ls", Status: status, StartedAt: started}
}

func TestRegistry_InsertAndGet(t *testing.T) {
	now := time.Now().UTC()
	r := New()
	r.Insert(newExec("a", model.StatusPending, now))

	got, ok := r.Get("a")
	if !ok {
		t.Fatal("expected execution a")
	}
	if got.Status != model.StatusPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}

	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected missing id to be not found")
	}
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := New()
	e := newExec("a", model.StatusCompleted, time.Now())
	e.ExitCode = model.IntPtr(0)
	r.Insert(e)

	got, _ := r.Get("a")
	got.Status = model.StatusError
	*got.ExitCode = 9

	again, _ := r.Get("a")
	if again.Status != model.StatusCompleted || *again.ExitCode != 0 {
		t.Fatalf("stored record changed through a copy: %+v", again)
	}
}

func TestRegistry_Update(t *testing.T) {
	r := New()
	r.Insert(newExec("a", model.StatusPending, time.Now()))

	got, ok := r.Update("a", func(e *model.Execution) {
		e.Status = model.StatusCompleted
		e.Snapshot = "$ "
	})
	if !ok {
		t.Fatal("expected update to find a")
	}
	if got.Status != model.StatusCompleted || got.Snapshot != "$ " {
		t.Fatalf("unexpected result %+v", got)
	}

	if _, ok := r.Update("missing", func(*model.Execution) { t.Fatal("fn called for missing id") }); ok {
		t.Fatal("expected missing id to be not found")
	}
}

func TestRegistry_IDsSorted(t *testing.T) {
	r := New()
	now := time.Now()
	for _, id := range []string{"c", "a", "b"} {
		r.Insert(newExec(id, model.StatusPending, now))
	}
	ids := r.IDs()
	if fmt.Sprint(ids) != "[a b c]" {
		t.Fatalf("expected sorted ids, got %v", ids)
	}
}

func TestRegistry_ListOldestFirst(t *testing.T) {
	r := New()
	now := time.Now()
	r.Insert(newExec("late", model.StatusPending, now.Add(time.Second)))
	r.Insert(newExec("early", model.StatusPending, now))

	list := r.List()
	if len(list) != 2 || list[0].ID != "early" || list[1].ID != "late" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestRegistry_SweepRemovesOldTerminalOnly(t *testing.T) {
	now := time.Now().UTC()
	r := New()
	r.Insert(newExec("old-done", model.StatusCompleted, now.Add(-2*time.Hour)))
	r.Insert(newExec("old-error", model.StatusError, now.Add(-2*time.Hour)))
	r.Insert(newExec("old-pending", model.StatusPending, now.Add(-48*time.Hour)))
	r.Insert(newExec("fresh-done", model.StatusCompleted, now.Add(-time.Minute)))

	removed := r.Sweep(now, time.Hour)
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if fmt.Sprint(r.IDs()) != "[fresh-done old-pending]" {
		t.Fatalf("unexpected survivors %v", r.IDs())
	}
}

func TestRegistry_SweepBoundaryIsExclusive(t *testing.T) {
	now := time.Now().UTC()
	r := New()
	r.Insert(newExec("edge", model.StatusCompleted, now.Add(-time.Hour)))

	if n := r.Sweep(now, time.Hour); n != 0 {
		t.Fatalf("record exactly maxAge old must survive, removed %d", n)
	}
}

func TestRegistry_UpdatesOnDifferentIDsDoNotBlock(t *testing.T) {
	r := New()
	now := time.Now()
	r.Insert(newExec("slow", model.StatusPending, now))
	r.Insert(newExec("fast", model.StatusPending, now))

	release := make(chan struct{})
	entered := make(chan struct{})
	go r.Update("slow", func(*model.Execution) {
		close(entered)
		<-release
	})
	<-entered

	done := make(chan struct{})
	go func() {
		r.Update("fast", func(e *model.Execution) { e.Status = model.StatusCompleted })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("update on a different id blocked")
	}
	close(release)
}

func TestRegistry_UpdatesOnSameIDAreSerialized(t *testing.T) {
	r := New()
	r.Insert(newExec("a", model.StatusPending, time.Now()))

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Update("a", func(*model.Execution) {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
			})
		}()
	}
	wg.Wait()
	if maxInside.Load() != 1 {
		t.Fatalf("expected serialized updates, saw %d concurrent", maxInside.Load())
	}
}

func TestJanitor_SweepOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := New()
	r.Insert(newExec("old", model.StatusCompleted, now.Add(-61*time.Minute)))
	r.Insert(newExec("running", model.StatusPending, now.Add(-5*time.Hour)))

	j := &Janitor{Registry: r, now: func() time.Time { return now }}
	if n := j.SweepOnce(context.Background()); n != 1 {
		t.Fatalf("expected 1 removed with default max age, got %d", n)
	}
	if _, ok := r.Get("running"); !ok {
		t.Fatal("pending execution was removed")
	}
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	r := New()
	r.Insert(newExec("old", model.StatusCompleted, time.Now().Add(-time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	j := &Janitor{Registry: r, Interval: time.Millisecond, MaxAge: time.Minute}
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for r.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if r.Len() != 0 {
		t.Fatal("janitor did not sweep the old execution")
	}
}
