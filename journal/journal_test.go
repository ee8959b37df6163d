package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/mixin/vm"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return j, path
}

func TestOpenStartsSession(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	if j.Session() == "" {
		t.Fatal("session ID should not be empty")
	}
	sessions, err := j.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != j.Session() || sessions[0].Events != 0 {
		t.Errorf("Sessions() = %+v", sessions)
	}
}

func TestJournalRecordsSpaceEvents(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	s := vm.NewSpace(vm.WithTracer(j))
	cls := vm.NewClass("Journaled", func(*vm.Object) {}, nil)
	obj := s.New()
	obj.ClassPush(cls, nil)
	obj.Unref()

	if err := j.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	events, err := j.Events(j.Session())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}

	want := []vm.EventKind{
		vm.EventCreated, vm.EventClassPushed, vm.EventFreed,
		vm.EventTornDown, vm.EventDeleted,
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, ev := range events {
		if ev.Kind != want[i] {
			t.Errorf("event %d: got %s, want %s", i, ev.Kind, want[i])
		}
		if ev.Object != obj.ID() {
			t.Errorf("event %d: object %d, want %d", i, ev.Object, obj.ID())
		}
	}
}

func TestSessionsAcrossReopen(t *testing.T) {
	j1, path := openTemp(t)
	j1.Trace(vm.Event{Kind: vm.EventCreated, Object: 1})
	j1.Trace(vm.Event{Kind: vm.EventDeleted, Object: 1})
	first := j1.Session()
	if err := j1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()
	if j2.Session() == first {
		t.Fatal("reopening should start a new session")
	}

	sessions, err := j2.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != first || sessions[0].Events != 2 {
		t.Errorf("first session = %+v", sessions[0])
	}

	events, err := j2.Events(first)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 || events[1].Kind != vm.EventDeleted {
		t.Errorf("events = %+v", events)
	}
}

func TestEventsUnknownSession(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()
	if _, err := j.Events("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Events(nope) error = %v, want ErrSessionNotFound", err)
	}
}

func TestClosedJournal(t *testing.T) {
	j, _ := openTemp(t)
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := j.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if _, err := j.Events(j.Session()); !errors.Is(err, ErrClosed) {
		t.Errorf("Events = %v, want ErrClosed", err)
	}
	if _, err := j.Sessions(); !errors.Is(err, ErrClosed) {
		t.Errorf("Sessions = %v, want ErrClosed", err)
	}

	j.Trace(vm.Event{Kind: vm.EventCreated, Object: 1})
	if !errors.Is(j.Err(), ErrClosed) {
		t.Errorf("Err() = %v, want ErrClosed", j.Err())
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "trace.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	j.Close()
}

func TestOpenReadOnly(t *testing.T) {
	w, path := openTemp(t)
	w.Trace(vm.Event{Kind: vm.EventCreated, Object: 5})
	written := w.Session()
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for i := 0; i < 2; i++ {
		r, err := OpenReadOnly(path)
		if err != nil {
			t.Fatalf("OpenReadOnly: %v", err)
		}
		if r.Session() != "" {
			t.Errorf("read-only Session() = %q, want empty", r.Session())
		}
		sessions, err := r.Sessions()
		if err != nil {
			t.Fatalf("Sessions: %v", err)
		}
		if len(sessions) != 1 || sessions[0].ID != written || sessions[0].Events != 1 {
			t.Errorf("open %d: Sessions() = %+v, want only %s", i, sessions, written)
		}
		events, err := r.Events(written)
		if err != nil || len(events) != 1 || events[0].Object != 5 {
			t.Errorf("Events = %+v, %v", events, err)
		}

		r.Trace(vm.Event{Kind: vm.EventDeleted, Object: 5})
		if !errors.Is(r.Err(), ErrReadOnly) {
			t.Errorf("Err() = %v, want ErrReadOnly", r.Err())
		}
		r.Close()
	}
}

func TestOpenReadOnlyMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	if _, err := OpenReadOnly(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("OpenReadOnly error = %v, want os.ErrNotExist", err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("OpenReadOnly must not create the file")
	}
}
