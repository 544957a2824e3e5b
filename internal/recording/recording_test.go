package recording

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/pathstore"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func TestJobRecordsIntoLibraryAndStore(t *testing.T) {
	ctx := context.Background()
	store := pathstore.NewFileStore(filepath.Join(t.TempDir(), "paths.json"))
	lib := game.NewPathLibrary(0)
	events := &eventLog{}
	m := NewManager(lib, store, nil, Options{
		Recorder: game.RecorderOptions{Seed: 7},
		OnEvent:  events.add,
	})

	if _, err := m.Start(ctx, 8, 1, 5000, "tester"); err != nil {
		t.Fatal(err)
	}
	status, err := m.Wait(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if status.State != StateFinished || status.Stats == nil || status.Stats.Accepted == 0 {
		t.Fatalf("status %+v", status)
	}
	if lib.Total(8) != status.Stats.Accepted {
		t.Errorf("library holds %d paths, job accepted %d", lib.Total(8), status.Stats.Accepted)
	}
	saved, err := store.Load(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Count() != lib.Total(8) {
		t.Errorf("store has %d paths, library %d", saved.Count(), lib.Total(8))
	}
	if ev := events.last(); ev.Type != StateFinished || ev.Stats == nil {
		t.Errorf("last event %+v", ev)
	}
}

func TestJobCancelAndExclusive(t *testing.T) {
	ctx := context.Background()
	lib := game.NewPathLibrary(0)
	m := NewManager(lib, nil, nil, Options{
		Recorder: game.RecorderOptions{
			Seed:       3,
			YieldEvery: 1,
			Yield:      func() { time.Sleep(5 * time.Millisecond) },
		},
	})

	if _, err := m.Start(ctx, 12, 1000, 1000000, "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Start(ctx, 12, 10, 100, "other"); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second start err = %v", err)
	}
	if !m.Cancel(12) {
		t.Fatal("Cancel reported no running job")
	}
	status, err := m.Wait(ctx, 12)
	if err != nil {
		t.Fatal(err)
	}
	if status.State != StateCancelled || status.FinishedAt == nil {
		t.Errorf("status %+v", status)
	}
	if m.Cancel(12) {
		t.Error("cancelled a finished job")
	}
	// A finished job frees the row count.
	if _, err := m.Start(ctx, 12, 1, 1, "again"); err != nil {
		t.Errorf("restart: %v", err)
	}
	m.Shutdown()
}

func TestStartRejectsUnsupportedRows(t *testing.T) {
	m := NewManager(game.NewPathLibrary(0), nil, nil, Options{})
	if _, err := m.Start(context.Background(), 3, 1, 1, "tester"); !errors.Is(err, game.ErrUnsupportedRows) {
		t.Errorf("err = %v", err)
	}
	if len(m.Status()) != 0 {
		t.Error("rejected job was registered")
	}
}
