package pathstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/playmatatu/plinko/internal/game"
)

func samplePath(slot int) game.RecordedPath {
	return game.RecordedPath{{X: 360, Y: 40}, {X: 300 + float64(slot), Y: 300}, {X: 250 + float64(slot)*10, Y: 610}}
}

func TestFileStoreMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "none.json"))
	buckets, err := s.Load(context.Background(), 8)
	if err != nil || buckets != nil {
		t.Fatalf("Load on missing file = %v, %v", buckets, err)
	}
	all, err := s.LoadAll(context.Background())
	if err != nil || len(all) != 0 {
		t.Fatalf("LoadAll on missing file = %v, %v", all, err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "paths.json")
	s := NewFileStore(path)

	eight := game.SlotBuckets{0: {samplePath(0)}, 4: {samplePath(4), samplePath(5)}}
	twelve := game.SlotBuckets{6: {samplePath(6)}}
	if err := s.Save(ctx, 8, eight); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, 12, twelve); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"8":{"0":[[{"x":360,"y":40}`) {
		t.Errorf("unexpected document layout: %.80s", data)
	}

	got, err := NewFileStore(path).Load(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got.Count() != 3 || len(got[4]) != 2 {
		t.Fatalf("loaded %v", got)
	}
	if final, _ := got[4][1].Final(); final != (game.Point{X: 300, Y: 610}) {
		t.Errorf("final point %+v", final)
	}

	if err := s.Delete(ctx, 8); err != nil {
		t.Fatal(err)
	}
	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := all[8]; ok || all[12].Count() != 1 {
		t.Errorf("after delete: %v", all)
	}
}

func slotPath(t *testing.T, rows, slot int) game.RecordedPath {
	t.Helper()
	b, err := game.BuildBoard(rows)
	if err != nil {
		t.Fatal(err)
	}
	return game.RecordedPath{{X: b.CenterX(), Y: b.SpawnY}, {X: b.SlotCenter(slot), Y: b.FallbackY}}
}

func TestLoadInto(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "paths.json"))
	if err := s.Save(ctx, 10, game.SlotBuckets{2: {slotPath(t, 10, 2)}, 3: {slotPath(t, 10, 3)}}); err != nil {
		t.Fatal(err)
	}
	lib := game.NewPathLibrary(0)
	n, err := LoadInto(ctx, s, lib)
	if err != nil || n != 2 {
		t.Fatalf("LoadInto = %d, %v", n, err)
	}
	if lib.Count(10, 3) != 1 {
		t.Errorf("library counts %v", lib.Counts(10))
	}
}

func TestLoadIntoDropsInvalidPaths(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "paths.json"))
	eight := game.SlotBuckets{
		// filed under the wrong slot
		1: {slotPath(t, 8, 1), slotPath(t, 8, 5)},
		// over capacity
		4: {slotPath(t, 8, 4), slotPath(t, 8, 4), slotPath(t, 8, 4)},
		// out of range
		9:  {slotPath(t, 8, 8)},
		-1: {slotPath(t, 8, 0)},
		// empty path
		6: {{}},
	}
	if err := s.Save(ctx, 8, eight); err != nil {
		t.Fatal(err)
	}
	// unsupported row count
	if err := s.Save(ctx, 30, game.SlotBuckets{0: {slotPath(t, 8, 0)}}); err != nil {
		t.Fatal(err)
	}

	lib := game.NewPathLibrary(2)
	n, err := LoadInto(ctx, s, lib)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("loaded %d paths, want 3", n)
	}
	counts := lib.Counts(8)
	if counts[1] != 1 || counts[4] != 2 || counts[6] != 0 || counts[9] != 0 || counts[-1] != 0 {
		t.Errorf("counts %v", counts)
	}
	if lib.Total(30) != 0 {
		t.Errorf("unsupported rows loaded %d paths", lib.Total(30))
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paths.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).LoadAll(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}
