package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/playmatatu/plinko/internal/game"
)

// FileStore keeps the whole library in one JSON document:
//
//	{ "<rows>": { "<slot>": [ [ {"x":..,"y":..}, ... ], ... ] } }
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context, rows int) (game.SlotBuckets, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return nil, err
	}
	return all[rows], nil
}

func (s *FileStore) LoadAll(ctx context.Context) (map[int]game.SlotBuckets, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) Save(ctx context.Context, rows int, buckets game.SlotBuckets) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return err
	}
	all[rows] = buckets
	return s.write(all)
}

func (s *FileStore) Delete(ctx context.Context, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := all[rows]; !ok {
		return nil
	}
	delete(all, rows)
	return s.write(all)
}

func (s *FileStore) read() (map[int]game.SlotBuckets, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[int]game.SlotBuckets), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	all := make(map[int]game.SlotBuckets)
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return all, nil
}

// write replaces the file atomically so a crash never leaves half a library.
func (s *FileStore) write(all map[int]game.SlotBuckets) error {
	data, err := json.Marshal(all)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".paths-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
