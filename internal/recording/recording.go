package recording

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/pathstore"
	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis channel recording progress is published on.
const EventsChannel = "recording_events"

const lockTTL = 2 * time.Hour

var ErrAlreadyRecording = errors.New("a recording job is already running for this row count")

// Job states.
const (
	StateRunning   = "running"
	StateFinished  = "finished"
	StateCancelled = "cancelled"
	StateFailed    = "failed"
)

// Event is published on every progress change and once when a job ends.
type Event struct {
	Type     string              `json:"type"`
	Rows     int                 `json:"rows"`
	State    string              `json:"state"`
	Progress game.RecordProgress `json:"progress"`
	Stats    *game.RecordStats   `json:"stats,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// JobStatus is the public view of a recording job.
type JobStatus struct {
	Rows           int                 `json:"rows"`
	SamplesPerSlot int                 `json:"samples_per_slot"`
	MaxAttempts    int                 `json:"max_attempts"`
	StartedBy      string              `json:"started_by"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
	State          string              `json:"state"`
	Progress       game.RecordProgress `json:"progress"`
	Stats          *game.RecordStats   `json:"stats,omitempty"`
	Error          string              `json:"error,omitempty"`
}

type job struct {
	status JobStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// Options configures a Manager.
type Options struct {
	Recorder game.RecorderOptions
	// OnEvent receives events locally when no Redis client is configured.
	OnEvent func(Event)
}

// Manager runs background recording jobs, at most one per row count. With
// Redis the limit holds across instances.
type Manager struct {
	library *game.PathLibrary
	store   pathstore.Store
	rdb     *redis.Client
	opts    Options
	owner   string

	mu   sync.Mutex
	jobs map[int]*job // keyed by rows
}

func NewManager(library *game.PathLibrary, store pathstore.Store, rdb *redis.Client, opts Options) *Manager {
	host, _ := os.Hostname()
	return &Manager{
		library: library,
		store:   store,
		rdb:     rdb,
		opts:    opts,
		owner:   fmt.Sprintf("%s:%d", host, os.Getpid()),
		jobs:    make(map[int]*job),
	}
}

func lockKey(rows int) string {
	return fmt.Sprintf("recording_lock:%d", rows)
}

// Start launches a recording job for rows. Accepted paths go straight into
// the live library and are persisted as the job runs.
func (m *Manager) Start(ctx context.Context, rows, samplesPerSlot, maxAttempts int, startedBy string) (JobStatus, error) {
	if _, err := game.BuildBoard(rows); err != nil {
		return JobStatus{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[rows]; ok && j.status.State == StateRunning {
		return JobStatus{}, ErrAlreadyRecording
	}
	if m.rdb != nil {
		ok, err := m.rdb.SetNX(ctx, lockKey(rows), m.owner, lockTTL).Result()
		if err != nil {
			return JobStatus{}, fmt.Errorf("acquire recording lock: %w", err)
		}
		if !ok {
			return JobStatus{}, ErrAlreadyRecording
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	j := &job{
		status: JobStatus{
			Rows:           rows,
			SamplesPerSlot: samplesPerSlot,
			MaxAttempts:    maxAttempts,
			StartedBy:      startedBy,
			StartedAt:      time.Now(),
			State:          StateRunning,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.jobs[rows] = j
	log.Printf("[RECORDER] job started rows=%d per_slot=%d max_attempts=%d by=%s", rows, samplesPerSlot, maxAttempts, startedBy)

	go m.run(runCtx, j)
	return j.status, nil
}

func (m *Manager) run(ctx context.Context, j *job) {
	defer close(j.done)
	defer j.cancel()
	rows := j.status.Rows

	opts := m.opts.Recorder
	opts.Into = m.library
	if m.store != nil {
		opts.Persist = m.store.Save
	}
	lastRecorded := -1
	opts.OnProgress = func(p game.RecordProgress) {
		m.mu.Lock()
		j.status.Progress = p
		m.mu.Unlock()
		if p.Recorded != lastRecorded {
			lastRecorded = p.Recorded
			m.publish(Event{Type: "progress", Rows: rows, State: StateRunning, Progress: p})
		}
	}

	_, stats, err := game.NewPathRecorder(opts).RecordSamples(ctx, rows, j.status.SamplesPerSlot, j.status.MaxAttempts)

	now := time.Now()
	m.mu.Lock()
	j.status.FinishedAt = &now
	j.status.Stats = &stats
	switch {
	case stats.Cancelled:
		j.status.State = StateCancelled
	case err != nil:
		j.status.State = StateFailed
		j.status.Error = err.Error()
	default:
		j.status.State = StateFinished
	}
	final := Event{Type: j.status.State, Rows: rows, State: j.status.State, Progress: j.status.Progress, Stats: &stats, Error: j.status.Error}
	m.mu.Unlock()

	m.release(rows)
	m.publish(final)
	log.Printf("[RECORDER] job %s rows=%d accepted=%d attempts=%d", final.State, rows, stats.Accepted, stats.Attempts)
}

// Cancel stops the job for rows. Paths recorded so far are kept.
func (m *Manager) Cancel(rows int) bool {
	m.mu.Lock()
	j, ok := m.jobs[rows]
	running := ok && j.status.State == StateRunning
	m.mu.Unlock()
	if !running {
		return false
	}
	j.cancel()
	<-j.done
	return true
}

// Status lists every job this instance has run, by rows.
func (m *Manager) Status() []JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]JobStatus, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.status)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Rows < out[b].Rows })
	return out
}

// Wait blocks until the job for rows ends or ctx is done.
func (m *Manager) Wait(ctx context.Context, rows int) (JobStatus, error) {
	m.mu.Lock()
	j, ok := m.jobs[rows]
	m.mu.Unlock()
	if !ok {
		return JobStatus{}, fmt.Errorf("no recording job for rows %d", rows)
	}
	select {
	case <-j.done:
	case <-ctx.Done():
		return JobStatus{}, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return j.status, nil
}

// Shutdown cancels every running job and waits for them to persist.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	running := make([]*job, 0)
	for _, j := range m.jobs {
		if j.status.State == StateRunning {
			running = append(running, j)
		}
	}
	m.mu.Unlock()
	for _, j := range running {
		j.cancel()
		<-j.done
	}
}

func (m *Manager) release(rows int) {
	if m.rdb == nil {
		return
	}
	ctx := context.Background()
	owner, err := m.rdb.Get(ctx, lockKey(rows)).Result()
	if err != nil || owner != m.owner {
		return
	}
	if err := m.rdb.Del(ctx, lockKey(rows)).Err(); err != nil {
		log.Printf("[REDIS] failed to release recording lock rows=%d: %v", rows, err)
	}
}

func (m *Manager) publish(ev Event) {
	if m.rdb == nil {
		if m.opts.OnEvent != nil {
			m.opts.OnEvent(ev)
		}
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := m.rdb.Publish(context.Background(), EventsChannel, data).Err(); err != nil {
		log.Printf("[REDIS] failed to publish recording event: %v", err)
	}
}
