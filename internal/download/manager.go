package download

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaserve/internal/domain"
	"mediaserve/internal/domain/ports"
)

// joinTimeout bounds how long Delete and Shutdown wait for a worker
// goroutine to stop after cancellation.
const joinTimeout = time.Second

var ErrEmptyMagnet = errors.New("magnet uri is required")

// Config carries the directories and defaults a Manager hands to its jobs.
type Config struct {
	TempRoot   string   // per-job temp directories are created under here
	DestDir    string   // completed payload files land here
	Extensions []string // default wanted extensions when a request names none

	// OnFinished, when set, receives a final snapshot of every job that
	// reaches a terminal state, after the job left the registry.
	OnFinished func(domain.JobSnapshot)
}

// Manager is an in-memory registry of download jobs. Jobs remove themselves
// when they reach a terminal state, so List only ever shows live work. State
// does not survive a process restart.
type Manager struct {
	engine       ports.TransferEngine
	cfg          Config
	logger       *slog.Logger
	pollInterval time.Duration

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager builds a Manager. The engine may be nil; jobs added then fail
// immediately instead of downloading.
func NewManager(engine ports.TransferEngine, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		engine:       engine,
		cfg:          cfg,
		logger:       logger,
		pollInterval: defaultPollInterval,
		jobs:         make(map[string]*Job),
	}
}

// Add registers a new job for the magnet and starts its worker. When
// extensions is empty the manager's defaults apply. The only rejection is
// an empty magnet; anything else becomes a job that reports its own fate.
func (m *Manager) Add(magnetURI string, extensions []string) (*Job, error) {
	magnetURI = strings.TrimSpace(magnetURI)
	if magnetURI == "" {
		return nil, ErrEmptyMagnet
	}
	if len(extensions) == 0 {
		extensions = m.cfg.Extensions
	}

	id := newJobID()
	job := newJob(
		id,
		magnetURI,
		m.cfg.DestDir,
		filepath.Join(m.cfg.TempRoot, id),
		extensions,
		m.engine,
		m.jobFinished,
		m.logger,
	)
	job.pollInterval = m.pollInterval

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.logger.Info("download job queued", slog.String("jobId", job.ID))
	job.Start()
	return job, nil
}

// List returns snapshots of all live jobs, oldest first.
func (m *Manager) List() []domain.JobSnapshot {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.Unlock()

	snaps := make([]domain.JobSnapshot, 0, len(jobs))
	for _, j := range jobs {
		snaps = append(snaps, j.Snapshot())
	}
	sort.Slice(snaps, func(i, k int) bool {
		if snaps[i].CreatedAt.Equal(snaps[k].CreatedAt) {
			return snaps[i].ID < snaps[k].ID
		}
		return snaps[i].CreatedAt.Before(snaps[k].CreatedAt)
	})
	return snaps
}

// Get returns the live job with the given id, if any.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	return j, ok
}

// Count returns the number of live jobs.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Ready reports whether a transfer engine is attached. Without one every
// new job fails immediately.
func (m *Manager) Ready() bool {
	return m.engine != nil
}

// Delete cancels the job, waits up to the join timeout for its worker to
// stop, removes leftover temp data and forgets the job. It returns false
// when no live job has the given id.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if ok {
		delete(m.jobs, id)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	job.Cancel()
	select {
	case <-job.Done():
	case <-time.After(joinTimeout):
	}
	job.ForceCleanup()

	m.logger.Info("download job deleted", slog.String("jobId", id))
	return true
}

// Shutdown cancels every live job and waits up to the join timeout for each
// worker to stop. Call before closing the transfer engine.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.Unlock()

	for _, j := range jobs {
		j.Cancel()
	}
	for _, j := range jobs {
		select {
		case <-j.Done():
		case <-time.After(joinTimeout):
		}
	}
}

// jobFinished is the terminal-state callback jobs invoke from their worker
// goroutine. The registry entry is removed only if it still points at the
// same job; Delete may have already popped it.
func (m *Manager) jobFinished(j *Job) {
	m.mu.Lock()
	if cur, ok := m.jobs[j.ID]; ok && cur == j {
		delete(m.jobs, j.ID)
	}
	m.mu.Unlock()

	if m.cfg.OnFinished != nil {
		m.cfg.OnFinished(j.Snapshot())
	}
}

func newJobID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
