package download

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mediaserve/internal/domain"
	"mediaserve/internal/domain/ports"
)

const defaultPollInterval = 500 * time.Millisecond

// Job is one magnet download from queue to library. The payload lands in a
// per-job temp directory; once the transfer finishes, files with wanted
// extensions move into DestDir, everything else is deleted and the temp
// directory goes away. The worker runs on its own goroutine and the job is
// safe to observe concurrently while it runs.
type Job struct {
	ID        string
	MagnetURI string
	DestDir   string
	TempDir   string

	engine       ports.TransferEngine
	wantedExts   map[string]struct{}
	notify       func(*Job)
	logger       *slog.Logger
	pollInterval time.Duration

	cancelRequested atomic.Bool
	done            chan struct{}

	mu           sync.RWMutex
	name         string
	status       domain.JobStatus
	errMsg       string
	progress     float64
	downloadRate float64
	uploadRate   float64
	elapsed      time.Duration
	etaSeconds   *int64
	createdAt    time.Time
	startedAt    *time.Time
	completedAt  *time.Time
}

func newJob(
	id string,
	magnetURI string,
	destDir string,
	tempDir string,
	extensions []string,
	engine ports.TransferEngine,
	notify func(*Job),
	logger *slog.Logger,
) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		ID:           id,
		MagnetURI:    magnetURI,
		DestDir:      destDir,
		TempDir:      tempDir,
		engine:       engine,
		wantedExts:   normalizeExtensions(extensions),
		notify:       notify,
		logger:       logger,
		pollInterval: defaultPollInterval,
		done:         make(chan struct{}),
		status:       domain.JobQueued,
		createdAt:    time.Now().UTC(),
	}
}

// Start launches the worker goroutine. Call at most once.
func (j *Job) Start() {
	go j.run()
}

// Cancel asks the worker to stop. It returns immediately; the worker notices
// within one poll interval. Calling Cancel on a finished job has no effect.
func (j *Job) Cancel() {
	j.cancelRequested.Store(true)
}

// Done is closed when the worker goroutine has fully stopped.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Status returns the current lifecycle state.
func (j *Job) Status() domain.JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Snapshot returns a copy of the job's observable state for JSON rendering.
func (j *Job) Snapshot() domain.JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	snap := domain.JobSnapshot{
		ID:             j.ID,
		Magnet:         j.MagnetURI,
		Name:           j.name,
		Status:         j.status,
		Error:          j.errMsg,
		Progress:       domain.ProgressPercent(j.progress),
		DownloadRate:   j.downloadRate,
		UploadRate:     j.uploadRate,
		ElapsedSeconds: int64(j.elapsed.Seconds()),
		CreatedAt:      j.createdAt,
	}
	if j.etaSeconds != nil {
		v := *j.etaSeconds
		snap.ETASeconds = &v
	}
	if j.startedAt != nil {
		t := *j.startedAt
		snap.StartedAt = &t
	}
	if j.completedAt != nil {
		t := *j.completedAt
		snap.CompletedAt = &t
	}
	return snap
}

// ForceCleanup removes the job's temp directory. The manager calls it when a
// job is deleted and the worker did not stop within the join timeout.
func (j *Job) ForceCleanup() {
	if j.TempDir == "" {
		return
	}
	_ = os.RemoveAll(j.TempDir)
}

func (j *Job) run() {
	defer close(j.done)
	defer j.notifyFinished()
	defer func() {
		if r := recover(); r != nil {
			j.fail(fmt.Sprintf("unexpected failure: %v", r))
			j.ForceCleanup()
		}
		j.logFinished()
	}()

	if j.engine == nil {
		j.fail(domain.ErrEngineUnavailable.Error())
		return
	}

	if err := os.MkdirAll(j.TempDir, 0o755); err != nil {
		j.fail("create temp dir: " + err.Error())
		return
	}

	j.execute()
}

func (j *Job) execute() {
	j.markDownloading()

	handle, err := j.engine.Open(context.Background(), j.MagnetURI, j.TempDir)
	if err != nil {
		j.fail("open transfer: " + err.Error())
		j.ForceCleanup()
		return
	}

	started := time.Now()
	for !j.cancelRequested.Load() {
		st := handle.Status()
		j.observe(st, time.Since(started))
		if st.Complete {
			break
		}
		time.Sleep(j.pollInterval)
	}

	// Detach before touching payload files so the engine releases its file
	// handles and stops uploading.
	handle.Drop()

	if j.cancelRequested.Load() {
		j.transitionTo(domain.JobCancelled)
		j.ForceCleanup()
		return
	}

	j.transitionTo(domain.JobProcessing)
	err = j.collectFiles()
	j.ForceCleanup()
	if err != nil {
		j.fail("collect files: " + err.Error())
		return
	}
	j.markCompleted()
}

// observe records one poll sample under the job lock.
func (j *Job) observe(st ports.TransferStatus, elapsed time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.name == "" && st.InfoReady {
		j.name = st.Name
	}
	if st.TotalBytes > 0 {
		j.progress = float64(st.CompletedBytes) / float64(st.TotalBytes)
	}
	j.downloadRate = st.DownloadRate
	j.uploadRate = st.UploadRate
	j.elapsed = elapsed

	j.etaSeconds = nil
	remaining := st.TotalBytes - st.CompletedBytes
	if st.DownloadRate > 0 && remaining > 0 {
		v := int64(float64(remaining) / st.DownloadRate)
		j.etaSeconds = &v
	}
}

// collectFiles moves files with wanted extensions from the temp directory
// into DestDir and deletes the rest. Name collisions in DestDir get a
// numeric suffix instead of overwriting.
func (j *Job) collectFiles() error {
	if err := os.MkdirAll(j.DestDir, 0o755); err != nil {
		return err
	}
	return filepath.WalkDir(j.TempDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !j.wantedFile(d.Name()) {
			_ = os.Remove(path)
			return nil
		}
		target, err := moveWithoutOverwrite(path, j.DestDir, d.Name())
		if err != nil {
			return err
		}
		j.logger.Debug("library file added",
			slog.String("jobId", j.ID),
			slog.String("file", filepath.Base(target)),
		)
		return nil
	})
}

func (j *Job) wantedFile(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	_, ok := j.wantedExts[ext]
	return ok
}

func (j *Job) markDownloading() {
	now := time.Now().UTC()
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.transitionLocked(domain.JobDownloading) {
		j.startedAt = &now
	}
}

func (j *Job) markCompleted() {
	now := time.Now().UTC()
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.transitionLocked(domain.JobCompleted) {
		j.progress = 1.0
		j.completedAt = &now
	}
}

// fail moves the job to the error state with a reason. It is a no-op once
// the job is terminal, so a late failure never overwrites a cancellation.
func (j *Job) fail(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.transitionLocked(domain.JobError) {
		j.errMsg = reason
	}
}

func (j *Job) transitionTo(next domain.JobStatus) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(next)
}

func (j *Job) transitionLocked(next domain.JobStatus) bool {
	if !domain.CanTransition(j.status, next) {
		return false
	}
	j.status = next
	return true
}

func (j *Job) notifyFinished() {
	if j.notify == nil {
		return
	}
	if j.Status().Terminal() {
		j.notify(j)
	}
}

func (j *Job) logFinished() {
	snap := j.Snapshot()
	if snap.Status == domain.JobError {
		j.logger.Error("download job failed",
			slog.String("jobId", j.ID),
			slog.String("error", snap.Error),
		)
		return
	}
	j.logger.Info("download job finished",
		slog.String("jobId", j.ID),
		slog.String("status", string(snap.Status)),
		slog.String("name", snap.Name),
	)
}

// moveWithoutOverwrite moves src into destDir under name, appending _1, _2,
// ... to the base name while the target exists. It returns the final path.
func moveWithoutOverwrite(src, destDir, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	target := filepath.Join(destDir, name)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(target); err != nil {
			break
		}
		target = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}
	if err := moveFile(src, target); err != nil {
		return "", err
	}
	return target, nil
}

// moveFile renames src to dst, falling back to copy-and-delete when the two
// paths live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// normalizeExtensions lowercases entries and strips spaces and leading dots.
// Empty entries are dropped.
func normalizeExtensions(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimLeft(strings.TrimSpace(e), "."))
		if e == "" {
			continue
		}
		set[e] = struct{}{}
	}
	return set
}
