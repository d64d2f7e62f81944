package anacrolix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/storage"

	"mediaserve/internal/domain/ports"
)

type Config struct {
	ListenPort int
}

// Engine implements ports.TransferEngine over one shared anacrolix client.
// Every transfer pins its payload to its own directory through per-spec
// file storage, so jobs can be moved and cleaned up independently.
type Engine struct {
	client *torrent.Client
	logger *slog.Logger

	speedMu sync.Mutex
	speeds  map[*torrent.Torrent]speedSample
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := torrent.NewDefaultClientConfig()
	if cfg.ListenPort > 0 {
		clientConfig.ListenPort = cfg.ListenPort
	}
	// Upload to peers while downloading; handles are dropped right after
	// completion so nothing seeds beyond the job's lifetime.
	clientConfig.Seed = true

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &Engine{
		client: client,
		logger: logger,
		speeds: make(map[*torrent.Torrent]speedSample),
	}, nil
}

// addTimeout caps the time we wait for the anacrolix client to accept a
// spec. AddTorrentSpec can block on an internal client mutex when the
// client is busy with another torrent.
const addTimeout = 10 * time.Second

func (e *Engine) Open(ctx context.Context, magnetURI, saveDir string) (ports.TransferHandle, error) {
	uri := strings.TrimSpace(magnetURI)
	if uri == "" {
		return nil, errors.New("magnet URI is required")
	}

	spec, err := torrent.TorrentSpecFromMagnetUri(uri)
	if err != nil {
		return nil, fmt.Errorf("parse magnet: %w", err)
	}
	spec.Storage = storage.NewFile(saveDir)

	if e.client == nil {
		return nil, errors.New("torrent client not configured")
	}

	type addResult struct {
		t   *torrent.Torrent
		err error
	}
	ch := make(chan addResult, 1)
	go func() {
		t, _, err := e.client.AddTorrentSpec(spec)
		ch <- addResult{t, err}
	}()

	var t *torrent.Torrent
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		t = res.t
	case <-time.After(addTimeout):
		// The goroutine may still complete the add after we return; drop
		// the orphaned torrent when it does.
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return nil, errors.New("torrent client busy, try again later")
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return nil, ctx.Err()
	}

	// Arm the full download once metadata arrives. If the handle is
	// dropped first the torrent closes and this exits without acting.
	go func() {
		select {
		case <-t.GotInfo():
			t.DownloadAll()
		case <-t.Closed():
		}
	}()

	e.logger.Debug("transfer opened",
		slog.String("infoHash", t.InfoHash().HexString()),
		slog.String("saveDir", saveDir),
	)
	return &handle{engine: e, torrent: t}, nil
}

func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	errs := e.client.Close()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func torrentInfoReady(t *torrent.Torrent) bool {
	if t == nil {
		return false
	}
	select {
	case <-t.GotInfo():
		return true
	default:
		return false
	}
}

type speedSample struct {
	at           time.Time
	bytesRead    int64
	bytesWritten int64
}

// sampleSpeed derives rates from the delta between the current transfer
// counters and the previous sample for this torrent. The first call only
// records a baseline and reports zero.
func (e *Engine) sampleSpeed(key *torrent.Torrent, read, written int64, now time.Time) (download, upload float64) {
	e.speedMu.Lock()
	defer e.speedMu.Unlock()

	prev, ok := e.speeds[key]
	e.speeds[key] = speedSample{at: now, bytesRead: read, bytesWritten: written}
	if !ok || prev.at.IsZero() {
		return 0, 0
	}

	dt := now.Sub(prev.at).Seconds()
	if dt <= 0 {
		return 0, 0
	}

	deltaRead := read - prev.bytesRead
	deltaWritten := written - prev.bytesWritten
	if deltaRead < 0 {
		deltaRead = 0
	}
	if deltaWritten < 0 {
		deltaWritten = 0
	}
	return float64(deltaRead) / dt, float64(deltaWritten) / dt
}

func (e *Engine) forgetSpeed(key *torrent.Torrent) {
	e.speedMu.Lock()
	delete(e.speeds, key)
	e.speedMu.Unlock()
}
