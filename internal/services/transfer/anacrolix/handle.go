package anacrolix

import (
	"sync"
	"time"

	"github.com/anacrolix/torrent"

	"mediaserve/internal/domain/ports"
)

// handle is one live transfer bound to the engine's shared client.
type handle struct {
	engine   *Engine
	torrent  *torrent.Torrent
	dropOnce sync.Once
}

func (h *handle) Status() ports.TransferStatus {
	t := h.torrent
	if !torrentInfoReady(t) {
		return ports.TransferStatus{}
	}

	length := t.Length()
	completed := t.BytesCompleted()
	stats := t.Stats()
	download, upload := h.engine.sampleSpeed(t,
		stats.BytesReadUsefulData.Int64(),
		stats.BytesWrittenData.Int64(),
		time.Now().UTC(),
	)

	return ports.TransferStatus{
		Name:           t.Name(),
		InfoReady:      true,
		TotalBytes:     length,
		CompletedBytes: completed,
		DownloadRate:   download,
		UploadRate:     upload,
		Complete:       length > 0 && completed >= length,
	}
}

func (h *handle) Drop() {
	h.dropOnce.Do(func() {
		h.engine.forgetSpeed(h.torrent)
		h.torrent.Drop()
	})
}
