package ports

import "context"

// TransferEngine opens magnet downloads. Implementations own the network
// client; handles stay valid until dropped or the engine closes.
type TransferEngine interface {
	// Open attaches a magnet download whose payload lands under saveDir.
	// It returns as soon as the transfer is registered; metadata may not
	// be available yet.
	Open(ctx context.Context, magnetURI, saveDir string) (TransferHandle, error)
	Close() error
}

// TransferHandle is one live magnet download.
type TransferHandle interface {
	// Status never blocks. Before metadata arrives it reports
	// InfoReady=false and zero totals.
	Status() TransferStatus
	// Drop detaches the transfer from the engine so no further network
	// activity happens for it. Payload files on disk are untouched.
	Drop()
}

// TransferStatus is a non-blocking snapshot of a transfer.
type TransferStatus struct {
	Name           string
	InfoReady      bool
	TotalBytes     int64
	CompletedBytes int64
	DownloadRate   float64 // bytes per second
	UploadRate     float64 // bytes per second
	Complete       bool
}
