package ports

import "io"

// EncoderProcess is one running encode whose result is consumed as a
// byte stream. Stop is safe to call any number of times and from any
// goroutine; the first call kills the encoder and releases its pipes.
type EncoderProcess interface {
	Output() io.Reader
	Stop()
	Done() <-chan struct{}
	// Err reports the exit error once Done is closed; nil means the
	// encoder finished on its own.
	Err() error
}
