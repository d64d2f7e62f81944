package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Process wraps one running ffmpeg invocation whose product is consumed
// from stdout. Output is routed through an io.Pipe so the exit watcher can
// call Wait without racing reads: the pipe is only closed after ffmpeg's
// stdout has been drained into it.
type Process struct {
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	out       *io.PipeReader
	stderrBuf bytes.Buffer
	done      chan struct{}
	err       error
	stopOnce  sync.Once
}

func newProcess(ctx context.Context, binary string, args []string) *Process {
	ctx2, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx2, binary, args...)
	return &Process{
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (p *Process) start() error {
	pr, pw := io.Pipe()
	p.out = pr
	p.cmd.Stdout = pw
	p.cmd.Stderr = &p.stderrBuf

	if err := p.cmd.Start(); err != nil {
		p.cancel()
		pw.Close()
		pr.Close()
		return err
	}

	go func() {
		err := p.cmd.Wait()
		p.err = err
		pw.CloseWithError(err)
		close(p.done)
	}()
	return nil
}

// Output is the encoded byte stream. It ends with io.EOF on a clean exit
// and with the process error otherwise.
func (p *Process) Output() io.Reader {
	return p.out
}

// Stop kills the encoder and releases its output pipe. Safe to call any
// number of times and from any goroutine; only the first call acts.
func (p *Process) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.out.Close()
	})
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err reports the exit error after Done is closed; nil while running or
// after a clean exit.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Stderr returns the accumulated stderr output.
func (p *Process) Stderr() string {
	return strings.TrimSpace(p.stderrBuf.String())
}
