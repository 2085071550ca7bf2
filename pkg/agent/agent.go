// Package agent manages the subprocess of an arena agent. It owns the three
// standard streams of the process, delivers input, waits for output under a
// deadline, captures diagnostic output, and tears the process down with a
// graceful-then-forced stop.
package agent

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Error kinds reported by a Handle. Callers branch on them with errors.Is.
var (
	ErrSpawn   = errors.New("agent spawn failed")
	ErrWrite   = errors.New("agent write failed")
	ErrRead    = errors.New("agent read failed")
	ErrTimeout = errors.New("agent timed out")
)

const (
	defaultStopGrace  = 100 * time.Millisecond
	defaultWriteWait  = time.Second
	defaultDiagLimit  = 64 * 1024
	stdoutChunkSize   = 4096
	stdoutQueueLength = 64
)

// Option configures a Handle before launch.
type Option func(*Handle)

// WithStopGrace sets how long Stop waits after SIGTERM before killing.
func WithStopGrace(d time.Duration) Option {
	return func(h *Handle) {
		h.stopGrace = d
	}
}

// WithWriteWait bounds how long Send may block on a full input pipe.
func WithWriteWait(d time.Duration) Option {
	return func(h *Handle) {
		h.writeWait = d
	}
}

// WithDiagnosticsLimit caps the diagnostic bytes kept between two calls to
// Diagnostics. Anything beyond the cap is discarded.
func WithDiagnosticsLimit(n int) Option {
	return func(h *Handle) {
		h.diag.limit = n
	}
}

// Handle owns one agent subprocess and its stdin, stdout and stderr.
type Handle struct {
	path      string
	stopGrace time.Duration
	writeWait time.Duration

	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File
	stderr *os.File

	// out carries stdout chunks in arrival order; it is closed once stdout
	// reaches EOF or fails, after readErr is set.
	out     chan []byte
	readErr error
	done    chan struct{}
	exited  chan struct{}

	diag diagBuffer

	mu        sync.Mutex
	stopped   atomic.Bool
	stopOnce  sync.Once
	closeOnce sync.Once
}

// Start launches the executable at path with no arguments. The returned
// Handle must be released with Close.
func Start(path string, opts ...Option) (*Handle, error) {
	h := &Handle{
		path:      path,
		stopGrace: defaultStopGrace,
		writeWait: defaultWriteWait,
		out:       make(chan []byte, stdoutQueueLength),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
		diag:      diagBuffer{limit: defaultDiagLimit},
	}
	for _, o := range opts {
		o(h)
	}

	if err := h.start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, path, err)
	}
	return h, nil
}

// start creates the three pipes and launches the process. The child's ends of
// the pipes are closed in the parent once the process is running.
func (h *Handle) start() error {
	var childEnds []*os.File
	var parentEnds []*os.File
	closeAll := func(fs []*os.File) {
		for _, f := range fs {
			f.Close()
		}
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	childEnds, parentEnds = append(childEnds, inR), append(parentEnds, inW)

	outR, outW, err := os.Pipe()
	if err != nil {
		closeAll(append(childEnds, parentEnds...))
		return fmt.Errorf("stdout pipe: %w", err)
	}
	childEnds, parentEnds = append(childEnds, outW), append(parentEnds, outR)

	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(append(childEnds, parentEnds...))
		return fmt.Errorf("stderr pipe: %w", err)
	}
	childEnds, parentEnds = append(childEnds, errW), append(parentEnds, errR)

	h.cmd = exec.Command(h.path)
	h.cmd.Stdin = inR
	h.cmd.Stdout = outW
	h.cmd.Stderr = errW

	if err := h.cmd.Start(); err != nil {
		closeAll(append(childEnds, parentEnds...))
		return fmt.Errorf("start process: %w", err)
	}
	closeAll(childEnds)

	h.stdin, h.stdout, h.stderr = inW, outR, errR

	go func() {
		h.cmd.Wait()
		close(h.exited)
	}()
	go h.pumpStdout()
	go func() {
		io.Copy(&h.diag, h.stderr)
	}()

	return nil
}

// pumpStdout forwards stdout chunks to out until the stream ends or the
// handle is closed.
func (h *Handle) pumpStdout() {
	defer close(h.out)
	buf := make([]byte, stdoutChunkSize)
	for {
		n, err := h.stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case h.out <- chunk:
			case <-h.done:
				h.readErr = os.ErrClosed
				return
			}
		}
		if err != nil {
			h.readErr = err
			return
		}
	}
}

// Path returns the executable path the agent was started from.
func (h *Handle) Path() string { return h.path }

// PID returns the process id of the agent.
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Send writes data to the agent's stdin.
func (h *Handle) Send(data string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped.Load() {
		return fmt.Errorf("%w: agent stopped", ErrWrite)
	}
	if h.writeWait > 0 {
		h.stdin.SetWriteDeadline(time.Now().Add(h.writeWait))
	}
	if _, err := io.WriteString(h.stdin, data); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// IsAlive reports, without blocking, whether the process is still running
// and has not been stopped.
func (h *Handle) IsAlive() bool {
	if h.stopped.Load() {
		return false
	}
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// Stop asks the process to terminate, waits up to the grace period, kills it
// if it is still running, and reaps its exit status. Stop is idempotent;
// concurrent callers block until the first call has finished.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.stopped.Store(true)
		if h.cmd == nil || h.cmd.Process == nil {
			return
		}
		select {
		case <-h.exited:
			return
		default:
		}

		h.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-h.exited:
		case <-time.After(h.stopGrace):
			h.cmd.Process.Kill()
			<-h.exited
		}
	})
}

// Close closes the three streams and stops the process. It is safe to call
// more than once and on a handle that has already been stopped.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		h.stdin.Close()
		h.mu.Unlock()
		h.stdout.Close()
		h.stderr.Close()
		h.Stop()
	})
	return nil
}

// Diagnostics returns the stderr text captured since the previous call.
func (h *Handle) Diagnostics() string {
	return h.diag.drain()
}

// diagBuffer accumulates stderr output up to limit bytes.
type diagBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (d *diagBuffer) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if room := d.limit - len(d.buf); room > 0 {
		d.buf = append(d.buf, p[:min(room, len(p))]...)
	}
	return len(p), nil
}

func (d *diagBuffer) drain() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := string(d.buf)
	d.buf = d.buf[:0]
	return s
}
