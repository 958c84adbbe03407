// Package executor runs yt-dlp processes and translates their output into
// the engine's progress event stream.
package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hoistdl/hoist/internal/engine"
)

// emitInterval rate-limits downloading events so a fast transfer does not
// flood the correlator
const emitInterval = 500 * time.Millisecond

// Runner implements engine.Executor on top of the yt-dlp binary. All
// transfers publish into a single shared event channel consumed by one
// correlator for the life of the process.
type Runner struct {
	binary string
	events chan engine.ProgressEvent
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewRunner locates yt-dlp on PATH and prepares the shared event stream
func NewRunner(logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	binary, err := exec.LookPath("yt-dlp")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found on PATH: %w", err)
	}

	return &Runner{
		binary: binary,
		events: make(chan engine.ProgressEvent, 256),
		logger: logger,
		active: make(map[string]context.CancelFunc),
	}, nil
}

// Events returns the shared progress stream. Subscribe once per process.
func (r *Runner) Events() <-chan engine.ProgressEvent {
	return r.events
}

// Start launches a transfer and blocks until the process exits. Every
// started transfer publishes exactly one terminal event before Start
// returns.
func (r *Runner) Start(ctx context.Context, correlationID, url string, snap engine.SettingsSnapshot, network engine.NetworkConfig) error {
	if snap.OutputDir != "" {
		if err := os.MkdirAll(snap.OutputDir, 0o755); err != nil {
			r.emitError(correlationID, err.Error())
			return fmt.Errorf("create output directory %s: %w", snap.OutputDir, err)
		}
		if err := checkDiskSpace(snap.OutputDir, snap.MinFreeSpaceGB); err != nil {
			r.emitError(correlationID, err.Error())
			return err
		}
	}

	procCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.active[correlationID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.active, correlationID)
		r.mu.Unlock()
	}()

	args := buildDownloadArgs(url, snap, network)
	r.logger.Debug("invoking yt-dlp", "url", url, "args", args)

	cmd := exec.CommandContext(procCtx, r.binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.emitError(correlationID, err.Error())
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.emitError(correlationID, err.Error())
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		r.emitError(correlationID, err.Error())
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	// stderr carries the messages worth keeping for classification
	var stderrBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if stderrBuf.Len() < 8192 {
				stderrBuf.WriteString(line + "\n")
			}
			r.logger.Debug("yt-dlp stderr", "line", line)
		}
	}()

	state := &transferState{}
	go func() {
		defer wg.Done()
		r.consumeStdout(correlationID, stdout, state)
	}()

	wg.Wait()
	cmdErr := cmd.Wait()

	if cmdErr != nil {
		if procCtx.Err() != nil {
			r.emitError(correlationID, "cancelled")
			return procCtx.Err()
		}
		msg := strings.TrimSpace(stderrBuf.String())
		if msg == "" {
			msg = cmdErr.Error()
		}
		r.emitError(correlationID, msg)
		return fmt.Errorf("yt-dlp failed: %w: %s", cmdErr, firstLine(msg))
	}

	r.emitFinished(correlationID, state)
	return nil
}

// CancelAll stops every in-flight transfer. New transfers are the
// scheduler's business, this only tears down running processes.
func (r *Runner) CancelAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.active {
		cancel()
	}
	return nil
}

// consumeStdout parses progress lines as they arrive, rate-limiting the
// intermediate events
func (r *Runner) consumeStdout(correlationID string, stdout io.Reader, state *transferState) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitByNewlineOrCR)

	var lastEmit time.Time
	for scanner.Scan() {
		line := scanner.Text()

		ev, ok := parseProgressLine(correlationID, line, state)
		if !ok {
			continue
		}

		// Always deliver fresh playlist ordinals, otherwise rate limit
		if ev.PlaylistIndex == nil && time.Since(lastEmit) < emitInterval {
			continue
		}
		lastEmit = time.Now()
		r.emit(ev)
	}
}

// emit delivers an intermediate progress event without blocking the parse
// loop; when the stream is backed up the update is dropped, a fresher one is
// always behind it
func (r *Runner) emit(ev engine.ProgressEvent) {
	select {
	case r.events <- ev:
	default:
		r.logger.Warn("progress event dropped, stream backed up", "id", ev.ID)
	}
}

// emitTerminal blocks until delivered. Terminal events drive correlation
// cleanup and durable channel state; losing one would leave the job's
// bookkeeping wedged. The worker is already blocked in Start here, so
// waiting for the consumer costs nothing.
func (r *Runner) emitTerminal(ev engine.ProgressEvent) {
	r.events <- ev
}

func (r *Runner) emitError(correlationID, message string) {
	r.emitTerminal(engine.ProgressEvent{
		ID:           correlationID,
		Status:       engine.EventError,
		ErrorMessage: message,
	})
}

func (r *Runner) emitFinished(correlationID string, state *transferState) {
	done := 100.0
	ev := engine.ProgressEvent{
		ID:      correlationID,
		Status:  engine.EventFinished,
		Percent: &done,
	}
	if state.totalBytes > 0 {
		total := state.totalBytes
		ev.FileSize = &total
	}
	ev.Resolution = state.resolution
	ev.FormatExt = state.formatExt
	r.emitTerminal(ev)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
