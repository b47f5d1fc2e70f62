package execution

import (
	"bufio"
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// pkexec reports a dismissed auth dialog with 126 and an authorization
// failure with 127. Both mean the user side of elevation said no.
const (
	pkexecDismissed  = 126
	pkexecAuthFailed = 127
)

// Session is one running or completed child process. It is created by
// the engine and owns the process exclusively; cancellation goes
// through Cancel, never through raw signals from callers.
type Session struct {
	argv     []string
	elevated bool
	grace    time.Duration

	cmd     *exec.Cmd
	lines   chan string
	done    chan struct{}
	release func()

	cancelled atomic.Bool

	mu       sync.Mutex
	captured []string
	status   types.SessionStatus
	err      error
}

func newSession(ctx context.Context, argv []string, elevated bool, grace time.Duration, release func()) (*Session, error) {
	s := &Session{
		argv:     argv,
		elevated: elevated,
		grace:    grace,
		lines:    make(chan string, 64),
		done:     make(chan struct{}),
		release:  release,
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	// Own process group, so cancellation can signal the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Merge stdout and stderr through one pipe: lines arrive in the
	// order the kernel delivers them, which is the best available
	// approximation of writer order across two independent streams.
	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot create output pipe")
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		// Bare names fail lookup with ErrNotFound; absolute paths that
		// vanished since the gate check fail fork/exec with ErrNotExist.
		if stderrors.Is(err, exec.ErrNotFound) || stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, errors.ErrToolMissing, "%s disappeared before execution", argv[0])
		}
		return nil, errors.Wrapf(err, errors.ErrCrashed, "failed to start %s", argv[0])
	}
	// The child holds its own copy of the write end.
	w.Close()

	s.cmd = cmd

	go s.pump(r)
	go s.watchContext(ctx)
	return s, nil
}

// Lines returns the stream of output lines. The channel closes after
// the last line, before the terminal status becomes available.
func (s *Session) Lines() <-chan string {
	return s.lines
}

// Wait blocks until the process has ended and returns the complete
// result. Unconsumed output is drained, so callers that do not
// subscribe to Lines still terminate; captured lines are complete
// either way. Do not call Wait concurrently with a Lines consumer.
func (s *Session) Wait() types.SessionResult {
	for range s.lines {
	}
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.SessionResult{Status: s.status, Lines: s.captured}
}

// Err returns the terminal error mapped onto the error taxonomy, or
// nil for exit code 0. Valid after Wait returns.
func (s *Session) Err() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel requests termination: SIGTERM to the process group, escalated
// to SIGKILL after the grace period. Output produced so far is
// preserved. Cancel is safe to call more than once.
func (s *Session) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}

	pgid := s.cmd.Process.Pid
	logger := logging.GetLogger("execution")
	logger.Info().
		Str("command", s.argv[0]).
		Dur("grace", s.grace).
		Msg("Cancelling session")

	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	go func() {
		select {
		case <-s.done:
		case <-time.After(s.grace):
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
		}
	}()
}

// pump streams merged output to the subscriber and records it, then
// reaps the process and publishes the terminal status.
func (s *Session) pump(r *os.File) {
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		s.mu.Lock()
		s.captured = append(s.captured, line)
		s.mu.Unlock()
		s.lines <- line
	}
	close(s.lines)

	waitErr := s.cmd.Wait()

	s.mu.Lock()
	s.status, s.err = s.finalStatus(waitErr)
	s.mu.Unlock()

	close(s.done)
	s.release()
}

// finalStatus maps the process outcome onto the status and error
// taxonomy. Cancellation wins over whatever the signal produced.
func (s *Session) finalStatus(waitErr error) (types.SessionStatus, error) {
	if s.cancelled.Load() {
		return types.CancelledStatus(), errors.New(errors.ErrCancelled, "operation cancelled")
	}

	if waitErr == nil {
		return types.ExitStatus(0), nil
	}

	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return types.CrashedStatus(), errors.Wrap(waitErr, errors.ErrCrashed, "process failed")
	}

	code := exitErr.ExitCode()
	if code < 0 {
		// Terminated by a signal we did not send.
		return types.CrashedStatus(), errors.Wrapf(waitErr, errors.ErrCrashed, "%s terminated abnormally", s.argv[0])
	}

	if s.elevated && (code == pkexecDismissed || code == pkexecAuthFailed) {
		return types.ExitStatus(code), errors.Newf(errors.ErrElevationDenied,
			"authorization was denied or dismissed (helper exit %d)", code)
	}

	return types.ExitStatus(code), errors.Newf(errors.ErrProcessExitNonZero,
		"%s exited with code %d", s.argv[0], code).WithDetail("exit_code", code)
}

// watchContext translates context cancellation into session
// cancellation.
func (s *Session) watchContext(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.Cancel()
	case <-s.done:
	}
}
