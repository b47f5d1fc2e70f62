// Package execution runs built commands as child processes. The engine
// is the sole owner of process lifecycle: callers get session handles,
// never raw process control. Output lines stream to the caller in
// writer order (stdout and stderr merged by arrival), and the terminal
// status is delivered exactly once, after the last line.
package execution

import (
	"context"
	"sync"
	"time"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// The device lock slot used when no device id is known: there is one
// USB target in that case, so all anonymous sessions contend for it.
const sharedTargetSlot = "usb"

// Options configures an Engine.
type Options struct {
	// ElevationHelper is the absolute path of the privilege-escalation
	// helper (pkexec). Commands with RequiresElevation are wrapped
	// through it. Empty disables wrapping (tests, root sessions).
	ElevationHelper string

	// GracePeriod is how long a cancelled child gets between SIGTERM
	// and SIGKILL.
	GracePeriod time.Duration
}

// Engine starts and supervises execution sessions, enforcing the
// per-device-target mutual exclusion invariant.
type Engine struct {
	helper string
	grace  time.Duration

	mu   sync.Mutex
	busy map[string]bool
}

// New creates an Engine.
func New(opts Options) *Engine {
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Engine{
		helper: opts.ElevationHelper,
		grace:  grace,
		busy:   make(map[string]bool),
	}
}

// Start launches the command as a child process and returns a session
// handle. deviceID keys the mutual-exclusion lock; an empty id uses
// the shared current-USB-target slot. The lock is held for the full
// lifetime of the session. A busy target yields DEVICE_BUSY without
// starting anything.
func (e *Engine) Start(ctx context.Context, spec types.CommandSpec, deviceID string) (*Session, error) {
	if len(spec.Argv) == 0 {
		return nil, errors.New(errors.ErrInternal, "empty command spec")
	}

	key := deviceID
	if key == "" {
		key = sharedTargetSlot
	}

	if !e.acquire(key) {
		return nil, errors.Newf(errors.ErrDeviceBusy, "another operation is already running on target %q", key)
	}

	argv := spec.Argv
	elevated := false
	if spec.RequiresElevation && e.helper != "" {
		argv = append([]string{e.helper}, argv...)
		elevated = true
	}

	logging.LogCommand(argv[0], argv[1:])

	session, err := newSession(ctx, argv, elevated, e.grace, func() { e.release(key) })
	if err != nil {
		e.release(key)
		return nil, err
	}
	return session, nil
}

func (e *Engine) acquire(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy[key] {
		return false
	}
	e.busy[key] = true
	return true
}

func (e *Engine) release(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.busy, key)
}
