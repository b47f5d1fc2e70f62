// Package orchestrator owns the per-operation lifecycle. It is the
// sole caller of the safety gate, the command builder and the
// execution engine; the presentation layer interacts with operations
// only through Submit, Subscribe and Cancel.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/r0man1an/LibreFlash/pkg/classify"
	"github.com/r0man1an/LibreFlash/pkg/command"
	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// Gate validates an operation before anything touches hardware.
type Gate interface {
	Check(op types.Operation, classification types.ImageClassification, profile *types.DeviceProfile) error
}

// Locator resolves tool binaries and re-checks them after
// binary-not-found class failures.
type Locator interface {
	Locate(tool types.Tool) (string, error)
	Invalidate(tool types.Tool)
}

// Registry looks up cataloged devices. A NotFound result is not an
// error for flashing: uncataloged devices flash on image-kind rules.
type Registry interface {
	Lookup(codename string) (types.DeviceProfile, error)
}

// Session is the engine-owned handle of one child process.
type Session interface {
	Lines() <-chan string
	Wait() types.SessionResult
	Err() error
	Cancel()
}

// Engine starts execution sessions.
type Engine interface {
	Start(ctx context.Context, spec types.CommandSpec, deviceID string) (Session, error)
}

// Plan is an ordered list of sub-operations executed fail-fast: a step
// runs only if every step before it succeeded.
type Plan struct {
	ID    string
	Steps []types.Operation
}

// NewPlan builds a plan from sub-operations.
func NewPlan(steps ...types.Operation) Plan {
	return Plan{ID: uuid.NewString(), Steps: steps}
}

// FlashRecoveryPlan flashes a recovery image and, when bootAfter is
// set, reboots the device into the freshly flashed recovery.
func FlashRecoveryPlan(op types.Operation, bootAfter bool) Plan {
	steps := []types.Operation{op}
	if bootAfter && op.Tool == types.ToolFastboot {
		reboot := types.NewOperation(types.Reboot, types.ToolFastboot)
		reboot.DeviceID = op.DeviceID
		reboot.RebootTarget = types.RebootRecovery
		steps = append(steps, reboot)
	}
	return Plan{ID: uuid.NewString(), Steps: steps}
}

// Orchestrator drives operations through the lifecycle state machine:
// Created → Validating → Building → Executing → terminal.
type Orchestrator struct {
	gate     Gate
	locator  Locator
	engine   Engine
	registry Registry // may be nil

	// classifyFn is the classification seam; production uses
	// classify.Classify.
	classifyFn func(path string) (types.ImageClassification, error)

	mu   sync.Mutex
	runs map[string]*run
}

// run tracks one submitted plan.
type run struct {
	plan   Plan
	events chan types.Event
	cancel context.CancelFunc

	mu      sync.Mutex
	state   types.OperationState
	err     error
	session Session
}

// New creates an Orchestrator. registry may be nil when no catalog is
// available.
func New(g Gate, l Locator, e Engine, r Registry) *Orchestrator {
	return &Orchestrator{
		gate:       g,
		locator:    l,
		engine:     e,
		registry:   r,
		classifyFn: classify.Classify,
		runs:       make(map[string]*run),
	}
}

// Submit accepts a plan and starts executing it on its own goroutine.
// It returns the plan id for Subscribe and Cancel.
func (o *Orchestrator) Submit(ctx context.Context, plan Plan) (string, error) {
	if len(plan.Steps) == 0 {
		return "", errors.New(errors.ErrInternal, "plan has no steps")
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		plan:   plan,
		events: make(chan types.Event, 256),
		cancel: cancel,
		state:  types.StateCreated,
	}

	o.mu.Lock()
	if _, exists := o.runs[plan.ID]; exists {
		o.mu.Unlock()
		cancel()
		return "", errors.Newf(errors.ErrInternal, "plan %s already submitted", plan.ID)
	}
	o.runs[plan.ID] = r
	o.mu.Unlock()

	go o.execute(runCtx, r)
	return plan.ID, nil
}

// Subscribe returns the event stream for a submitted plan. The stream
// is finite: the terminal state change is the last event, after which
// the channel closes.
func (o *Orchestrator) Subscribe(id string) (<-chan types.Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.runs[id]
	if !ok {
		return nil, errors.Newf(errors.ErrNotFound, "no operation with id %s", id)
	}
	return r.events, nil
}

// Cancel requests cancellation of a running plan. Steps that have not
// started will not start; the active session, if any, is cancelled
// through the engine.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	r, ok := o.runs[id]
	o.mu.Unlock()
	if !ok {
		return errors.Newf(errors.ErrNotFound, "no operation with id %s", id)
	}

	r.cancel()
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session != nil {
		session.Cancel()
	}
	return nil
}

// Result reports the final state and error of a plan. The error is nil
// until the plan reaches a terminal state.
func (o *Orchestrator) Result(id string) (types.OperationState, error) {
	o.mu.Lock()
	r, ok := o.runs[id]
	o.mu.Unlock()
	if !ok {
		return types.StateCreated, errors.Newf(errors.ErrNotFound, "no operation with id %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.err
}

// execute drives every step of the plan through the state machine,
// fail-fast, and emits the operation-level terminal event last.
func (o *Orchestrator) execute(ctx context.Context, r *run) {
	logger := logging.GetLogger("orchestrator")

	var failure error
	terminal := types.StateSucceeded

	for i, op := range r.plan.Steps {
		if ctx.Err() != nil {
			terminal, failure = types.StateCancelled, errors.New(errors.ErrCancelled, "operation cancelled")
			break
		}

		// Every step passes the full lifecycle from the top; the
		// previous step left the run in Executing.
		r.mu.Lock()
		r.state = types.StateCreated
		r.mu.Unlock()

		state, err := o.runStep(ctx, r, i, op)
		if state != types.StateSucceeded {
			terminal, failure = state, err
			logger.Info().
				Str("id", r.plan.ID).
				Int("step", i).
				Str("kind", op.Kind.String()).
				Err(err).
				Msg("Plan aborted")
			break
		}
	}

	r.mu.Lock()
	r.err = failure
	r.session = nil
	r.mu.Unlock()
	o.setState(r, terminal)

	r.events <- types.Event{
		OperationID: r.plan.ID,
		Type:        types.EventStateChange,
		Time:        time.Now(),
		State:       terminal,
		Err:         failure,
	}
	close(r.events)
}

// runStep passes one sub-operation through Validating → Building →
// Executing and returns its terminal state.
func (o *Orchestrator) runStep(ctx context.Context, r *run, step int, op types.Operation) (types.OperationState, error) {
	o.emitState(r, step, types.StateValidating, nil)

	var classification types.ImageClassification
	if op.Kind.RequiresImage() {
		var err error
		classification, err = o.classifyFn(op.ImagePath)
		if err != nil {
			return types.StateFailed, err
		}
	}

	profile, err := o.lookupProfile(op.DeviceID)
	if err != nil {
		return types.StateFailed, err
	}

	if err := o.gate.Check(op, classification, profile); err != nil {
		return types.StateFailed, err
	}

	o.emitState(r, step, types.StateBuilding, nil)

	toolPath, err := o.locator.Locate(op.Tool)
	if err != nil {
		return types.StateFailed, err
	}

	spec, err := command.Build(op, toolPath)
	if err != nil {
		return types.StateFailed, err
	}

	o.emitState(r, step, types.StateExecuting, nil)

	session, err := o.engine.Start(ctx, spec, op.DeviceID)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrToolMissing) {
			// The binary vanished since the gate check; drop the
			// cached path so the next attempt re-resolves it.
			o.locator.Invalidate(op.Tool)
		}
		return types.StateFailed, err
	}

	r.mu.Lock()
	r.session = session
	r.mu.Unlock()

	for line := range session.Lines() {
		r.events <- types.Event{
			OperationID: r.plan.ID,
			Type:        types.EventOutputLine,
			Time:        time.Now(),
			Line:        line,
			Step:        step,
		}
	}

	session.Wait()
	sessionErr := session.Err()

	r.mu.Lock()
	r.session = nil
	r.mu.Unlock()

	switch {
	case sessionErr == nil:
		return types.StateSucceeded, nil
	case errors.IsErrorCode(sessionErr, errors.ErrCancelled):
		if op.Kind.IsFlash() {
			// Interrupting a write leaves the device in an unknown
			// state; never report it as a clean failure.
			return types.StateCancelled, errors.Wrapf(sessionErr, errors.ErrDeviceStateUndefined,
				"%s was cancelled mid-write; device state is undefined", op.Kind)
		}
		return types.StateCancelled, sessionErr
	default:
		return types.StateFailed, sessionErr
	}
}

// lookupProfile resolves the device profile when the device id is
// known and cataloged. Unknown and uncataloged devices yield nil: the
// catalog never gates flashing eligibility.
func (o *Orchestrator) lookupProfile(deviceID string) (*types.DeviceProfile, error) {
	if deviceID == "" || o.registry == nil {
		return nil, nil
	}
	profile, err := o.registry.Lookup(deviceID)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrDeviceNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// setState advances the run through the lifecycle machine. A skipped
// transition is a bug in the caller; it is logged and applied anyway so
// the run still terminates.
func (o *Orchestrator) setState(r *run, next types.OperationState) {
	r.mu.Lock()
	if !r.state.CanTransitionTo(next) {
		logger := logging.GetLogger("orchestrator")
		logger.Error().
			Str("from", r.state.String()).
			Str("to", next.String()).
			Msg("Lifecycle transition out of order")
	}
	r.state = next
	r.mu.Unlock()
}

func (o *Orchestrator) emitState(r *run, step int, state types.OperationState, err error) {
	o.setState(r, state)

	r.events <- types.Event{
		OperationID: r.plan.ID,
		Type:        types.EventStateChange,
		Time:        time.Now(),
		State:       state,
		Err:         err,
		Step:        step,
	}
}
