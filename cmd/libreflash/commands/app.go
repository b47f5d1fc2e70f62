package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"github.com/r0man1an/LibreFlash/pkg/config"
	"github.com/r0man1an/LibreFlash/pkg/detect"
	"github.com/r0man1an/LibreFlash/pkg/download"
	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/execution"
	"github.com/r0man1an/LibreFlash/pkg/gate"
	"github.com/r0man1an/LibreFlash/pkg/locate"
	"github.com/r0man1an/LibreFlash/pkg/orchestrator"
	"github.com/r0man1an/LibreFlash/pkg/registry"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// app bundles the wired-up core for the command handlers.
type app struct {
	cfg      *config.Config
	locator  *locate.Locator
	engine   *execution.Engine
	orch     *orchestrator.Orchestrator
	registry *registry.Registry
	detector *detect.Detector
}

// newApp loads configuration and wires the core together.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	opts := []locate.Option{locate.WithSearchDirs(cfg.SearchDirs()...)}
	for _, tool := range types.AllTools() {
		if path := cfg.ToolPath(tool); path != "" {
			opts = append(opts, locate.WithOverride(tool, path))
		}
	}
	locator := locate.New(opts...)

	// Resolve the elevation helper up front when possible; a bare name
	// still works, it just fails later with a clearer TOOL_MISSING.
	helper := cfg.ElevationHelper()
	if helper != "" {
		if path, err := locator.LocateBinary(helper, ""); err == nil {
			helper = path
		}
	}

	engine := execution.New(execution.Options{
		ElevationHelper: helper,
		GracePeriod:     cfg.GracePeriod(),
	})

	reg, err := registry.Load()
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		locator:  locator,
		engine:   engine,
		orch:     orchestrator.New(gate.New(locator), locator, orchestrator.WrapEngine(engine), reg),
		registry: reg,
		detector: detect.New(locator, detect.WrapEngine(engine)),
	}, nil
}

// downloads creates the artifact client from configuration.
func (a *app) downloads() *download.Client {
	return download.New(
		download.WithUserAgent(a.cfg.UserAgent()),
		download.WithEndpoints(a.cfg.NightlyAPI(), a.cfg.MirrorbitsBase(), a.cfg.ArchiveBase()),
	)
}

// runPlan submits a plan and renders its event stream until the
// terminal state. Ctrl-C cancels the plan instead of killing the
// process mid-write.
func runPlan(a *app, plan orchestrator.Plan) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	id, err := a.orch.Submit(ctx, plan)
	if err != nil {
		return err
	}

	events, err := a.orch.Subscribe(id)
	if err != nil {
		return err
	}

	for ev := range events {
		switch ev.Type {
		case types.EventOutputLine:
			pterm.Println(pterm.Gray(ev.Line))
		case types.EventStateChange:
			if ev.State == types.StateExecuting {
				pterm.Info.Println("Running step", ev.Step+1, "of", len(plan.Steps))
			}
		}
	}

	state, resultErr := a.orch.Result(id)
	switch state {
	case types.StateSucceeded:
		pterm.Success.Println("Done")
		return nil
	case types.StateCancelled:
		if errors.IsErrorCode(resultErr, errors.ErrDeviceStateUndefined) {
			pterm.Warning.Println("Cancelled mid-write. The device state is undefined; re-flash before rebooting.")
		} else {
			pterm.Warning.Println("Cancelled")
		}
		return resultErr
	default:
		printError(resultErr)
		return resultErr
	}
}

// printError renders a failure for the user. Internal-consistency
// faults are flagged as bugs rather than usage problems.
func printError(err error) {
	if err == nil {
		return
	}
	if !errors.IsUserFacing(err) {
		pterm.Error.Println("Internal error, please report this:", err.Error())
		return
	}
	pterm.Error.Println(err.Error())
}
