package orchestrator

import (
	"context"

	"github.com/r0man1an/LibreFlash/pkg/execution"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// WrapEngine adapts the concrete execution engine to the Engine
// interface consumed here.
func WrapEngine(e *execution.Engine) Engine {
	return engineAdapter{e}
}

type engineAdapter struct {
	engine *execution.Engine
}

func (a engineAdapter) Start(ctx context.Context, spec types.CommandSpec, deviceID string) (Session, error) {
	session, err := a.engine.Start(ctx, spec, deviceID)
	if err != nil {
		return nil, err
	}
	return session, nil
}
