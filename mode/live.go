package mode

import (
	"context"

	"github.com/khaledhikmat/pose-go/pipeline"
)

const windowTitle = "pose"

// Live renders into a desktop window as well as the HTTP snapshot.
func Live(canxCtx context.Context, svcs Services) error {
	return run(canxCtx, "live", svcs, []pipeline.Display{
		pipeline.NewWindowDisplay(windowTitle),
	})
}

// Headless renders only for the HTTP snapshot and the bridge.
func Headless(canxCtx context.Context, svcs Services) error {
	return run(canxCtx, "headless", svcs, nil)
}
