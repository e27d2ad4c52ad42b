package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/khaledhikmat/pose-go/service/lgr"
	"golang.org/x/xerrors"
)

type sequentialService struct {
	mu     sync.Mutex
	loaded map[string]bool
}

// NewSequential returns a loader that ensures libraries one after the other
// and stops at the first failure.
func NewSequential() IService {
	return &sequentialService{
		loaded: map[string]bool{},
	}
}

func (svc *sequentialService) Ensure(ctx context.Context, lib Library) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.loaded[lib.Name] {
		return nil
	}

	if lib.Present != nil && lib.Present() {
		lgr.Logger.Info("library already loaded", slog.String("library", lib.Name))
		svc.loaded[lib.Name] = true
		return nil
	}

	if lib.Load == nil {
		return xerrors.Errorf("library %s is not available and has no loader", lib.Name)
	}

	lgr.Logger.Info("loading library", slog.String("library", lib.Name))
	if err := lib.Load(ctx); err != nil {
		return fmt.Errorf("failed to load %s: %w", lib.Name, err)
	}

	if lib.Present != nil && !lib.Present() {
		return xerrors.Errorf("library %s loaded but still not available", lib.Name)
	}

	lgr.Logger.Info("library loaded successfully", slog.String("library", lib.Name))
	svc.loaded[lib.Name] = true
	return nil
}

func (svc *sequentialService) EnsureAll(ctx context.Context, libs ...Library) (Capabilities, error) {
	for _, lib := range libs {
		if err := ctx.Err(); err != nil {
			return svc.capabilities(), err
		}
		if err := svc.Ensure(ctx, lib); err != nil {
			return svc.capabilities(), err
		}
	}
	return svc.capabilities(), nil
}

func (svc *sequentialService) Loaded(name string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.loaded[name]
}

func (svc *sequentialService) capabilities() Capabilities {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return Capabilities{
		Camera:  svc.loaded[CameraLibraryName],
		Drawing: svc.loaded[DrawingLibraryName],
		Pose:    svc.loaded[PoseLibraryName],
	}
}
