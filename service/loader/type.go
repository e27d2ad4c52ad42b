package loader

import "context"

const (
	CameraLibraryName  = "camera"
	DrawingLibraryName = "drawing"
	PoseLibraryName    = "pose"
)

// Library is an external capability the pipeline depends on. Present reports
// whether it is already available; Load makes it available.
type Library struct {
	Name    string
	Present func() bool
	Load    func(ctx context.Context) error
}

// Capabilities is the readiness handle handed to the pipeline once loading
// is done. It is computed once and never re-probed.
type Capabilities struct {
	Camera  bool
	Drawing bool
	Pose    bool
}

func (c Capabilities) Ready() bool {
	return c.Camera && c.Drawing && c.Pose
}

type IService interface {
	Ensure(ctx context.Context, lib Library) error
	EnsureAll(ctx context.Context, libs ...Library) (Capabilities, error)
	Loaded(name string) bool
}
