package pipeline

import (
	"context"
	"fmt"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/loader"
	"gocv.io/x/gocv"
)

func openCVLinked() bool {
	return gocv.Version() != ""
}

// CameraLibrary is present when OpenCV capture is linked in. The synthetic
// framer needs nothing.
func CameraLibrary(camera model.Camera) loader.Library {
	return loader.Library{
		Name: loader.CameraLibraryName,
		Present: func() bool {
			return camera.FramerType == SyntheticFramerType || openCVLinked()
		},
		Load: func(context.Context) error {
			return fmt.Errorf("opencv video capture is not linked into this binary")
		},
	}
}

// DrawingLibrary is present when OpenCV drawing primitives are linked in.
func DrawingLibrary() loader.Library {
	return loader.Library{
		Name:    loader.DrawingLibraryName,
		Present: openCVLinked,
		Load: func(context.Context) error {
			return fmt.Errorf("opencv drawing is not linked into this binary")
		},
	}
}
