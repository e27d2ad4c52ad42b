package inference

import (
	"context"
	"fmt"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/config"
	"gocv.io/x/gocv"
)

// IService estimates one pose per frame. A nil landmark slice means no pose
// was found.
type IService interface {
	Estimate(ctx context.Context, img gocv.Mat) ([]model.Landmark, error)
	Close() error
}

// New builds the estimator named in params.
func New(params config.PoseParameters) (IService, error) {
	switch params.Estimator {
	case config.FakeEstimatorName:
		return NewFake(), nil
	case config.BlazePoseEstimatorName, "":
		return NewBlazePose(params)
	default:
		return nil, fmt.Errorf("unknown estimator %q", params.Estimator)
	}
}
