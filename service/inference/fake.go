package inference

import (
	"context"
	"math"

	"github.com/khaledhikmat/pose-go/model"
	"gocv.io/x/gocv"
)

// standingPose is a front-facing figure in normalized coordinates.
var standingPose = [model.LandmarkCount][2]float64{
	{0.50, 0.15},
	{0.48, 0.13}, {0.47, 0.13}, {0.46, 0.13},
	{0.52, 0.13}, {0.53, 0.13}, {0.54, 0.13},
	{0.44, 0.14}, {0.56, 0.14},
	{0.48, 0.18}, {0.52, 0.18},
	{0.40, 0.28}, {0.60, 0.28},
	{0.36, 0.40}, {0.64, 0.40},
	{0.34, 0.52}, {0.66, 0.52},
	{0.33, 0.55}, {0.67, 0.55},
	{0.34, 0.56}, {0.66, 0.56},
	{0.35, 0.54}, {0.65, 0.54},
	{0.44, 0.55}, {0.56, 0.55},
	{0.44, 0.72}, {0.56, 0.72},
	{0.44, 0.88}, {0.56, 0.88},
	{0.43, 0.91}, {0.57, 0.91},
	{0.46, 0.93}, {0.54, 0.93},
}

type fakeService struct {
	frames int
}

// NewFake returns an estimator that always finds the same figure, swaying
// slightly from frame to frame.
func NewFake() IService {
	return &fakeService{}
}

func (svc *fakeService) Estimate(_ context.Context, _ gocv.Mat) ([]model.Landmark, error) {
	svc.frames++
	sway := 0.02 * math.Sin(float64(svc.frames)/15.0)

	landmarks := make([]model.Landmark, model.LandmarkCount)
	for i, p := range standingPose {
		landmarks[i] = model.Landmark{
			X:          p[0] + sway,
			Y:          p[1],
			Visibility: 0.99,
		}
	}
	return landmarks, nil
}

func (svc *fakeService) Close() error {
	return nil
}
