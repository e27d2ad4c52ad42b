package inference

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/config"
	"github.com/khaledhikmat/pose-go/service/lgr"
	"github.com/khaledhikmat/pose-go/service/loader"
	"gocv.io/x/gocv"
)

// Each landmark in the model output is x, y, z, visibility, presence. The
// model emits 39 landmarks; only the first 33 are body landmarks.
const (
	valuesPerLandmark = 5
	smoothingFactor   = 0.5
)

type blazePoseService struct {
	params config.PoseParameters
	net    gocv.Net
	prev   []model.Landmark
}

// NewBlazePose loads the landmark model. The net is not thread-safe and must
// be driven from a single goroutine.
func NewBlazePose(params config.PoseParameters) (IService, error) {
	net := gocv.ReadNet(params.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("error reading pose model %s", params.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting target: %w", err)
	}

	lgr.Logger.Info("pose model loaded",
		slog.String("model", params.ModelPath),
		slog.Int("modelComplexity", params.ModelComplexity),
		slog.Bool("smoothLandmarks", params.SmoothLandmarks),
		slog.String("openCV", gocv.OpenCVVersion()),
	)

	return &blazePoseService{
		params: params,
		net:    net,
	}, nil
}

// PoseLibrary is the loader capability for the configured estimator.
func PoseLibrary(params config.PoseParameters) loader.Library {
	if params.Estimator == config.FakeEstimatorName {
		return loader.Library{
			Name:    loader.PoseLibraryName,
			Present: func() bool { return true },
		}
	}
	return loader.FileLibrary(loader.PoseLibraryName, params.ModelPath, params.ModelURL, nil)
}

func (svc *blazePoseService) Estimate(ctx context.Context, img gocv.Mat) ([]model.Landmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if img.Empty() {
		return nil, nil
	}

	size := svc.params.InputSize
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	svc.net.SetInput(blob, "")

	outputs := svc.net.ForwardLayers([]string{svc.params.LandmarksOutput, svc.params.PoseFlagOutput})
	defer func() {
		for _, out := range outputs {
			out.Close()
		}
	}()

	if len(outputs) != 2 {
		return nil, fmt.Errorf("unexpected number of model outputs: %d", len(outputs))
	}

	flags, err := outputs[1].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("error reading pose flag: %w", err)
	}
	if len(flags) == 0 {
		return nil, fmt.Errorf("empty pose flag output")
	}

	// Tracking keeps a pose alive with a lower bar than a fresh detection
	threshold := svc.params.MinDetectionConfidence
	if svc.prev != nil {
		threshold = svc.params.MinTrackingConfidence
	}
	if flags[0] < threshold {
		svc.prev = nil
		return nil, nil
	}

	data, err := outputs[0].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("error reading landmarks: %w", err)
	}

	landmarks, err := decodeLandmarks(data, size)
	if err != nil {
		return nil, err
	}

	if svc.params.SmoothLandmarks {
		landmarks = smoothLandmarks(svc.prev, landmarks, smoothingFactor)
	}
	svc.prev = landmarks

	return landmarks, nil
}

func (svc *blazePoseService) Close() error {
	return svc.net.Close()
}

func decodeLandmarks(data []float32, inputSize int) ([]model.Landmark, error) {
	if len(data) < model.LandmarkCount*valuesPerLandmark {
		return nil, fmt.Errorf("landmark output too short: %d values", len(data))
	}
	if inputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", inputSize)
	}

	scale := float64(inputSize)
	landmarks := make([]model.Landmark, model.LandmarkCount)
	for i := range landmarks {
		row := data[i*valuesPerLandmark : (i+1)*valuesPerLandmark]
		landmarks[i] = model.Landmark{
			X:          float64(row[0]) / scale,
			Y:          float64(row[1]) / scale,
			Z:          float64(row[2]) / scale,
			Visibility: sigmoid(float64(row[3])),
		}
	}
	return landmarks, nil
}

// smoothLandmarks blends positions with the previous frame. Visibility is not
// smoothed.
func smoothLandmarks(prev, cur []model.Landmark, alpha float64) []model.Landmark {
	if len(prev) != len(cur) {
		return cur
	}
	out := make([]model.Landmark, len(cur))
	for i := range cur {
		out[i] = model.Landmark{
			X:          alpha*cur[i].X + (1-alpha)*prev[i].X,
			Y:          alpha*cur[i].Y + (1-alpha)*prev[i].Y,
			Z:          alpha*cur[i].Z + (1-alpha)*prev[i].Z,
			Visibility: cur[i].Visibility,
		}
	}
	return out
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
