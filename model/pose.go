package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// LandmarkCount is the number of landmarks returned by the pose estimator.
const LandmarkCount = 33

type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// LandmarkID is the body-part identity of a landmark. Configuration overrides
// are keyed by identity, not by position in the estimator output.
type LandmarkID int

const (
	Nose LandmarkID = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
)

var landmarkNames = [LandmarkCount]string{
	"nose",
	"left_eye_inner",
	"left_eye",
	"left_eye_outer",
	"right_eye_inner",
	"right_eye",
	"right_eye_outer",
	"left_ear",
	"right_ear",
	"mouth_left",
	"mouth_right",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_pinky",
	"right_pinky",
	"left_index",
	"right_index",
	"left_thumb",
	"right_thumb",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
	"left_heel",
	"right_heel",
	"left_foot_index",
	"right_foot_index",
}

// landmarkIDs maps an estimator output index to its identity.
// It is the identity function today but is kept as its own table.
var landmarkIDs = [LandmarkCount]LandmarkID{
	Nose, LeftEyeInner, LeftEye, LeftEyeOuter,
	RightEyeInner, RightEye, RightEyeOuter,
	LeftEar, RightEar, MouthLeft, MouthRight,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow,
	LeftWrist, RightWrist, LeftPinky, RightPinky,
	LeftIndex, RightIndex, LeftThumb, RightThumb,
	LeftHip, RightHip, LeftKnee, RightKnee,
	LeftAnkle, RightAnkle, LeftHeel, RightHeel,
	LeftFootIndex, RightFootIndex,
}

// IdentityOf resolves an estimator index to a landmark identity. Indices
// outside the table resolve to themselves.
func IdentityOf(index int) LandmarkID {
	if index >= 0 && index < LandmarkCount {
		return landmarkIDs[index]
	}
	return LandmarkID(index)
}

func (id LandmarkID) Valid() bool {
	return id >= 0 && int(id) < LandmarkCount
}

func (id LandmarkID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("landmark(%d)", int(id))
	}
	return landmarkNames[id]
}

// Connection is a skeleton edge between two estimator indices.
type Connection [2]int

// PoseConnections are the skeleton edges drawn between landmarks.
var PoseConnections = []Connection{
	{8, 5}, {5, 0}, {0, 2}, {2, 7},
	{10, 9},
	{20, 18}, {20, 16}, {18, 16}, {16, 22}, {16, 14}, {14, 12},
	{12, 11},
	{11, 13}, {13, 15}, {15, 17}, {15, 19}, {15, 21}, {19, 17},
	{12, 24}, {11, 23}, {24, 23},
	{24, 26}, {23, 25}, {26, 28}, {25, 27},
	{28, 32}, {28, 30}, {32, 30},
	{27, 31}, {27, 29}, {29, 31},
}

type RenderConfig struct {
	IsFullScreen         bool                   `json:"isFullScreen"`
	IsBackCamera         bool                   `json:"isBackCamera"`
	FlipHorizontal       bool                   `json:"flipHorizontal"`
	EnableSkeleton       bool                   `json:"enableSkeleton"`
	EnableKeyPoints      bool                   `json:"enableKeyPoints"`
	ScoreThreshold       float64                `json:"scoreThreshold"`
	Color                string                 `json:"color"`
	DefaultLandmarkSize  float64                `json:"defaultLandmarkSize"`
	CustomLandmarkSizes  map[LandmarkID]float64 `json:"customLandmarkSizes"`
	CustomLandmarkColors map[LandmarkID]string  `json:"customLandmarkColors"`
}

func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		IsFullScreen:         false,
		IsBackCamera:         false,
		FlipHorizontal:       true,
		EnableSkeleton:       true,
		EnableKeyPoints:      true,
		ScoreThreshold:       0.5,
		Color:                "255, 255, 255",
		DefaultLandmarkSize:  1,
		CustomLandmarkSizes:  map[LandmarkID]float64{},
		CustomLandmarkColors: map[LandmarkID]string{},
	}
}

// TestRenderConfig applies the diagnostic overrides used to check that custom
// sizes and colors reach the shoulders, elbows and wrists.
func TestRenderConfig(cfg RenderConfig) RenderConfig {
	cfg = cfg.Clone()
	cfg.CustomLandmarkSizes = map[LandmarkID]float64{
		LeftShoulder: 15,
		LeftElbow:    20,
		LeftWrist:    25,
	}
	cfg.CustomLandmarkColors = map[LandmarkID]string{
		LeftShoulder: "rgb(255, 0, 0)",
		LeftElbow:    "rgb(0, 255, 0)",
		LeftWrist:    "rgb(0, 0, 255)",
	}
	return cfg
}

// Clone returns a copy that shares no maps with the receiver.
func (c RenderConfig) Clone() RenderConfig {
	out := c
	out.CustomLandmarkSizes = make(map[LandmarkID]float64, len(c.CustomLandmarkSizes))
	for k, v := range c.CustomLandmarkSizes {
		out.CustomLandmarkSizes[k] = v
	}
	out.CustomLandmarkColors = make(map[LandmarkID]string, len(c.CustomLandmarkColors))
	for k, v := range c.CustomLandmarkColors {
		out.CustomLandmarkColors[k] = v
	}
	return out
}

// Patch merges a JSON document into a copy of the configuration. Fields
// absent from the document keep their current value; maps present in the
// document replace the current maps.
func (c RenderConfig) Patch(doc []byte) (RenderConfig, error) {
	out := c.Clone()
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(doc, &probe); err != nil {
		return c, fmt.Errorf("invalid config patch: %w", err)
	}
	if _, ok := probe["customLandmarkSizes"]; ok {
		out.CustomLandmarkSizes = nil
	}
	if _, ok := probe["customLandmarkColors"]; ok {
		out.CustomLandmarkColors = nil
	}
	if err := json.Unmarshal(doc, &out); err != nil {
		return c, fmt.Errorf("invalid config patch: %w", err)
	}
	if err := out.Validate(); err != nil {
		return c, err
	}
	return out, nil
}

func (c RenderConfig) Validate() error {
	if math.IsNaN(c.ScoreThreshold) || c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("scoreThreshold must be in [0,1], got %v", c.ScoreThreshold)
	}
	for id := range c.CustomLandmarkSizes {
		if !id.Valid() {
			return fmt.Errorf("customLandmarkSizes: unknown landmark %d", int(id))
		}
	}
	for id := range c.CustomLandmarkColors {
		if !id.Valid() {
			return fmt.Errorf("customLandmarkColors: unknown landmark %d", int(id))
		}
	}
	return nil
}

// LandmarkSize is the marker radius for a landmark identity.
func (c RenderConfig) LandmarkSize(id LandmarkID) float64 {
	if size, ok := c.CustomLandmarkSizes[id]; ok && size > 0 {
		return size
	}
	if c.DefaultLandmarkSize > 0 {
		return c.DefaultLandmarkSize
	}
	return 1
}

// LandmarkColor is the raw color token for a landmark identity.
func (c RenderConfig) LandmarkColor(id LandmarkID) string {
	if color, ok := c.CustomLandmarkColors[id]; ok && color != "" {
		return color
	}
	return c.Color
}

// Envelope is the message delivered to the host bridge. Pose carries the
// JSON-encoded landmark sequence.
type Envelope struct {
	Pose string `json:"pose"`
}

func NewEnvelope(landmarks []Landmark) (Envelope, error) {
	data, err := json.Marshal(landmarks)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Pose: string(data)}, nil
}

// Viewport is the host display size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
