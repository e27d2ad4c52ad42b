package model

import (
	"fmt"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Camera describes the capture device the agent drives.
type Camera struct {
	Name        string `json:"name"`
	FrontDevice string `json:"frontDevice"` // device id or URL for the user-facing camera
	BackDevice  string `json:"backDevice"`  // device id or URL for the environment-facing camera
	FramerType  string `json:"framerType"`  // "webcam" or "synthetic"
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// FacingMode mirrors the browser notion of which camera is requested.
func (c Camera) FacingMode(isBackCamera bool) string {
	if isBackCamera {
		return "environment"
	}
	return "user"
}

// Device returns the device for the requested facing mode.
func (c Camera) Device(isBackCamera bool) string {
	if isBackCamera && c.BackDevice != "" {
		return c.BackDevice
	}
	return c.FrontDevice
}

type AgentStats struct {
	ID                 string `json:"id"`
	Camera             string `json:"camera"`
	PermissionRequired bool   `json:"permissionRequired"`
	Commands           int    `json:"commands"`
	Uptime             int64  `json:"uptime"`
	Timestamp          int64  `json:"timestamp"`
}

type FramerStats struct {
	Name      string `json:"name"`
	Camera    string `json:"camera"`
	FPS       int    `json:"fps"`
	Frames    int    `json:"frames"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type RendererStats struct {
	Name         string  `json:"name"`
	Camera       string  `json:"camera"`
	Frames       int     `json:"frames"`
	PoseFrames   int     `json:"poseFrames"`
	Keypoints    int     `json:"keypoints"`
	Errors       int     `json:"errors"`
	AvgProcTime  float64 `json:"avgProcTime"`
	AvgInferTime float64 `json:"avgInferTime"`
	Uptime       int64   `json:"uptime"`
	Timestamp    int64   `json:"timestamp"`
}

type BridgeStats struct {
	Name      string `json:"name"`
	Sent      int    `json:"sent"`
	Dropped   int    `json:"dropped"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}
