package data

import "github.com/khaledhikmat/pose-go/model"

type IService interface {
	NewError(err interface{}) error
	NewAgentStats(stats model.AgentStats) error
	NewFramerStats(stats model.FramerStats) error
	NewRendererStats(stats model.RendererStats) error
	NewBridgeStats(stats model.BridgeStats) error
}
