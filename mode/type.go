package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/pipeline"
	"github.com/khaledhikmat/pose-go/service/bridge"
	"github.com/khaledhikmat/pose-go/service/data"
	"github.com/khaledhikmat/pose-go/service/lgr"
	"github.com/khaledhikmat/pose-go/service/loader"
)

// Services is everything main prepares for a mode processor.
type Services struct {
	pipeline.ServicesFactory
	DataSvc      data.IService
	Capabilities loader.Capabilities
	// Hub is mounted at /ws/pose when the websocket bridge is selected.
	Hub *bridge.WebsocketHub
}

type Processor func(canxCtx context.Context, svcs Services) error

func procStats(datasvc data.IService, stats interface{}) {
	var err error
	switch stats := stats.(type) {
	case model.AgentStats:
		err = datasvc.NewAgentStats(stats)
	case model.FramerStats:
		err = datasvc.NewFramerStats(stats)
	case model.RendererStats:
		err = datasvc.NewRendererStats(stats)
	case model.BridgeStats:
		err = datasvc.NewBridgeStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	lgr.Logger.Error("pipeline error", slog.Any("error", err))

	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
