package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/pipeline"
	"github.com/khaledhikmat/pose-go/service/control"
	"github.com/khaledhikmat/pose-go/service/lgr"
)

const (
	maxBodySize     = 1 << 20
	shutdownTimeout = 3 * time.Second
)

// StatusProvider exposes the agent's published state.
type StatusProvider interface {
	Status() pipeline.Status
}

// SnapshotProvider exposes the latest rendered canvas.
type SnapshotProvider interface {
	JPEG() []byte
}

// SetRouter wires the control and read-only endpoints. Every state change
// becomes a command for the agent; nothing here touches pipeline state
// directly. hub may be nil.
func SetRouter(agent StatusProvider, ctrl control.IService, snapshot SnapshotProvider, hub http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	apiRoutes := r.Group("/api")

	apiRoutes.GET("/status", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, agent.Status())
	})

	apiRoutes.GET("/config", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, agent.Status().Config)
	})

	apiRoutes.PUT("/config", func(ctx *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxBodySize))
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Validate against the current configuration.
		if _, err := agent.Status().Config.Patch(body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		submit(ctx, ctrl, control.Command{Kind: control.UpdateConfig, Config: body})
	})

	apiRoutes.POST("/config/test", func(ctx *gin.Context) {
		submit(ctx, ctrl, control.Command{Kind: control.ApplyTestConfig})
	})

	apiRoutes.POST("/viewport", func(ctx *gin.Context) {
		var viewport model.Viewport
		if err := ctx.ShouldBindJSON(&viewport); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		submit(ctx, ctrl, control.Command{Kind: control.Resize, Viewport: viewport})
	})

	apiRoutes.POST("/camera/permission", func(ctx *gin.Context) {
		submit(ctx, ctrl, control.Command{Kind: control.RetryCamera})
	})

	apiRoutes.GET("/snapshot", func(ctx *gin.Context) {
		data := snapshot.JPEG()
		if len(data) == 0 {
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		ctx.Header("Cache-Control", "no-store")
		ctx.Data(http.StatusOK, "image/jpeg", data)
	})

	if hub != nil {
		r.GET("/ws/pose", gin.WrapH(hub))
	}

	return r
}

func submit(ctx *gin.Context, ctrl control.IService, cmd control.Command) {
	if err := cmd.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ctrl.Submit(cmd); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"command": cmd.Kind})
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		lgr.Logger.Debug("api request",
			slog.String("method", ctx.Request.Method),
			slog.String("path", ctx.FullPath()),
			slog.Int("status", ctx.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

// Run serves router on port until the context is cancelled.
func Run(canxCtx context.Context, port int, router http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-canxCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Logger.Warn("api server shutdown", slog.Any("error", err))
		}
	}()

	lgr.Logger.Info("api server listening", slog.Int("port", port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
