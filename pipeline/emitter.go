package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/bridge"
	"github.com/khaledhikmat/pose-go/service/lgr"
)

const reportTimeout = time.Second

// Emitter relays pose envelopes to a bridge on its own goroutine so that a
// slow host never stalls rendering.
type Emitter struct {
	name      string
	svc       bridge.IService
	queue     chan model.Envelope
	done      chan struct{}
	startTime int64

	sent    atomic.Int64
	dropped atomic.Int64
	errors  atomic.Int64
}

// NewEmitter starts the delivery goroutine. It returns nil when there is no
// bridge; a nil Emitter ignores everything.
func NewEmitter(canxCtx context.Context, name string, svc bridge.IService, size int, errorStream chan interface{}, statsStream chan interface{}) *Emitter {
	if svc == nil {
		return nil
	}
	if size <= 0 {
		size = 1
	}

	e := &Emitter{
		name:      name,
		svc:       svc,
		queue:     make(chan model.Envelope, size),
		done:      make(chan struct{}),
		startTime: time.Now().Unix(),
	}

	go e.run(canxCtx, errorStream, statsStream)
	return e
}

// Emit queues the landmarks for delivery and reports whether they were
// accepted. A full queue drops the message.
func (e *Emitter) Emit(landmarks []model.Landmark) bool {
	if e == nil || len(landmarks) == 0 {
		return false
	}

	env, err := model.NewEnvelope(landmarks)
	if err != nil {
		e.errors.Add(1)
		lgr.Logger.Error("failed to encode pose envelope", slog.Any("error", err))
		return false
	}

	select {
	case e.queue <- env:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

func (e *Emitter) Stats() model.BridgeStats {
	if e == nil {
		return model.BridgeStats{}
	}
	return model.BridgeStats{
		Name:    e.name,
		Sent:    int(e.sent.Load()),
		Dropped: int(e.dropped.Load()),
		Errors:  int(e.errors.Load()),
		Uptime:  time.Now().Unix() - e.startTime,
	}
}

// Done is closed once the delivery goroutine has exited and the bridge is
// closed.
func (e *Emitter) Done() <-chan struct{} {
	if e == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return e.done
}

func (e *Emitter) run(canxCtx context.Context, errorStream chan interface{}, statsStream chan interface{}) {
	defer close(e.done)
	defer func() {
		if err := e.svc.Close(); err != nil {
			lgr.Logger.Warn("error closing bridge", slog.String("bridge", e.name), slog.Any("error", err))
		}
		report(statsStream, e.Stats())
	}()

	lgr.Logger.Info("bridge emitter started", slog.String("bridge", e.name))

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info("bridge emitter context cancelled", slog.String("bridge", e.name))
			return

		case env := <-e.queue:
			if err := e.svc.Post(canxCtx, env); err != nil {
				e.errors.Add(1)
				report(errorStream, model.GenError("bridge_emitter",
					err,
					map[string]interface{}{"bridge": e.name},
					"error posting pose"))
				continue
			}
			e.sent.Add(1)
		}
	}
}

// report hands v to a mode processor stream without blocking forever when
// nobody is draining it any more.
func report(stream chan interface{}, v interface{}) {
	if stream == nil {
		return
	}

	timer := time.NewTimer(reportTimeout)
	defer timer.Stop()

	select {
	case stream <- v:
	case <-timer.C:
		lgr.Logger.Warn("report dropped", slog.Any("value", v))
	}
}
