package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/khaledhikmat/pose-go/model"
)

type fakeBridge struct {
	mu      sync.Mutex
	posted  []model.Envelope
	block   chan struct{}
	err     error
	closed  bool
	arrived chan struct{}
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{arrived: make(chan struct{}, 100)}
}

func (b *fakeBridge) Post(ctx context.Context, env model.Envelope) error {
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.mu.Lock()
	b.posted = append(b.posted, env)
	b.mu.Unlock()
	b.arrived <- struct{}{}
	return b.err
}

func (b *fakeBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBridge) Posted() []model.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Envelope(nil), b.posted...)
}

func waitArrival(t *testing.T, b *fakeBridge) {
	t.Helper()
	select {
	case <-b.arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never received the pose")
	}
}

func TestEmitterDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := newFakeBridge()
	stats := make(chan interface{}, 1)
	e := NewEmitter(ctx, "fake", b, 4, nil, stats)

	landmarks := []model.Landmark{{X: 0.25, Y: 0.75, Z: 0.1, Visibility: 0.9}}
	if !e.Emit(landmarks) {
		t.Fatal("Emit rejected a pose")
	}
	waitArrival(t, b)

	posted := b.Posted()
	var got []model.Landmark
	if err := json.Unmarshal([]byte(posted[0].Pose), &got); err != nil {
		t.Fatalf("pose is not a landmark list: %v", err)
	}
	if len(got) != 1 || got[0] != landmarks[0] {
		t.Errorf("got %+v, want %+v", got, landmarks)
	}

	cancel()
	<-e.Done()

	final := (<-stats).(model.BridgeStats)
	if final.Sent != 1 || final.Name != "fake" {
		t.Errorf("stats = %+v", final)
	}
	if !b.closed {
		t.Error("bridge should be closed on shutdown")
	}
}

func TestEmitterNeverBlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newFakeBridge()
	b.block = make(chan struct{})
	e := NewEmitter(ctx, "slow", b, 1, nil, nil)

	pose := []model.Landmark{{X: 0.5, Y: 0.5, Visibility: 1}}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			e.Emit(pose)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow bridge")
	}

	if e.Stats().Dropped == 0 {
		t.Error("expected dropped poses with a full queue")
	}
	close(b.block)
}

func TestEmitterReportsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newFakeBridge()
	b.err = errors.New("host gone")
	errs := make(chan interface{}, 1)
	e := NewEmitter(ctx, "broken", b, 4, errs, nil)

	e.Emit([]model.Landmark{{Visibility: 1}})

	select {
	case err := <-errs:
		if _, ok := err.(model.CustomError); !ok {
			t.Errorf("unexpected error type %T", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error not reported")
	}
}

func TestNilEmitter(t *testing.T) {
	e := NewEmitter(context.Background(), "none", nil, 4, nil, nil)
	if e != nil {
		t.Fatal("no bridge should give a nil emitter")
	}
	if e.Emit([]model.Landmark{{Visibility: 1}}) {
		t.Error("nil emitter should not accept poses")
	}
	if e.Stats() != (model.BridgeStats{}) {
		t.Error("nil emitter should have empty stats")
	}
	<-e.Done()
}

func TestEmitterIgnoresEmptyPose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := NewEmitter(ctx, "fake", newFakeBridge(), 4, nil, nil)
	if e.Emit(nil) {
		t.Error("empty pose should not be emitted")
	}
}
