package control

import (
	"encoding/json"

	"github.com/khaledhikmat/pose-go/model"
	"golang.org/x/xerrors"
)

type Kind string

const (
	UpdateConfig    Kind = "update_config"
	ApplyTestConfig Kind = "test_config"
	Resize          Kind = "resize"
	RetryCamera     Kind = "retry_camera"
)

// Command is a request to change pipeline state. Commands are applied by
// the agent between frames, never while a frame is being rendered.
type Command struct {
	Kind     Kind            `json:"command"`
	Config   json.RawMessage `json:"config,omitempty"`
	Viewport model.Viewport  `json:"viewport"`
}

func (c Command) Validate() error {
	switch c.Kind {
	case UpdateConfig:
		if len(c.Config) == 0 {
			return xerrors.New("update_config requires a config document")
		}
	case Resize:
		if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
			return xerrors.Errorf("resize requires a positive viewport, got %dx%d", c.Viewport.Width, c.Viewport.Height)
		}
	case ApplyTestConfig, RetryCamera:
	default:
		return xerrors.Errorf("unknown command %q", c.Kind)
	}
	return nil
}

type IService interface {
	Submit(cmd Command) error
	Commands() <-chan Command
}
