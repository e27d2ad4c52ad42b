package control

import (
	"log/slog"

	"github.com/khaledhikmat/pose-go/service/lgr"
	"golang.org/x/xerrors"
)

type queueService struct {
	commands chan Command
}

func NewQueue(size int) IService {
	if size <= 0 {
		size = 1
	}
	return &queueService{
		commands: make(chan Command, size),
	}
}

// Submit never blocks. A full queue rejects the command.
func (svc *queueService) Submit(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	select {
	case svc.commands <- cmd:
		lgr.Logger.Debug("command queued", slog.String("command", string(cmd.Kind)))
		return nil
	default:
		lgr.Logger.Warn("command queue full, dropping command", slog.String("command", string(cmd.Kind)))
		return xerrors.Errorf("command queue full, dropped %s", cmd.Kind)
	}
}

func (svc *queueService) Commands() <-chan Command {
	return svc.commands
}
