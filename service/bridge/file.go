package bridge

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/natefinch/lumberjack"
)

type fileService struct {
	w io.WriteCloser
}

// NewFile records envelopes as JSON lines in a rotated file.
func NewFile(path string) IService {
	return newFileService(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // MB
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	})
}

func newFileService(w io.WriteCloser) IService {
	return &fileService{w: w}
}

func (svc *fileService) Post(_ context.Context, env model.Envelope) error {
	entry := map[string]interface{}{
		"time": time.Now().Format(time.RFC3339Nano),
		"pose": env.Pose,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = svc.w.Write(append(data, '\n'))
	return err
}

func (svc *fileService) Close() error {
	return svc.w.Close()
}
