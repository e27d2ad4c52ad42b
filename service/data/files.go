package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/config"
)

type filesDBService struct {
	CfgSvc config.IService
	mu     sync.Mutex
}

// NewFilesDB keeps errors and stats as JSON arrays, one file per kind, in
// the input folder.
func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

type errorRecord struct {
	Timestamp  int64                  `json:"timestamp"`
	Processor  string                 `json:"processor"`
	Inner      string                 `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (svc *filesDBService) NewError(err interface{}) error {
	record := errorRecord{
		Timestamp:  time.Now().Unix(),
		Processor:  "N/A",
		StackTrace: "N/A",
	}

	switch e := err.(type) {
	case model.CustomError:
		record.Processor = e.Processor
		record.Message = e.Message
		record.StackTrace = e.StackTrace
		record.Misc = e.Misc
		if e.Inner != nil {
			record.Inner = e.Inner.Error()
		}
	case error:
		record.Inner = e.Error()
		record.Message = e.Error()
	default:
		record.Message = fmt.Sprintf("%v", e)
	}

	return svc.append("errors", record)
}

func (svc *filesDBService) NewAgentStats(stats model.AgentStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.append("agent-stats", stats)
}

func (svc *filesDBService) NewFramerStats(stats model.FramerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.append("framer-stats", stats)
}

func (svc *filesDBService) NewRendererStats(stats model.RendererStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.append("renderer-stats", stats)
}

func (svc *filesDBService) NewBridgeStats(stats model.BridgeStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.append("bridge-stats", stats)
}

func (svc *filesDBService) append(name string, entity interface{}) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return appendEntity(svc.path(name), entity)
}

func (svc *filesDBService) path(name string) string {
	return filepath.Join(svc.CfgSvc.GetInputFolder(), name+".json")
}

func appendEntity[T any](path string, entity T) error {
	entities, err := retrieveEntities[T](path)
	if err != nil {
		return err
	}
	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// retrieveEntities returns an empty slice when the file does not exist yet.
func retrieveEntities[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}

	entities := []T{}
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("corrupt %s: %w", filepath.Base(path), err)
	}
	return entities, nil
}
