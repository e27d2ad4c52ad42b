package data

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/config"
)

type folderConfig struct {
	config.IService
	folder string
}

func (c folderConfig) GetInputFolder() string {
	return c.folder
}

func newTestStore(t *testing.T) (IService, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "settings")
	return NewFilesDB(folderConfig{IService: config.NewHardCoded(), folder: dir}), dir
}

func TestNewRendererStatsAppends(t *testing.T) {
	svc, dir := newTestStore(t)

	for i := 1; i <= 2; i++ {
		if err := svc.NewRendererStats(model.RendererStats{Name: "renderer", Frames: i}); err != nil {
			t.Fatalf("NewRendererStats failed: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "renderer-stats.json"))
	if err != nil {
		t.Fatal(err)
	}
	var stats []model.RendererStats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 || stats[1].Frames != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats[0].Timestamp == 0 {
		t.Error("timestamp should be set")
	}
}

func TestNewError(t *testing.T) {
	svc, dir := newTestStore(t)

	if err := svc.NewError(model.GenError("agent", errors.New("camera busy"), nil, "error starting camera")); err != nil {
		t.Fatalf("NewError failed: %v", err)
	}
	if err := svc.NewError(errors.New("plain")); err != nil {
		t.Fatalf("NewError failed: %v", err)
	}
	if err := svc.NewError(model.GenError("loader", nil, nil, "no inner error")); err != nil {
		t.Fatalf("NewError with nil inner failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "errors.json"))
	if err != nil {
		t.Fatal(err)
	}
	var records []errorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Processor != "agent" || records[0].Inner != "camera busy" {
		t.Errorf("unexpected custom record %+v", records[0])
	}
	if records[1].Processor != "N/A" || records[1].Message != "plain" {
		t.Errorf("unexpected plain record %+v", records[1])
	}
}

func TestCorruptFile(t *testing.T) {
	svc, dir := newTestStore(t)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bridge-stats.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := svc.NewBridgeStats(model.BridgeStats{Name: "mqtt"}); err == nil {
		t.Fatal("expected an error for a corrupt file")
	}
}
