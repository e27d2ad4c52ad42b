package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/pipeline"
	"github.com/khaledhikmat/pose-go/service/control"
)

type fakeAgent struct {
	status pipeline.Status
}

func (a fakeAgent) Status() pipeline.Status {
	return a.status
}

type fakeSnapshot struct {
	data []byte
}

func (s fakeSnapshot) JPEG() []byte {
	return s.data
}

func newTestRouter(snapshot []byte) (*gin.Engine, control.IService) {
	gin.SetMode(gin.TestMode)
	ctrl := control.NewQueue(4)
	agent := fakeAgent{status: pipeline.Status{
		ID:      "agent-1",
		Running: true,
		Config:  model.DefaultRenderConfig(),
	}}
	return SetRouter(agent, ctrl, fakeSnapshot{data: snapshot}, nil), ctrl
}

func do(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCommandRoutes(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		status   int
		expected control.Kind
	}{
		{"update config", http.MethodPut, "/api/config", `{"scoreThreshold": 0.7}`, http.StatusAccepted, control.UpdateConfig},
		{"invalid threshold", http.MethodPut, "/api/config", `{"scoreThreshold": 2}`, http.StatusBadRequest, ""},
		{"malformed config", http.MethodPut, "/api/config", `{`, http.StatusBadRequest, ""},
		{"test config", http.MethodPost, "/api/config/test", ``, http.StatusAccepted, control.ApplyTestConfig},
		{"resize", http.MethodPost, "/api/viewport", `{"width": 800, "height": 600}`, http.StatusAccepted, control.Resize},
		{"resize to nothing", http.MethodPost, "/api/viewport", `{"width": 0, "height": 600}`, http.StatusBadRequest, ""},
		{"retry camera", http.MethodPost, "/api/camera/permission", ``, http.StatusAccepted, control.RetryCamera},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ctrl := newTestRouter(nil)

			w := do(r, tt.method, tt.path, []byte(tt.body))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}

			select {
			case cmd := <-ctrl.Commands():
				if cmd.Kind != tt.expected {
					t.Errorf("command = %q, want %q", cmd.Kind, tt.expected)
				}
			default:
				if tt.expected != "" {
					t.Errorf("no command queued, want %q", tt.expected)
				}
			}
		})
	}
}

func TestUpdateConfigForwardsDocument(t *testing.T) {
	r, ctrl := newTestRouter(nil)

	body := `{"customLandmarkSizes": {"15": 25}}`
	if w := do(r, http.MethodPut, "/api/config", []byte(body)); w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}

	cmd := <-ctrl.Commands()
	cfg, err := model.DefaultRenderConfig().Patch(cmd.Config)
	if err != nil {
		t.Fatalf("queued document does not patch: %v", err)
	}
	if cfg.LandmarkSize(model.LeftWrist) != 25 {
		t.Errorf("left wrist size = %v", cfg.LandmarkSize(model.LeftWrist))
	}
}

func TestFullQueue(t *testing.T) {
	r, _ := newTestRouter(nil)

	for i := 0; i < 4; i++ {
		if w := do(r, http.MethodPost, "/api/camera/permission", nil); w.Code != http.StatusAccepted {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	if w := do(r, http.MethodPost, "/api/camera/permission", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("full queue status = %d, want 503", w.Code)
	}
}

func TestStatusAndConfig(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := do(r, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status pipeline.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.ID != "agent-1" || !status.Running {
		t.Errorf("status = %+v", status)
	}

	w = do(r, http.MethodGet, "/api/config", nil)
	var cfg model.RenderConfig
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.ScoreThreshold != 0.5 || cfg.Color != "255, 255, 255" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestSnapshot(t *testing.T) {
	r, _ := newTestRouter(nil)
	if w := do(r, http.MethodGet, "/api/snapshot", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("snapshot before first frame = %d, want 503", w.Code)
	}

	jpeg := []byte{0xff, 0xd8, 0xff, 0xd9}
	r, _ = newTestRouter(jpeg)
	w := do(r, http.MethodGet, "/api/snapshot", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("snapshot = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.Equal(w.Body.Bytes(), jpeg) {
		t.Error("snapshot body mismatch")
	}
}
