package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/kartoza/moment-rotation/internal/config"
	"github.com/kartoza/moment-rotation/internal/dialog"
	"github.com/kartoza/moment-rotation/internal/joint"
	"github.com/kartoza/moment-rotation/internal/models"
	"github.com/kartoza/moment-rotation/internal/plot"
	"github.com/kartoza/moment-rotation/internal/prediction"
	"github.com/kartoza/moment-rotation/internal/registry"
	"github.com/kartoza/moment-rotation/internal/regressor"
	"github.com/kartoza/moment-rotation/internal/scaler"
	"github.com/kartoza/moment-rotation/internal/session"
)

type quietDialogs struct {
	confirm bool
	errors  int
}

func (q *quietDialogs) Confirm(title, text string) bool { return q.confirm }
func (q *quietDialogs) Error(title, text string)        { q.errors++ }
func (q *quietDialogs) Warning(title, text string)      {}
func (q *quietDialogs) SaveFile(title, filename string, filters []dialog.Filter) (string, bool) {
	return "", false
}

var validInputs = []string{"10", "150", "200", "90", "60", "50", "50", "20", "1e7", "9e6"}

func constant(v float64) regressor.Regressor {
	return regressor.Func(func([]float64) (float64, error) { return v, nil })
}

func newTestSession(t *testing.T) (*session.Session, *registry.Registry, *quietDialogs) {
	t.Helper()
	sc, err := scaler.New(scaler.DefaultConfig())
	if err != nil {
		t.Fatalf("scaler.New failed: %v", err)
	}
	reg := registry.New(map[joint.Label]regressor.Regressor{
		joint.Ki:   constant(5),
		joint.MjR:  constant(100),
		joint.Mmax: constant(150),
		joint.Qu:   constant(30),
	})
	dialogs := &quietDialogs{}
	return session.New(prediction.NewService(sc, reg), plot.NewSurface(), dialogs), reg, dialogs
}

func newRouter(sess Session, status ModelStatus, cfg config.Config) *mux.Router {
	r := mux.NewRouter()
	NewHandler(sess, status, cfg).RegisterRoutes(r)
	return r
}

func newTestRouter(t *testing.T, cfg config.Config) (*mux.Router, *quietDialogs) {
	t.Helper()
	sess, reg, dialogs := newTestSession(t)
	return newRouter(sess, reg, cfg), dialogs
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Version = "test"
	return cfg
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a request id header")
	}

	var response map[string]string
	json.NewDecoder(w.Body).Decode(&response)
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}
}

func TestInfoEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	req := httptest.NewRequest("GET", "/info", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var response models.InfoResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if response.Version != "test" {
		t.Errorf("Expected version 'test', got '%v'", response.Version)
	}
	if response.Loaded != 4 {
		t.Errorf("Expected 4 loaded models, got %d", response.Loaded)
	}
	if !response.Models[joint.MjR].Loaded {
		t.Error("Expected Mj,R to be reported as loaded")
	}
}

func TestFormEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	req := httptest.NewRequest("GET", "/form", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var response models.FormResponse
	json.NewDecoder(w.Body).Decode(&response)
	if len(response.Fields) != joint.NumFeatures {
		t.Errorf("Expected %d fields, got %d", joint.NumFeatures, len(response.Fields))
	}
	if len(response.Outputs) != joint.NumLabels {
		t.Errorf("Expected %d outputs, got %d", joint.NumLabels, len(response.Outputs))
	}
	if response.Fields[0].Symbol != "tep" {
		t.Errorf("Expected first field tep, got %q", response.Fields[0].Symbol)
	}
}

func TestPredictEndpoint(t *testing.T) {
	r, dialogs := newTestRouter(t, testConfig())

	w := postJSON(r, "/predict", models.PredictRequest{Inputs: validInputs})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response models.StateResponse
	json.NewDecoder(w.Body).Decode(&response)
	if response.Error != "" {
		t.Errorf("Unexpected error %q", response.Error)
	}
	if len(response.State.Curves) != 1 {
		t.Errorf("Expected 1 curve, got %d", len(response.State.Curves))
	}
	if response.State.Outputs[joint.Qu] != "30.00" {
		t.Errorf("Expected Qu 30.00, got %q", response.State.Outputs[joint.Qu])
	}
	if dialogs.errors != 0 {
		t.Errorf("Expected no error dialogs, got %d", dialogs.errors)
	}
}

func TestPredictInvalidInput(t *testing.T) {
	r, dialogs := newTestRouter(t, testConfig())

	in := append([]string{}, validInputs...)
	in[5] = "x"
	w := postJSON(r, "/predict", models.PredictRequest{Inputs: in})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response models.StateResponse
	json.NewDecoder(w.Body).Decode(&response)
	if response.Error != session.InputErrorText {
		t.Errorf("Expected input error text, got %q", response.Error)
	}
	if len(response.State.Curves) != 0 {
		t.Errorf("Expected no curves, got %d", len(response.State.Curves))
	}
	if dialogs.errors != 1 {
		t.Errorf("Expected one error dialog, got %d", dialogs.errors)
	}
}

func TestPredictBadBody(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	req := httptest.NewRequest("POST", "/predict", strings.NewReader("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestClearEndpoint(t *testing.T) {
	r, dialogs := newTestRouter(t, testConfig())
	postJSON(r, "/predict", models.PredictRequest{Inputs: validInputs})

	dialogs.confirm = true
	w := postJSON(r, "/clear", nil)

	var response models.StateResponse
	json.NewDecoder(w.Body).Decode(&response)
	if !response.State.Empty() || len(response.State.Curves) != 0 {
		t.Errorf("Expected cleared state, got %+v", response.State)
	}
}

func TestSaveCancelled(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	for _, path := range []string{"/plot/save", "/plot/points"} {
		w := postJSON(r, path, nil)
		var response models.SaveResponse
		json.NewDecoder(w.Body).Decode(&response)
		if w.Code != http.StatusOK || response.Saved {
			t.Errorf("%s: expected unsaved 200, got %d %+v", path, w.Code, response)
		}
	}
}

func TestPlotImage(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"defaults", "", http.StatusOK},
		{"sized", "?width=300&height=200", http.StatusOK},
		{"viewport", "?xmin=0&xmax=10&ymin=0&ymax=100", http.StatusOK},
		{"bad width", "?width=abc", http.StatusBadRequest},
		{"huge height", "?height=100000", http.StatusBadRequest},
		{"partial view", "?xmin=0&xmax=10", http.StatusBadRequest},
		{"inverted view", "?xmin=10&xmax=0&ymin=0&ymax=1", http.StatusBadRequest},
	}

	r, _ := newTestRouter(t, testConfig())
	postJSON(r, "/predict", models.PredictRequest{Inputs: validInputs})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/plot.png"+tt.query, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			if tt.status == http.StatusOK {
				if ct := w.Header().Get("Content-Type"); ct != "image/png" {
					t.Errorf("Expected image/png, got %s", ct)
				}
				if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
					t.Error("Expected PNG signature")
				}
			}
		})
	}
}

func TestPlotBounds(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	postJSON(r, "/predict", models.PredictRequest{Inputs: validInputs})

	req := httptest.NewRequest("GET", "/plot/bounds", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var view plot.Viewport
	json.NewDecoder(w.Body).Decode(&view)
	if view.XMax < 30 || view.YMax < 150 {
		t.Errorf("Expected bounds to cover the curve, got %+v", view)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.PerSecond = 0.001
	cfg.RateLimit.Burst = 1
	r, _ := newTestRouter(t, cfg)

	if w := postJSON(r, "/clear", nil); w.Code != http.StatusOK {
		t.Fatalf("Expected first action to pass, got %d", w.Code)
	}
	if w := postJSON(r, "/clear", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", w.Code)
	}

	// reads are not limited
	req := httptest.NewRequest("GET", "/state", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for state, got %d", w.Code)
	}
}

// slowSession holds Clear open like a confirmation left on screen
type slowSession struct {
	Session
	delay time.Duration
}

func (s slowSession) Clear() session.State {
	time.Sleep(s.delay)
	return s.Session.Clear()
}

func TestActionOutlivesWriteTimeout(t *testing.T) {
	sess, reg, _ := newTestSession(t)
	r := newRouter(slowSession{Session: sess, delay: 300 * time.Millisecond}, reg, testConfig())

	srv := httptest.NewUnstartedServer(r)
	srv.Config.WriteTimeout = 50 * time.Millisecond
	srv.Start()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/clear", "application/json", nil)
	if err != nil {
		t.Fatalf("Expected a response after the dialog closed, got %v", err)
	}
	defer resp.Body.Close()

	var response models.StateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || len(response.State.Inputs) != joint.NumFeatures {
		t.Errorf("Expected the cleared state, got %d %+v", resp.StatusCode, response.State)
	}
}

// viewRecorder remembers the view each save was asked for
type viewRecorder struct {
	Session
	saves []*plot.Viewport
}

func (v *viewRecorder) SavePlot(view *plot.Viewport) (string, error) {
	v.saves = append(v.saves, view)
	return "", nil
}

func TestSavePlotView(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   *plot.Viewport
	}{
		{"no body", "", http.StatusOK, nil},
		{"no view", "{}", http.StatusOK, nil},
		{"zoomed", `{"view":{"xmin":0,"xmax":10,"ymin":0,"ymax":40}}`, http.StatusOK,
			&plot.Viewport{XMin: 0, XMax: 10, YMin: 0, YMax: 40}},
		{"inverted", `{"view":{"xmin":10,"xmax":0,"ymin":0,"ymax":40}}`, http.StatusBadRequest, nil},
		{"malformed", "{", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, reg, _ := newTestSession(t)
			rec := &viewRecorder{Session: sess}
			r := newRouter(rec, reg, testConfig())

			req := httptest.NewRequest("POST", "/plot/save", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			if tt.status != http.StatusOK {
				if len(rec.saves) != 0 {
					t.Error("Expected no save for a rejected request")
				}
				return
			}
			if len(rec.saves) != 1 {
				t.Fatalf("Expected one save, got %d", len(rec.saves))
			}
			got := rec.saves[0]
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("Expected view %+v, got %+v", tt.want, got)
			}
		})
	}
}
