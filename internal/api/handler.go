package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/kartoza/moment-rotation/internal/config"
	"github.com/kartoza/moment-rotation/internal/httputil"
	"github.com/kartoza/moment-rotation/internal/joint"
	"github.com/kartoza/moment-rotation/internal/models"
	"github.com/kartoza/moment-rotation/internal/plot"
	"github.com/kartoza/moment-rotation/internal/registry"
	"github.com/kartoza/moment-rotation/internal/session"
)

// Session is the window state the endpoints act on
type Session interface {
	Submit(inputs []string) (session.State, error)
	Clear() session.State
	SavePlot(view *plot.Viewport) (string, error)
	ExportPoints() (string, error)
	RenderPlot(w io.Writer, opts plot.RenderOptions) error
	PlotBounds() plot.Viewport
	State() session.State
}

// ModelStatus reports which artifacts were loaded at startup
type ModelStatus interface {
	Status() map[joint.Label]registry.SlotStatus
	Loaded() int
}

// maxPlotSide bounds the pixel size the page may request
const maxPlotSide = 4096

// Handler provides HTTP API endpoints
type Handler struct {
	session Session
	models  ModelStatus
	cfg     config.Config
	limiter *rate.Limiter
}

// NewHandler creates a new API handler
func NewHandler(sess Session, status ModelStatus, cfg config.Config) *Handler {
	return &Handler{
		session: sess,
		models:  status,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst),
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(requestLogger)

	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")
	r.HandleFunc("/form", h.handleForm).Methods("GET")

	// Window state
	r.HandleFunc("/state", h.handleState).Methods("GET")
	r.HandleFunc("/plot.png", h.handlePlotImage).Methods("GET")
	r.HandleFunc("/plot/bounds", h.handlePlotBounds).Methods("GET")

	// Actions
	actions := r.Methods("POST").Subrouter()
	actions.Use(h.rateLimit, waitForDialogs)
	actions.HandleFunc("/predict", h.handlePredict)
	actions.HandleFunc("/clear", h.handleClear)
	actions.HandleFunc("/plot/save", h.handleSavePlot)
	actions.HandleFunc("/plot/points", h.handleExportPoints)
}

// requestLogger tags every request with an id and logs it once served
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("Request served")
	})
}

// waitForDialogs lifts the server write timeout. An action may block on a
// modal dialog for as long as the user leaves it open.
func waitForDialogs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
			log.Debug().Err(err).Msg("Write deadline not cleared")
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			log.Warn().Str("path", r.URL.Path).Msg("Rate limit exceeded")
			httputil.RespondError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns the version and the state of every model slot
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.InfoResponse{
		Version: h.cfg.Version,
		Models:  h.models.Status(),
		Loaded:  h.models.Loaded(),
	})
}

// handleForm returns the static layout of the form
func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	resp := models.FormResponse{
		Title: h.cfg.Window.Title,
		Info:  h.cfg.Info,
	}
	for _, f := range joint.Features() {
		resp.Fields = append(resp.Fields, models.Field{
			Symbol:  f.Symbol(),
			Caption: f.Caption(),
			Unit:    f.Unit(),
		})
	}
	for _, l := range joint.Labels() {
		resp.Outputs = append(resp.Outputs, models.Output{Key: l.Key(), Caption: l.Caption()})
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.StateResponse{State: h.session.State()})
}

// handlePredict runs "Predict & Plot". Rejected input is not an HTTP error:
// the dialog has already been shown, the page only needs the new state.
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.session.Submit(req.Inputs)
	resp := models.StateResponse{State: st}
	if err != nil {
		if !errors.Is(err, session.ErrInput) {
			httputil.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Error = session.InputErrorText
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.StateResponse{State: h.session.Clear()})
}

// handleSavePlot saves the figure with the view the page is showing; an
// empty body or a missing view saves the auto-scaled plot
func (h *Handler) handleSavePlot(w http.ResponseWriter, r *http.Request) {
	var req models.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.View != nil && !req.View.Valid() {
		httputil.RespondError(w, http.StatusBadRequest, "empty or non-finite view")
		return
	}

	h.respondSave(w, func() (string, error) {
		return h.session.SavePlot(req.View)
	})
}

func (h *Handler) handleExportPoints(w http.ResponseWriter, r *http.Request) {
	h.respondSave(w, h.session.ExportPoints)
}

func (h *Handler) respondSave(w http.ResponseWriter, save func() (string, error)) {
	path, err := save()
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.SaveResponse{Saved: path != "", Path: path})
}

// handlePlotImage renders the plot as PNG at the requested size and view
func (h *Handler) handlePlotImage(w http.ResponseWriter, r *http.Request) {
	opts, err := parseRenderOptions(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := h.session.RenderPlot(&buf, opts); err != nil {
		log.Error().Err(err).Msg("Plot render failed")
		httputil.RespondError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (h *Handler) handlePlotBounds(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.session.PlotBounds())
}

// parseRenderOptions reads width, height and an optional complete
// xmin/xmax/ymin/ymax view from the query string
func parseRenderOptions(r *http.Request) (plot.RenderOptions, error) {
	q := r.URL.Query()
	var opts plot.RenderOptions

	for _, dim := range []struct {
		key string
		dst *int
	}{{"width", &opts.Width}, {"height", &opts.Height}} {
		text := q.Get(dim.key)
		if text == "" {
			continue
		}
		v, err := strconv.Atoi(text)
		if err != nil || v <= 0 || v > maxPlotSide {
			return opts, errors.New(dim.key + " must be between 1 and " + strconv.Itoa(maxPlotSide))
		}
		*dim.dst = v
	}

	keys := []string{"xmin", "xmax", "ymin", "ymax"}
	present := 0
	for _, k := range keys {
		if q.Get(k) != "" {
			present++
		}
	}
	if present == 0 {
		return opts, nil
	}
	if present != len(keys) {
		return opts, errors.New("xmin, xmax, ymin and ymax must be given together")
	}

	var vals [4]float64
	for i, k := range keys {
		v, err := strconv.ParseFloat(q.Get(k), 64)
		if err != nil {
			return opts, errors.New(k + " must be a number")
		}
		vals[i] = v
	}
	view := plot.Viewport{XMin: vals[0], XMax: vals[1], YMin: vals[2], YMax: vals[3]}
	if !view.Valid() {
		return opts, errors.New("empty or non-finite view")
	}
	opts.View = &view
	return opts, nil
}
