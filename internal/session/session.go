package session

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kartoza/moment-rotation/internal/curve"
	"github.com/kartoza/moment-rotation/internal/dialog"
	"github.com/kartoza/moment-rotation/internal/joint"
	"github.com/kartoza/moment-rotation/internal/plot"
	"github.com/kartoza/moment-rotation/internal/prediction"
)

// Dialog texts
const (
	InputErrorTitle = "Input error"
	InputErrorText  = "Please check your inputs. All fields must be filled with numeric values."
	ClearTitle      = "Clear Plot"
	ClearText       = "Do you want to remove all plots?"
	CurveTitle      = "Curve not plotted"
	SaveTitle       = "Save the figure"
	PointsTitle     = "Export curve points"
	SaveErrorTitle  = "Save error"

	DefaultPlotName   = "moment-rotation.png"
	DefaultPointsName = "moment-rotation.xlsx"
)

// ErrInput is returned when a field is blank or not a finite number
var ErrInput = errors.New("all fields must be filled with numeric values")

var plotFilters = []dialog.Filter{
	{Name: "PNG files", Patterns: []string{"*.png"}},
	{Name: "PDF files", Patterns: []string{"*.pdf"}},
	{Name: "JPEG files", Patterns: []string{"*.jpg", "*.jpeg"}},
}

var pointsFilters = []dialog.Filter{
	{Name: "Excel workbooks", Patterns: []string{"*.xlsx"}},
}

// Predictor runs the four models on raw features
type Predictor interface {
	Predict(features joint.FeatureVector) (prediction.Result, error)
}

// Session is the application state for one window: the form fields, the
// plot surface and the services behind them. Actions run one at a time.
type Session struct {
	predictor Predictor
	surface   *plot.Surface
	dialogs   dialog.Dialogs
	plotSize  plot.RenderOptions

	inputs  [joint.NumFeatures]string
	outputs map[joint.Label]string

	mu sync.Mutex
}

// Option customises a Session
type Option func(*Session)

// WithPlotSize sets the size used for exported figures
func WithPlotSize(width, height int) Option {
	return func(s *Session) {
		s.plotSize = plot.RenderOptions{Width: width, Height: height}
	}
}

// New creates a session with empty fields
func New(predictor Predictor, surface *plot.Surface, dialogs dialog.Dialogs, opts ...Option) *Session {
	s := &Session{
		predictor: predictor,
		surface:   surface,
		dialogs:   dialogs,
		outputs:   make(map[joint.Label]string, joint.NumLabels),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit handles "Predict & Plot". The field text is kept even when it is
// invalid so the user can correct it. On invalid input nothing else
// changes and a single error dialog is shown.
func (s *Session) Submit(inputs []string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.inputs {
		s.inputs[i] = ""
		if i < len(inputs) {
			s.inputs[i] = inputs[i]
		}
	}

	features, err := parseInputs(inputs)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected form input")
		s.dialogs.Error(InputErrorTitle, InputErrorText)
		return s.snapshot(), err
	}

	res, err := s.predictor.Predict(features)
	if err != nil {
		// parseInputs already guarantees a valid vector
		s.dialogs.Error(InputErrorTitle, InputErrorText)
		return s.snapshot(), fmt.Errorf("%w: %v", ErrInput, err)
	}

	for _, label := range joint.Labels() {
		s.outputs[label] = res.Get(label).Format()
	}

	b, err := curve.FromResult(res)
	if err != nil {
		log.Warn().Err(err).Msg("Curve not plotted")
		s.dialogs.Warning(CurveTitle, fmt.Sprintf("The curve was not plotted because these models are not loaded: %s.",
			labelKeys(res.Missing())))
		return s.snapshot(), nil
	}

	c := s.surface.AddCurve(b)
	log.Info().Str("curve", c.Label).Str("color", c.Color.Name).Msg("Curve added")
	return s.snapshot(), nil
}

// Clear empties every field. The plot is reset only if the user confirms.
func (s *Session) Clear() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dialogs.Confirm(ClearTitle, ClearText) {
		s.surface.Reset()
		log.Info().Msg("Plot cleared")
	}

	s.inputs = [joint.NumFeatures]string{}
	s.outputs = make(map[joint.Label]string, joint.NumLabels)
	return s.snapshot()
}

// SavePlot asks for a destination and exports the figure with the given
// view, or auto-scaled when view is nil. It returns the written path, or ""
// when the user cancelled. Failures are shown in an error dialog as well
// as returned.
func (s *Session) SavePlot(view *plot.Viewport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.dialogs.SaveFile(SaveTitle, DefaultPlotName, plotFilters)
	if !ok {
		return "", nil
	}
	if filepath.Ext(path) == "" {
		path += ".png"
	}

	opts := s.plotSize
	opts.View = view
	if err := s.surface.Export(path, opts); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Plot export failed")
		s.dialogs.Error(SaveErrorTitle, fmt.Sprintf("Could not save %s: %v", path, err))
		return "", err
	}
	return path, nil
}

// ExportPoints asks for a destination and writes the curve points workbook
func (s *Session) ExportPoints() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.dialogs.SaveFile(PointsTitle, DefaultPointsName, pointsFilters)
	if !ok {
		return "", nil
	}
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		path += ".xlsx"
	}

	if err := s.surface.ExportPoints(path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Points export failed")
		s.dialogs.Error(SaveErrorTitle, fmt.Sprintf("Could not save %s: %v", path, err))
		return "", err
	}
	return path, nil
}

// RenderPlot draws the current plot for the window
func (s *Session) RenderPlot(w io.Writer, opts plot.RenderOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Render(w, plot.FormatPNG, opts)
}

// PlotBounds is the home view of the plot toolbar
func (s *Session) PlotBounds() plot.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Bounds()
}

// State returns a snapshot of the form and plot
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() State {
	st := State{
		Inputs:  make([]string, joint.NumFeatures),
		Outputs: make(map[joint.Label]string, joint.NumLabels),
		Curves:  s.surface.Curves(),
		Cursor:  s.surface.Cursor(),
	}
	copy(st.Inputs, s.inputs[:])
	for _, label := range joint.Labels() {
		st.Outputs[label] = s.outputs[label]
	}
	return st
}

// parseInputs requires exactly one finite number per feature
func parseInputs(inputs []string) (joint.FeatureVector, error) {
	if len(inputs) != joint.NumFeatures {
		return nil, fmt.Errorf("%w: got %d fields, want %d", ErrInput, len(inputs), joint.NumFeatures)
	}

	features := make(joint.FeatureVector, joint.NumFeatures)
	for i, text := range inputs {
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s = %q", ErrInput, joint.Feature(i), text)
		}
		features[i] = v
	}
	if err := features.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	return features, nil
}

func labelKeys(labels []joint.Label) string {
	keys := make([]string, len(labels))
	for i, l := range labels {
		keys[i] = l.Key()
	}
	return strings.Join(keys, ", ")
}
