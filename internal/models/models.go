package models

import (
	"github.com/kartoza/moment-rotation/internal/joint"
	"github.com/kartoza/moment-rotation/internal/plot"
	"github.com/kartoza/moment-rotation/internal/registry"
	"github.com/kartoza/moment-rotation/internal/session"
)

// PredictRequest carries the raw text of the ten input fields
type PredictRequest struct {
	Inputs []string `json:"inputs"`
}

// StateResponse wraps the session state, with an error message when the
// action was rejected
type StateResponse struct {
	State session.State `json:"state"`
	Error string        `json:"error,omitempty"`
}

// SaveRequest carries the view the page is showing, if zoomed or panned
type SaveRequest struct {
	View *plot.Viewport `json:"view,omitempty"`
}

// SaveResponse reports where a file was written; Saved is false when the
// user cancelled the dialog
type SaveResponse struct {
	Saved bool   `json:"saved"`
	Path  string `json:"path,omitempty"`
}

// Field describes one input field of the form
type Field struct {
	Symbol  string `json:"symbol"`
	Caption string `json:"caption"`
	Unit    string `json:"unit"`
}

// Output describes one output field of the form
type Output struct {
	Key     string `json:"key"`
	Caption string `json:"caption"`
}

// FormResponse is the static layout of the window
type FormResponse struct {
	Title   string   `json:"title"`
	Info    string   `json:"info"`
	Fields  []Field  `json:"fields"`
	Outputs []Output `json:"outputs"`
}

// InfoResponse describes the running application
type InfoResponse struct {
	Version string                              `json:"version"`
	Models  map[joint.Label]registry.SlotStatus `json:"models"`
	Loaded  int                                 `json:"loaded"`
}
