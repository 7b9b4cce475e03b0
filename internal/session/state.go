package session

import (
	"github.com/kartoza/moment-rotation/internal/joint"
	"github.com/kartoza/moment-rotation/internal/plot"
)

// State is what the window shows: field text, output text and curves
type State struct {
	Inputs  []string               `json:"inputs"`
	Outputs map[joint.Label]string `json:"outputs"`
	Curves  []plot.Curve           `json:"curves"`
	Cursor  int                    `json:"cursor"`
}

// Empty reports whether every input and output field is blank
func (s State) Empty() bool {
	for _, v := range s.Inputs {
		if v != "" {
			return false
		}
	}
	for _, v := range s.Outputs {
		if v != "" {
			return false
		}
	}
	return true
}
