package plot

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/kartoza/moment-rotation/internal/curve"
)

// Color is a named palette entry
type Color struct {
	Name  string
	Value drawing.Color
}

// Hex returns the colour as #rrggbb
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.Value.R, c.Value.G, c.Value.B)
}

// MarshalJSON encodes the colour for the front end
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"name": c.Name, "hex": c.Hex()})
}

// Palette is cycled through as curves are added
var Palette = []Color{
	{"blue", drawing.Color{R: 0, G: 0, B: 255, A: 255}},
	{"green", drawing.Color{R: 0, G: 128, B: 0, A: 255}},
	{"red", drawing.Color{R: 255, G: 0, B: 0, A: 255}},
	{"cyan", drawing.Color{R: 0, G: 255, B: 255, A: 255}},
	{"magenta", drawing.Color{R: 255, G: 0, B: 255, A: 255}},
	{"yellow", drawing.Color{R: 255, G: 255, B: 0, A: 255}},
	{"black", drawing.Color{R: 0, G: 0, B: 0, A: 255}},
}

// Curve is one plotted bilinear response
type Curve struct {
	ID         uuid.UUID      `json:"id"`
	Index      int            `json:"index"`
	Label      string         `json:"label"`
	ColorIndex int            `json:"color_index"`
	Color      Color          `json:"color"`
	Points     curve.Bilinear `json:"points"`
}

// Surface accumulates curves until it is reset. It has two states: empty
// (no curves, cursor 0) and populated.
type Surface struct {
	curves []Curve
	cursor int
	mu     sync.RWMutex
}

// NewSurface returns an empty surface
func NewSurface() *Surface {
	return &Surface{}
}

// AddCurve appends b in the colour under the cursor and advances the cursor
func (s *Surface) AddCurve(b curve.Bilinear) Curve {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := len(s.curves) + 1
	c := Curve{
		ID:         uuid.New(),
		Index:      index,
		Label:      fmt.Sprintf("Plot %d", index),
		ColorIndex: s.cursor,
		Color:      Palette[s.cursor],
		Points:     b,
	}
	s.curves = append(s.curves, c)
	s.cursor = (s.cursor + 1) % len(Palette)
	return c
}

// Reset removes every curve and rewinds the colour cursor
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.curves = nil
	s.cursor = 0
}

// Len returns the number of curves
func (s *Surface) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.curves)
}

// Cursor returns the palette index the next curve will use
func (s *Surface) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Curves returns a copy of the curves in insertion order
func (s *Surface) Curves() []Curve {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Curve, len(s.curves))
	copy(out, s.curves)
	return out
}
