package prediction

import (
	"encoding/json"
	"strconv"

	"github.com/kartoza/moment-rotation/internal/joint"
)

// UnavailableText is shown in place of a value whose model is not loaded
const UnavailableText = "Model not loaded"

// Outcome is either a predicted scalar or an explicit "model unavailable"
type Outcome struct {
	value     float64
	available bool
}

// Ok wraps a predicted value
func Ok(v float64) Outcome {
	return Outcome{value: v, available: true}
}

// Unavailable marks a label whose model is absent
func Unavailable() Outcome {
	return Outcome{}
}

// Get returns the value and whether it exists
func (o Outcome) Get() (float64, bool) {
	return o.value, o.available
}

// Available reports whether a value was predicted
func (o Outcome) Available() bool {
	return o.available
}

// Format renders the value with two decimals, or UnavailableText. The
// exact binary value is rounded, so 2.675 (stored just below) gives "2.67".
func (o Outcome) Format() string {
	if !o.available {
		return UnavailableText
	}
	return strconv.FormatFloat(o.value, 'f', 2, 64)
}

// MarshalJSON encodes an unavailable outcome as null
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.available {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// Result maps every label to its outcome for one request
type Result map[joint.Label]Outcome

// Get returns the outcome for label; a label not present is unavailable
func (r Result) Get(label joint.Label) Outcome {
	return r[label]
}

// Missing lists labels without a value, in display order
func (r Result) Missing() []joint.Label {
	var missing []joint.Label
	for _, label := range joint.Labels() {
		if !r[label].available {
			missing = append(missing, label)
		}
	}
	return missing
}
