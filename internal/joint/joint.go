package joint

import (
	"errors"
	"fmt"
	"math"
)

// Feature identifies one geometric or material input of a flush end-plate
// beam-to-column connection. The order of the constants is the order the
// models were trained on.
type Feature int

const (
	EndPlateThickness Feature = iota
	EndPlateWidth
	EndPlateHeight
	BoltGauge
	BoltPitch
	TensionBoltPitch
	CompressionBoltPitch
	BoltDiameter
	ColumnInertia
	BeamInertia
)

// NumFeatures is the arity of a FeatureVector
const NumFeatures = 10

type featureInfo struct {
	symbol  string
	caption string
	unit    string
}

var features = [NumFeatures]featureInfo{
	{"tep", "End-plate thickness", "mm"},
	{"bep", "End-plate width", "mm"},
	{"hep", "End-plate height", "mm"},
	{"gi", "Horizontal distance between bolts", "mm"},
	{"Pi", "Spacing between bolts in tension and compression", "mm"},
	{"Pt", "Spacing between the tension bolts", "mm"},
	{"Pc", "Spacing between the compression bolts", "mm"},
	{"Db", "Bolt diameter", "mm"},
	{"Ixxc", "Column second moment of inertia", "mm^4"},
	{"Ixxb", "Beam second moment of inertia", "mm^4"},
}

// Features returns all features in model order
func Features() []Feature {
	out := make([]Feature, NumFeatures)
	for i := range out {
		out[i] = Feature(i)
	}
	return out
}

// Symbol returns the short engineering symbol, e.g. "tep"
func (f Feature) Symbol() string { return features[f].symbol }

// Unit returns the unit the value is entered in
func (f Feature) Unit() string { return features[f].unit }

// Caption returns the form label, e.g. "End-plate thickness: tep(mm):"
func (f Feature) Caption() string {
	info := features[f]
	return fmt.Sprintf("%s: %s(%s):", info.caption, info.symbol, info.unit)
}

func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return fmt.Sprintf("Feature(%d)", int(f))
	}
	return features[f].symbol
}

var (
	// ErrInvalidFeatures is wrapped by every FeatureVector validation error
	ErrInvalidFeatures = errors.New("invalid feature vector")
	ErrArity           = fmt.Errorf("%w: wrong number of features", ErrInvalidFeatures)
	ErrNonFinite       = fmt.Errorf("%w: non-finite value", ErrInvalidFeatures)
)

// FeatureVector holds exactly NumFeatures finite values in Feature order.
type FeatureVector []float64

// Validate checks arity and finiteness
func (v FeatureVector) Validate() error {
	if len(v) != NumFeatures {
		return fmt.Errorf("%w: got %d, want %d", ErrArity, len(v), NumFeatures)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s = %v", ErrNonFinite, Feature(i), x)
		}
	}
	return nil
}
