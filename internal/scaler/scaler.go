package scaler

import (
	"fmt"

	"github.com/kartoza/moment-rotation/internal/joint"
)

// Config holds the per-feature bounds and the target range. The bounds are
// the training-data range, not learned from the sample being scaled.
type Config struct {
	Min [joint.NumFeatures]float64
	Max [joint.NumFeatures]float64
	Lo  float64
	Hi  float64
}

// DefaultConfig returns the bounds the shipped models were trained with
func DefaultConfig() Config {
	return Config{
		Min: [joint.NumFeatures]float64{6.0, 88.7, 140.0, 45.0, 40.0, 0.0, 0.0, 16.0, 8377892.333, 7984488.333},
		Max: [joint.NumFeatures]float64{30.0, 300.0, 426.4, 200.0, 165.0, 100.0, 100.0, 24, 262295552, 218764745.5},
		Lo:  -1,
		Hi:  1,
	}
}

// Scaler maps raw features into [Lo, Hi] with a fixed affine transform
type Scaler struct {
	cfg Config
}

// New validates the configuration. A degenerate feature (min == max) is a
// configuration error.
func New(cfg Config) (*Scaler, error) {
	if cfg.Lo >= cfg.Hi {
		return nil, fmt.Errorf("invalid target range [%v, %v]", cfg.Lo, cfg.Hi)
	}
	for i := 0; i < joint.NumFeatures; i++ {
		if cfg.Min[i] >= cfg.Max[i] {
			return nil, fmt.Errorf("feature %s: min %v must be below max %v",
				joint.Feature(i), cfg.Min[i], cfg.Max[i])
		}
	}
	return &Scaler{cfg: cfg}, nil
}

// Config returns a copy of the bounds in use
func (s *Scaler) Config() Config {
	return s.cfg
}

// Scale applies y = lo + (x - min) / (max - min) * (hi - lo) to every
// feature. Values outside the bounds extrapolate; nothing is clamped.
func (s *Scaler) Scale(features joint.FeatureVector) (joint.FeatureVector, error) {
	if err := features.Validate(); err != nil {
		return nil, err
	}

	span := s.cfg.Hi - s.cfg.Lo
	out := make(joint.FeatureVector, joint.NumFeatures)
	for i, x := range features {
		out[i] = s.cfg.Lo + (x-s.cfg.Min[i])/(s.cfg.Max[i]-s.cfg.Min[i])*span
	}
	return out, nil
}
