package prediction

import (
	"github.com/rs/zerolog/log"

	"github.com/kartoza/moment-rotation/internal/joint"
	"github.com/kartoza/moment-rotation/internal/regressor"
)

// Scaler transforms raw features into model space
type Scaler interface {
	Scale(features joint.FeatureVector) (joint.FeatureVector, error)
}

// Models resolves the model slot for a label
type Models interface {
	Slot(label joint.Label) (regressor.Regressor, bool)
}

// Service composes the scaler and the model registry
type Service struct {
	scaler Scaler
	models Models
}

// NewService creates a prediction service
func NewService(scaler Scaler, models Models) *Service {
	return &Service{scaler: scaler, models: models}
}

// Predict scales features once and queries every label. Absent or failing
// models yield Unavailable for that label only. The only error is an
// invalid feature vector, which wraps joint.ErrInvalidFeatures.
func (s *Service) Predict(features joint.FeatureVector) (Result, error) {
	scaled, err := s.scaler.Scale(features)
	if err != nil {
		return nil, err
	}

	result := make(Result, joint.NumLabels)
	for _, label := range joint.Labels() {
		model, ok := s.models.Slot(label)
		if !ok {
			result[label] = Unavailable()
			continue
		}

		// each model gets its own copy so none can disturb the others
		x := make([]float64, len(scaled))
		copy(x, scaled)

		v, err := model.Predict(x)
		if err != nil {
			log.Warn().Err(err).Str("label", label.Key()).Msg("Prediction failed")
			result[label] = Unavailable()
			continue
		}
		result[label] = Ok(v)
	}
	return result, nil
}
