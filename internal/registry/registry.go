package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/kartoza/moment-rotation/internal/joint"
	"github.com/kartoza/moment-rotation/internal/regressor"
)

// Family names the training library an artifact was exported from. It
// decides the artifact file name and the default split rule.
type Family string

const (
	FamilyXGB Family = "XGB"
	FamilyGB  Family = "GB"
)

// artifactFamily is resolved once; labels outside the XGB subset use GB
var artifactFamily = map[joint.Label]Family{
	joint.Ki:   FamilyXGB,
	joint.MjR:  FamilyXGB,
	joint.Mmax: FamilyGB,
	joint.Qu:   FamilyGB,
}

var familySplit = map[Family]regressor.Split{
	FamilyXGB: regressor.SplitLess,
	FamilyGB:  regressor.SplitLessEqual,
}

// FamilyOf returns the artifact family for a label
func FamilyOf(label joint.Label) Family {
	return artifactFamily[label]
}

// ArtifactPath returns where the model for label is expected, e.g.
// saved_models/XGB_best_model(Ki).json
func ArtifactPath(dir string, label joint.Label) string {
	return filepath.Join(dir, fmt.Sprintf("%s_best_model(%s).json", FamilyOf(label), label.Key()))
}

// SlotStatus describes one model slot for the info endpoint
type SlotStatus struct {
	Loaded bool   `json:"loaded"`
	Family Family `json:"family"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Registry holds at most one model per label. It is never mutated after
// construction.
type Registry struct {
	slots  map[joint.Label]regressor.Regressor
	status map[joint.Label]SlotStatus
}

// New builds a registry from already loaded models. Labels missing from
// models are absent slots.
func New(models map[joint.Label]regressor.Regressor) *Registry {
	r := &Registry{
		slots:  make(map[joint.Label]regressor.Regressor),
		status: make(map[joint.Label]SlotStatus),
	}
	for _, label := range joint.Labels() {
		m, ok := models[label]
		if ok && m != nil {
			r.slots[label] = m
		}
		r.status[label] = SlotStatus{Loaded: ok && m != nil, Family: FamilyOf(label)}
	}
	return r
}

// Load reads every label's artifact from dir. A missing or unreadable
// artifact leaves its slot absent; Load itself never fails.
func Load(dir string) *Registry {
	r := &Registry{
		slots:  make(map[joint.Label]regressor.Regressor),
		status: make(map[joint.Label]SlotStatus),
	}

	for _, label := range joint.Labels() {
		family := FamilyOf(label)
		path := ArtifactPath(dir, label)
		status := SlotStatus{Family: family, Path: path}

		model, err := regressor.Load(path, familySplit[family])
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn().Str("label", label.Key()).Str("path", path).Msg("Model file not found")
			status.Error = "model file not found"
		case err != nil:
			log.Warn().Err(err).Str("label", label.Key()).Str("path", path).Msg("Model could not be loaded")
			status.Error = err.Error()
		default:
			r.slots[label] = model
			status.Loaded = true
			log.Info().Str("label", label.Key()).Str("path", path).Int("trees", len(model.Trees)).Msg("Loaded model")
		}
		r.status[label] = status
	}

	return r
}

// Slot returns the model for label, or false when it is absent
func (r *Registry) Slot(label joint.Label) (regressor.Regressor, bool) {
	m, ok := r.slots[label]
	return m, ok
}

// Loaded counts the populated slots
func (r *Registry) Loaded() int {
	return len(r.slots)
}

// Status reports every slot, loaded or not
func (r *Registry) Status() map[joint.Label]SlotStatus {
	out := make(map[joint.Label]SlotStatus, len(r.status))
	for k, v := range r.status {
		out[k] = v
	}
	return out
}
