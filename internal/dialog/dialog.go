package dialog

import (
	"errors"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// Filter restricts a file chooser to a set of glob patterns
type Filter struct {
	Name     string
	Patterns []string
}

// Dialogs are modal: every call blocks until the user answers
type Dialogs interface {
	// Confirm asks a yes/no question; anything but "yes" is false
	Confirm(title, text string) bool
	Error(title, text string)
	Warning(title, text string)
	// SaveFile asks for a destination; false when the user cancels
	SaveFile(title, filename string, filters []Filter) (string, bool)
}

// Native shows platform dialogs through zenity
type Native struct{}

// NewNative returns the platform dialog implementation
func NewNative() *Native {
	return &Native{}
}

// Confirm shows a question with Yes/No buttons
func (Native) Confirm(title, text string) bool {
	err := zenity.Question(text,
		zenity.Title(title),
		zenity.QuestionIcon,
		zenity.OKLabel("Yes"),
		zenity.CancelLabel("No"))
	if err != nil && !errors.Is(err, zenity.ErrCanceled) {
		log.Warn().Err(err).Str("title", title).Msg("Confirmation dialog failed")
	}
	return err == nil
}

// Error shows an error message
func (Native) Error(title, text string) {
	if err := zenity.Error(text, zenity.Title(title), zenity.ErrorIcon); err != nil && !errors.Is(err, zenity.ErrCanceled) {
		log.Warn().Err(err).Str("title", title).Str("text", text).Msg("Error dialog failed")
	}
}

// Warning shows a warning message
func (Native) Warning(title, text string) {
	if err := zenity.Warning(text, zenity.Title(title), zenity.WarningIcon); err != nil && !errors.Is(err, zenity.ErrCanceled) {
		log.Warn().Err(err).Str("title", title).Str("text", text).Msg("Warning dialog failed")
	}
}

// SaveFile shows a save-as chooser that confirms overwrites
func (Native) SaveFile(title, filename string, filters []Filter) (string, bool) {
	zf := make(zenity.FileFilters, 0, len(filters))
	for _, f := range filters {
		zf = append(zf, zenity.FileFilter{Name: f.Name, Patterns: f.Patterns, CaseFold: true})
	}

	path, err := zenity.SelectFileSave(
		zenity.Title(title),
		zenity.Filename(filename),
		zenity.ConfirmOverwrite(),
		zf)
	if err != nil {
		if !errors.Is(err, zenity.ErrCanceled) {
			log.Warn().Err(err).Str("title", title).Msg("Save dialog failed")
		}
		return "", false
	}
	return path, path != ""
}
