package highlight

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// IconPosition places the weekday indicator relative to the marker.
type IconPosition string

const (
	IconBefore IconPosition = "before"
	IconAfter  IconPosition = "after"
)

// Settings controls how a pass renders its spans. It is an immutable value;
// the owner swaps the whole value on change.
type Settings struct {
	Enabled      bool         `json:"enabled" yaml:"enabled"`
	Background   bool         `json:"highlightEnabled" yaml:"background"`
	IconPosition IconPosition `json:"iconPosition" yaml:"icon_position"`
	Locale       string       `json:"locale,omitempty" yaml:"locale"`
}

// DefaultSettings returns enabled highlighting with a background and the
// indicator after the date.
func DefaultSettings() Settings {
	return Settings{
		Enabled:      true,
		Background:   true,
		IconPosition: IconAfter,
	}
}

// Validate implements validation.Validatable.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.IconPosition, validation.Required, validation.In(IconBefore, IconAfter)),
		validation.Field(&s.Locale, validation.Length(0, 35)),
	)
}

// MarkClass returns the marker class for the current background setting.
func (s Settings) MarkClass() string {
	if s.Background {
		return ClassMark
	}
	return ClassMarkNoBg
}
