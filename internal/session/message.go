package session

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/whatday/internal/apperr"
	"github.com/starford/whatday/internal/highlight"
)

// Action is the kind of a configuration-change message.
type Action string

const (
	ActionToggle         Action = "toggle"
	ActionUpdateSettings Action = "updateSettings"
	ActionSetLocale      Action = "setLocale"
)

// Message is a configuration-change signal. Nil fields are left unchanged.
type Message struct {
	Action       Action                  `json:"action"`
	Enabled      *bool                   `json:"enabled,omitempty"`
	IconPosition *highlight.IconPosition `json:"iconPosition,omitempty"`
	Background   *bool                   `json:"highlightEnabled,omitempty"`
	Locale       *string                 `json:"locale,omitempty"`
}

// Validate implements validation.Validatable.
func (m Message) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.Action, validation.Required,
			validation.In(ActionToggle, ActionUpdateSettings, ActionSetLocale)),
		validation.Field(&m.Enabled, validation.When(m.Action == ActionToggle, validation.NotNil)),
		validation.Field(&m.IconPosition, validation.NilOrNotEmpty,
			validation.In(highlight.IconBefore, highlight.IconAfter)),
		validation.Field(&m.Locale, validation.When(m.Action == ActionSetLocale, validation.NotNil)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidMessage, err)
	}
	return nil
}

// Apply returns s with the message's fields applied. refresh reports that a
// rendering-relevant field changed and an enabled page must be redrawn.
func (m Message) Apply(s highlight.Settings) (next highlight.Settings, refresh bool) {
	next = s
	switch m.Action {
	case ActionToggle:
		if m.Enabled != nil {
			next.Enabled = *m.Enabled
		}
	case ActionUpdateSettings:
		if m.IconPosition != nil && *m.IconPosition != s.IconPosition {
			next.IconPosition = *m.IconPosition
			refresh = true
		}
		if m.Background != nil && *m.Background != s.Background {
			next.Background = *m.Background
			refresh = true
		}
	case ActionSetLocale:
		if m.Locale != nil && *m.Locale != s.Locale {
			next.Locale = *m.Locale
			refresh = true
		}
	}
	return next, refresh
}
