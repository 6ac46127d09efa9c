package notify

import (
	"github.com/gen2brain/beeep"

	"tubesync/internal/config"
)

// Sink delivers notifications to the local desktop.
type Sink interface {
	Publish(id, title, body string) error
	Clear(id string) error
}

// NewSink builds a desktop sink when desktop notifications are enabled, and a
// noop implementation otherwise.
func NewSink(cfg *config.Config) Sink {
	if cfg != nil && cfg.Notifications.Desktop {
		return desktopSink{}
	}
	return noopSink{}
}

type desktopSink struct{}

func (desktopSink) Publish(_, title, body string) error {
	return beeep.Notify(title, body, "")
}

// Clear is a no-op: the desktop backend has no retraction API, so a dismissed
// notification simply stops being refreshed.
func (desktopSink) Clear(string) error { return nil }

type noopSink struct{}

func (noopSink) Publish(string, string, string) error { return nil }
func (noopSink) Clear(string) error                   { return nil }
