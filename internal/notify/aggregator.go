package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tubesync/internal/backend"
	"tubesync/internal/catalog"
	"tubesync/internal/identity"
	"tubesync/internal/logging"
	"tubesync/internal/progress"
)

// NotificationID names the single coalesced download notification. All
// devices share it so a dismissal on one device addresses the same
// notification everywhere.
const NotificationID = "downloads"

// ActiveView selects which downloads the aggregator counts: every tracked
// download, or only the ones currently rendered in the queue view.
type ActiveView int

const (
	ViewAll ActiveView = iota
	ViewQueue
)

// Broadcaster announces a local dismissal to other devices.
type Broadcaster interface {
	NotifyDismiss(ctx context.Context, notificationID string) error
}

// Source exposes the current set of active download trackers.
type Source interface {
	Active() []progress.Snapshot
}

// Aggregator maintains one notification covering every active download.
// A re-publish is suppressed unless the (text, percentage) pair actually
// changed; the notification clears when the last download ends.
type Aggregator struct {
	source      Source
	cache       *catalog.Cache
	sink        Sink
	broadcaster Broadcaster
	broadcast   bool
	local       identity.ClientID
	log         *slog.Logger

	mu          sync.Mutex
	view        ActiveView
	lastText    string
	lastPercent int
	visible     bool
}

// NewAggregator builds the notification aggregator. broadcast controls
// whether local dismissals are announced to other devices.
func NewAggregator(source Source, cache *catalog.Cache, sink Sink, broadcaster Broadcaster, broadcast bool, local identity.ClientID, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		source:      source,
		cache:       cache,
		sink:        sink,
		broadcaster: broadcaster,
		broadcast:   broadcast,
		local:       local,
		log:         logging.NewComponentLogger(logger, "notify"),
		lastPercent: -1,
	}
}

// SetView switches the counted download set and recomputes immediately.
func (a *Aggregator) SetView(view ActiveView) {
	a.mu.Lock()
	a.view = view
	a.mu.Unlock()
	a.Update()
}

// Update recomputes the coalesced notification from the active tracker set.
// Call after any tracker starts, advances, or ends.
func (a *Aggregator) Update() {
	active := a.filtered()

	a.mu.Lock()
	if len(active) == 0 {
		wasVisible := a.visible
		a.visible = false
		a.lastText = ""
		a.lastPercent = -1
		a.mu.Unlock()
		if wasVisible {
			if err := a.sink.Clear(NotificationID); err != nil {
				a.log.Warn("clear notification failed", logging.Error(err))
			}
		}
		return
	}

	text, percent := a.compose(active)
	if text == a.lastText && percent == a.lastPercent {
		a.mu.Unlock()
		return
	}
	a.lastText = text
	a.lastPercent = percent
	a.visible = true
	a.mu.Unlock()

	body := text
	if percent > 0 {
		body = fmt.Sprintf("%s — %d%%", text, percent)
	}
	if err := a.sink.Publish(NotificationID, "Downloads", body); err != nil {
		a.log.Warn("publish notification failed", logging.Error(err))
	}
}

// Failed publishes a one-shot failure notice and forces the next Update to
// re-render the progress notification.
func (a *Aggregator) Failed(videoID catalog.VideoID, message string) {
	a.mu.Lock()
	a.lastText = ""
	a.lastPercent = -1
	a.mu.Unlock()

	body := fmt.Sprintf("%s: %s", a.title(videoID), message)
	if err := a.sink.Publish(NotificationID, "Download failed", body); err != nil {
		a.log.Warn("publish failure notification failed", logging.Error(err))
	}
}

// Dismiss hides the notification locally and, when broadcasting is enabled,
// announces the dismissal so other devices hide theirs too.
func (a *Aggregator) Dismiss(ctx context.Context) error {
	a.mu.Lock()
	a.visible = false
	a.mu.Unlock()

	if err := a.sink.Clear(NotificationID); err != nil {
		a.log.Warn("clear notification failed", logging.Error(err))
	}
	if !a.broadcast || a.broadcaster == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := a.broadcaster.NotifyDismiss(ctx, NotificationID); err != nil {
		return fmt.Errorf("broadcast dismissal: %w", err)
	}
	return nil
}

// HandleDismiss applies a dismissal event from another device. Echoes of this
// client's own broadcast are ignored, and the dismissal is never re-broadcast.
func (a *Aggregator) HandleDismiss(ev backend.DismissEvent) {
	if ev.NotificationID != NotificationID {
		return
	}
	if a.local.Matches(ev.Originator) {
		a.log.Debug("discarding echoed dismissal")
		return
	}

	a.mu.Lock()
	a.visible = false
	a.mu.Unlock()
	if err := a.sink.Clear(NotificationID); err != nil {
		a.log.Warn("clear notification failed", logging.Error(err))
	}
}

// Visible reports whether the coalesced notification is currently shown.
func (a *Aggregator) Visible() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visible
}

func (a *Aggregator) filtered() []progress.Snapshot {
	active := a.source.Active()
	a.mu.Lock()
	view := a.view
	a.mu.Unlock()
	if view == ViewAll {
		return active
	}
	kept := active[:0]
	for _, snapshot := range active {
		if a.cache.ListContains(catalog.ListQueue, snapshot.VideoID) {
			kept = append(kept, snapshot)
		}
	}
	return kept
}

func (a *Aggregator) compose(active []progress.Snapshot) (string, int) {
	if len(active) == 1 {
		return a.title(active[0].VideoID), active[0].Percent
	}
	total := 0
	for _, snapshot := range active {
		total += snapshot.Percent
	}
	return fmt.Sprintf("%d downloads in progress", len(active)), total / len(active)
}

func (a *Aggregator) title(videoID catalog.VideoID) string {
	if v, ok := a.cache.Video(videoID); ok && v.Title != "" {
		return v.Title
	}
	return string(videoID)
}
