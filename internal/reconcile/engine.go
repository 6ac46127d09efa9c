package reconcile

import (
	"context"
	"log/slog"
	"time"

	"tubesync/internal/backend"
	"tubesync/internal/catalog"
	"tubesync/internal/identity"
	"tubesync/internal/logging"
	"tubesync/internal/services"
)

// ChannelPublisher pushes locally-edited channel state to the backend.
type ChannelPublisher interface {
	PushChannelUpdate(ctx context.Context, state backend.ChannelState) error
}

// Engine merges incoming change events into the entity cache and propagates
// local channel edits back out. Events that carry this client's own identity
// as originator are echoes of mutations already applied locally and are
// discarded without touching the cache.
type Engine struct {
	local     identity.ClientID
	cache     *catalog.Cache
	publisher ChannelPublisher
	retry     services.RetryPolicy
	log       *slog.Logger
}

// NewEngine builds a reconciliation engine over the shared entity cache.
// Outgoing channel updates are retried under the given policy.
func NewEngine(local identity.ClientID, cache *catalog.Cache, publisher ChannelPublisher, retry services.RetryPolicy, logger *slog.Logger) *Engine {
	return &Engine{
		local:     local,
		cache:     cache,
		publisher: publisher,
		retry:     retry,
		log:       logging.NewComponentLogger(logger, "reconcile"),
	}
}

// ApplyVideoChange merges a video change event into the cached instance.
// Only the sync-relevant fields travel on change events; display fields are
// left untouched. Videos not currently cached are ignored.
func (e *Engine) ApplyVideoChange(change backend.VideoChange) {
	if e.local.Matches(change.Originator) {
		e.log.Debug("discarding echoed video change", logging.String(logging.FieldVideoID, string(change.Video.ID)))
		return
	}

	merged := e.cache.MutateVideo(change.Video.ID, func(v *catalog.Video) {
		v.Excluded = change.Video.Excluded
		v.ExclusionReason = change.Video.ExclusionReason
	})
	if !merged {
		e.log.Debug("video change for uncached video", logging.String(logging.FieldVideoID, string(change.Video.ID)))
		return
	}
	e.log.Debug("merged video change",
		logging.String(logging.FieldVideoID, string(change.Video.ID)),
		logging.Bool("excluded", change.Video.Excluded))
}

// ApplyChannelChange merges a channel change event. A deletion flag removes
// the channel and its list outright. Updates to a cached channel are copied
// field by field under the bulk-update guard so the propagation hook does not
// echo the incoming change back to the backend. Unknown channels are inserted
// and wired for propagation.
func (e *Engine) ApplyChannelChange(change backend.ChannelChange) {
	state := change.Channel
	if e.local.Matches(change.Originator) {
		e.log.Debug("discarding echoed channel change", logging.String(logging.FieldChannelID, string(state.ID)))
		return
	}

	if state.MarkedForDeletion {
		if e.cache.RemoveChannel(state.ID) {
			e.log.Info("removed channel", logging.String(logging.FieldChannelID, string(state.ID)))
		}
		return
	}

	updated := e.cache.MutateChannel(state.ID, func(ch *catalog.Channel) {
		ch.BeginBulkUpdate()
		defer ch.EndBulkUpdate()
		applyChannelState(ch, state)
	})
	if updated {
		e.log.Debug("merged channel change", logging.String(logging.FieldChannelID, string(state.ID)))
		return
	}

	ch := catalog.NewChannel(state.ID, state.PlaylistKey)
	ch.BeginBulkUpdate()
	applyChannelState(ch, state)
	ch.EndBulkUpdate()

	inserted := e.cache.PutChannel(ch)
	if inserted == ch {
		// Wire propagation only after insertion so construction never emits
		// an outgoing mutation.
		e.AttachChannel(ch)
		e.log.Info("inserted channel", logging.String(logging.FieldChannelID, string(state.ID)))
		return
	}
	// Lost a race with another inserter; merge into the surviving instance.
	e.cache.MutateChannel(state.ID, func(existing *catalog.Channel) {
		existing.BeginBulkUpdate()
		defer existing.EndBulkUpdate()
		applyChannelState(existing, state)
	})
}

// AttachChannel registers the propagation hook on a cached channel so any
// local field edit is pushed to the backend. Call after cache insertion.
func (e *Engine) AttachChannel(ch *catalog.Channel) {
	ch.OnChanged(e.propagateChannel)
}

func (e *Engine) propagateChannel(ch *catalog.Channel) {
	if e.publisher == nil {
		return
	}
	state := backend.ChannelState{
		ID:                ch.ID,
		PlaylistKey:       ch.PlaylistKey,
		Name:              ch.Name(),
		Description:       ch.Description(),
		Filter:            ch.Filter(),
		MarkedForDeletion: ch.MarkedForDeletion(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := services.Retry(ctx, e.retry, func(ctx context.Context) error {
		return e.publisher.PushChannelUpdate(ctx, state)
	})
	if err != nil {
		e.log.Warn("push channel update failed",
			logging.String(logging.FieldChannelID, string(ch.ID)),
			logging.Error(err))
	}
}

func applyChannelState(ch *catalog.Channel, state backend.ChannelState) {
	ch.SetName(state.Name)
	ch.SetDescription(state.Description)
	ch.SetFilter(state.Filter)
	ch.SetMarkedForDeletion(state.MarkedForDeletion)
}
