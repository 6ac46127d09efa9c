package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tubesync/internal/backend"
	"tubesync/internal/catalog"
	"tubesync/internal/identity"
	"tubesync/internal/logging"
	"tubesync/internal/reconcile"
	"tubesync/internal/services"
)

type capturePublisher struct {
	pushed chan backend.ChannelState
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{pushed: make(chan backend.ChannelState, 4)}
}

func (p *capturePublisher) PushChannelUpdate(_ context.Context, state backend.ChannelState) error {
	p.pushed <- state
	return nil
}

func (p *capturePublisher) next(t *testing.T) backend.ChannelState {
	t.Helper()
	select {
	case state := <-p.pushed:
		return state
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pushed channel state")
		return backend.ChannelState{}
	}
}

func (p *capturePublisher) assertNone(t *testing.T) {
	t.Helper()
	select {
	case state := <-p.pushed:
		t.Fatalf("unexpected channel push %+v", state)
	default:
	}
}

func newEngine(t *testing.T) (*reconcile.Engine, *catalog.Cache, identity.ClientID, *capturePublisher) {
	t.Helper()
	cache := catalog.NewCache()
	id := identity.New()
	publisher := newCapturePublisher()
	engine := reconcile.NewEngine(id, cache, publisher, services.RetryPolicy{Attempts: 1}, logging.NewNop())
	return engine, cache, id, publisher
}

func TestApplyVideoChangeMergesSyncFields(t *testing.T) {
	engine, cache, _, _ := newEngine(t)
	video := cache.PutVideo(catalog.NewVideo("vid-1", "First", "thumb.jpg", 3*time.Minute))

	engine.ApplyVideoChange(backend.VideoChange{
		Video: backend.VideoState{
			ID:              "vid-1",
			Excluded:        true,
			ExclusionReason: catalog.ReasonWatched,
		},
		Originator: "other-client",
	})

	if !video.Excluded || !video.ExclusionReason.Has(catalog.ReasonWatched) {
		t.Fatalf("sync fields not merged: %+v", video)
	}
	if video.Title != "First" {
		t.Fatalf("display field clobbered: %q", video.Title)
	}
}

func TestApplyVideoChangeDiscardsOwnEcho(t *testing.T) {
	engine, cache, id, _ := newEngine(t)
	video := cache.PutVideo(catalog.NewVideo("vid-1", "First", "", time.Minute))

	engine.ApplyVideoChange(backend.VideoChange{
		Video:      backend.VideoState{ID: "vid-1", Excluded: true, ExclusionReason: catalog.ReasonManual},
		Originator: id.String(),
	})

	if video.Excluded {
		t.Fatal("echoed change must not be applied")
	}
}

func TestApplyVideoChangeEmptyOriginatorIsApplied(t *testing.T) {
	engine, cache, _, _ := newEngine(t)
	video := cache.PutVideo(catalog.NewVideo("vid-1", "First", "", time.Minute))

	engine.ApplyVideoChange(backend.VideoChange{
		Video: backend.VideoState{ID: "vid-1", Excluded: true, ExclusionReason: catalog.ReasonManual},
	})

	if !video.Excluded {
		t.Fatal("change without originator must be applied")
	}
}

func TestApplyVideoChangeIsIdempotent(t *testing.T) {
	engine, cache, _, _ := newEngine(t)
	video := cache.PutVideo(catalog.NewVideo("vid-1", "First", "", time.Minute))

	change := backend.VideoChange{
		Video:      backend.VideoState{ID: "vid-1", Excluded: true, ExclusionReason: catalog.ReasonWatched},
		Originator: "other",
	}
	engine.ApplyVideoChange(change)
	engine.ApplyVideoChange(change)

	if !video.Excluded || video.ExclusionReason != catalog.ReasonWatched {
		t.Fatalf("unexpected state after duplicate delivery: %+v", video)
	}
}

func TestApplyChannelChangeUpdatesWithoutEchoing(t *testing.T) {
	engine, cache, _, publisher := newEngine(t)
	ch := cache.PutChannel(catalog.NewChannel("chan-1", "pl-1"))
	engine.AttachChannel(ch)

	engine.ApplyChannelChange(backend.ChannelChange{
		Channel: backend.ChannelState{
			ID:          "chan-1",
			PlaylistKey: "pl-1",
			Name:        "Renamed",
			Filter:      "title ~ go",
		},
		Originator: "other",
	})

	if ch.Name() != "Renamed" || ch.Filter() != "title ~ go" {
		t.Fatalf("fields not merged: name=%q filter=%q", ch.Name(), ch.Filter())
	}
	// The bulk-update guard must keep the incoming merge from propagating.
	publisher.assertNone(t)
}

func TestApplyChannelChangeInsertsUnknownChannel(t *testing.T) {
	engine, cache, _, publisher := newEngine(t)

	engine.ApplyChannelChange(backend.ChannelChange{
		Channel: backend.ChannelState{
			ID:          "chan-2",
			PlaylistKey: "pl-2",
			Name:        "Fresh",
		},
		Originator: "other",
	})

	ch, ok := cache.Channel("chan-2")
	if !ok {
		t.Fatal("channel not inserted")
	}
	if ch.Name() != "Fresh" || ch.PlaylistKey != "pl-2" {
		t.Fatalf("unexpected channel state: %+v", ch)
	}
	publisher.assertNone(t)

	// The inserted channel is wired for propagation: a local edit pushes.
	ch.SetName("Edited locally")
	if got := publisher.next(t); got.Name != "Edited locally" {
		t.Fatalf("unexpected pushed state %+v", got)
	}
}

func TestApplyChannelChangeDeletionRemovesChannel(t *testing.T) {
	engine, cache, _, publisher := newEngine(t)
	ch := cache.PutChannel(catalog.NewChannel("chan-3", "pl-3"))
	engine.AttachChannel(ch)
	cache.SetList("chan-3", []catalog.VideoID{"vid-1"})

	engine.ApplyChannelChange(backend.ChannelChange{
		Channel:    backend.ChannelState{ID: "chan-3", MarkedForDeletion: true},
		Originator: "other",
	})

	if _, ok := cache.Channel("chan-3"); ok {
		t.Fatal("channel not removed")
	}
	if got := cache.List("chan-3"); len(got) != 0 {
		t.Fatalf("channel list not dropped: %v", got)
	}
	// Teardown must not emit an outgoing mutation.
	publisher.assertNone(t)
}

func TestApplyChannelChangeDiscardsOwnEcho(t *testing.T) {
	engine, cache, id, _ := newEngine(t)
	ch := cache.PutChannel(catalog.NewChannel("chan-4", "pl-4"))
	ch.BeginBulkUpdate()
	ch.SetName("Original")
	ch.EndBulkUpdate()
	engine.AttachChannel(ch)

	engine.ApplyChannelChange(backend.ChannelChange{
		Channel:    backend.ChannelState{ID: "chan-4", Name: "Echo"},
		Originator: id.String(),
	})

	if ch.Name() != "Original" {
		t.Fatalf("echoed change applied: %q", ch.Name())
	}
}

type flakyPublisher struct {
	*capturePublisher
	failures int
}

func (p *flakyPublisher) PushChannelUpdate(ctx context.Context, state backend.ChannelState) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("connection reset")
	}
	return p.capturePublisher.PushChannelUpdate(ctx, state)
}

func TestLocalEditRetriesTransientPushFailure(t *testing.T) {
	cache := catalog.NewCache()
	publisher := &flakyPublisher{capturePublisher: newCapturePublisher(), failures: 1}
	engine := reconcile.NewEngine(identity.New(), cache, publisher, services.RetryPolicy{Attempts: 2}, logging.NewNop())

	ch := cache.PutChannel(catalog.NewChannel("chan-6", "pl-6"))
	engine.AttachChannel(ch)

	ch.SetName("Retried")

	if got := publisher.next(t); got.Name != "Retried" {
		t.Fatalf("unexpected pushed state %+v", got)
	}
}

func TestLocalEditPropagatesFullState(t *testing.T) {
	engine, cache, _, publisher := newEngine(t)
	ch := cache.PutChannel(catalog.NewChannel("chan-5", "pl-5"))
	ch.BeginBulkUpdate()
	ch.SetName("Before")
	ch.SetFilter("duration > 60")
	ch.EndBulkUpdate()
	engine.AttachChannel(ch)

	ch.SetDescription("now with words")

	got := publisher.next(t)
	if got.ID != "chan-5" || got.Name != "Before" || got.Filter != "duration > 60" || got.Description != "now with words" {
		t.Fatalf("unexpected pushed state %+v", got)
	}
}
