package catalog_test

import (
	"testing"
	"time"

	"tubesync/internal/catalog"
)

func TestPutVideoKeepsSingleInstance(t *testing.T) {
	cache := catalog.NewCache()
	first := cache.PutVideo(catalog.NewVideo("vid-1", "First", "", time.Minute))
	second := cache.PutVideo(catalog.NewVideo("vid-1", "Duplicate", "", time.Minute))
	if first != second {
		t.Fatal("expected one live instance per video identity")
	}
	if got, _ := cache.Video("vid-1"); got.Title != "First" {
		t.Fatalf("expected original display fields to survive, got %q", got.Title)
	}
}

func TestMutateVideoNotifiesObserver(t *testing.T) {
	cache := catalog.NewCache()
	cache.PutVideo(catalog.NewVideo("vid-1", "First", "", 0))

	var observed *catalog.Video
	cache.OnVideoChanged(func(v *catalog.Video) { observed = v })

	ok := cache.MutateVideo("vid-1", func(v *catalog.Video) {
		v.Excluded = true
		v.ExclusionReason = catalog.ReasonWatched
	})
	if !ok {
		t.Fatal("expected mutation to find the video")
	}
	if observed == nil || !observed.Excluded || !observed.ExclusionReason.Has(catalog.ReasonWatched) {
		t.Fatalf("observer saw wrong state: %+v", observed)
	}
	if cache.MutateVideo("missing", func(*catalog.Video) {}) {
		t.Fatal("expected mutation of unknown video to report false")
	}
}

func TestRemoveChannelDetachesHookAndList(t *testing.T) {
	cache := catalog.NewCache()
	ch := cache.PutChannel(catalog.NewChannel("chan-1", "PL1"))

	fired := 0
	ch.OnChanged(func(*catalog.Channel) { fired++ })
	cache.SetList("chan-1", []catalog.VideoID{"vid-1"})

	var removed *catalog.Channel
	cache.OnChannelRemoved(func(c *catalog.Channel) { removed = c })

	if !cache.RemoveChannel("chan-1") {
		t.Fatal("expected removal to succeed")
	}
	if removed != ch {
		t.Fatal("expected removal observer to see the channel")
	}
	if len(cache.List("chan-1")) != 0 {
		t.Fatal("expected channel list to be dropped")
	}
	// A late mutation on the removed instance must not propagate.
	ch.SetName("ghost")
	if fired != 0 {
		t.Fatalf("expected no propagation after removal, hook fired %d times", fired)
	}
}

func TestBulkUpdateSuppressesPropagation(t *testing.T) {
	ch := catalog.NewChannel("chan-1", "PL1")
	fired := 0
	ch.OnChanged(func(*catalog.Channel) { fired++ })

	ch.BeginBulkUpdate()
	ch.SetName("Remote Name")
	ch.SetDescription("Remote description")
	ch.SetFilter("quality>720")
	ch.EndBulkUpdate()
	if fired != 0 {
		t.Fatalf("expected bulk update to suppress propagation, hook fired %d times", fired)
	}

	ch.SetName("Local Edit")
	if fired != 1 {
		t.Fatalf("expected local edit to propagate once, hook fired %d times", fired)
	}
}

func TestBulkUpdateNests(t *testing.T) {
	ch := catalog.NewChannel("chan-1", "PL1")
	fired := 0
	ch.OnChanged(func(*catalog.Channel) { fired++ })

	ch.BeginBulkUpdate()
	ch.BeginBulkUpdate()
	ch.EndBulkUpdate()
	ch.SetName("still suppressed")
	ch.EndBulkUpdate()
	ch.SetName("visible")
	if fired != 1 {
		t.Fatalf("expected exactly one propagation after nesting, got %d", fired)
	}
}

func TestSetterSkipsNoopAssignments(t *testing.T) {
	ch := catalog.NewChannel("chan-1", "PL1")
	fired := 0
	ch.OnChanged(func(*catalog.Channel) { fired++ })

	ch.SetName("Same")
	ch.SetName("Same")
	if fired != 1 {
		t.Fatalf("expected identical assignment to be a no-op, hook fired %d times", fired)
	}
}

func TestListOrdering(t *testing.T) {
	cache := catalog.NewCache()
	cache.SetList(catalog.ListQueue, []catalog.VideoID{"a", "b", "c"})

	if !cache.MoveToFront(catalog.ListQueue, "c") {
		t.Fatal("expected move of present id to succeed")
	}
	if got := cache.List(catalog.ListQueue); got[0] != "c" || len(got) != 3 {
		t.Fatalf("unexpected order after move: %v", got)
	}
	if cache.MoveToFront(catalog.ListQueue, "zz") {
		t.Fatal("expected move of absent id to fail")
	}

	cache.InsertFront(catalog.ListQueue, "new")
	got := cache.List(catalog.ListQueue)
	if got[0] != "new" || len(got) != 4 {
		t.Fatalf("unexpected order after insert: %v", got)
	}

	cache.InsertFront(catalog.ListQueue, "b")
	got = cache.List(catalog.ListQueue)
	if got[0] != "b" || len(got) != 4 {
		t.Fatalf("expected insert of existing id to dedupe: %v", got)
	}
}

func TestExclusionReasonFlags(t *testing.T) {
	r := catalog.ReasonWatched | catalog.ReasonFilterMatch
	if !r.Has(catalog.ReasonWatched) || !r.Has(catalog.ReasonFilterMatch) || r.Has(catalog.ReasonManual) {
		t.Fatalf("unexpected flag state: %v", r)
	}
	if r.String() != "watched|filter_match" {
		t.Fatalf("unexpected rendering: %q", r.String())
	}
	if catalog.ReasonNone.String() != "none" {
		t.Fatalf("unexpected rendering for none: %q", catalog.ReasonNone.String())
	}
}
