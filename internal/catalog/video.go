package catalog

import (
	"strings"
	"time"
)

// VideoID identifies a video in the upstream catalog. Globally unique and
// stable across clients.
type VideoID string

// ExclusionReason records why a video is excluded from the watch list.
// Reasons are flags so a video can carry several at once.
type ExclusionReason uint8

const (
	ReasonNone        ExclusionReason = 0
	ReasonWatched     ExclusionReason = 1 << 0
	ReasonManual      ExclusionReason = 1 << 1
	ReasonFilterMatch ExclusionReason = 1 << 2
)

// Has reports whether flag is set.
func (r ExclusionReason) Has(flag ExclusionReason) bool {
	return r&flag != 0
}

// String renders the reason flags for logs and CLI output.
func (r ExclusionReason) String() string {
	if r == ReasonNone {
		return "none"
	}
	parts := make([]string, 0, 3)
	if r.Has(ReasonWatched) {
		parts = append(parts, "watched")
	}
	if r.Has(ReasonManual) {
		parts = append(parts, "manual")
	}
	if r.Has(ReasonFilterMatch) {
		parts = append(parts, "filter_match")
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// Video is the local copy of a catalog video. Display fields are populated
// once from a catalog lookup and never merged; Excluded and ExclusionReason
// are the sync-relevant subset overwritten by remote change events. Status is
// a transient progress label, never persisted.
type Video struct {
	ID        VideoID
	Title     string
	Thumbnail string
	Duration  time.Duration

	Excluded        bool
	ExclusionReason ExclusionReason
	Status          string
}

// NewVideo constructs a video with its immutable display fields.
func NewVideo(id VideoID, title, thumbnail string, duration time.Duration) *Video {
	return &Video{ID: id, Title: title, Thumbnail: thumbnail, Duration: duration}
}
