package backend

import (
	"strings"
	"time"

	"tubesync/internal/catalog"
)

// JobStatus is the backend-reported lifecycle of one download attempt.
type JobStatus string

const (
	JobInProgress JobStatus = "in_progress"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
)

// ParseJobStatus converts a string into a known JobStatus.
func ParseJobStatus(value string) (JobStatus, bool) {
	normalized := JobStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case JobInProgress, JobSucceeded, JobFailed:
		return normalized, true
	}
	return "", false
}

// Terminal reports whether the status ends a job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Job is one entry of the shared download queue. RequestID identifies a
// single attempt; a retried download gets a fresh RequestID for the same
// video, so the queue may hold several entries per VideoID.
type Job struct {
	RequestID string          `json:"request_id"`
	VideoID   catalog.VideoID `json:"video_id"`
	Progress  int             `json:"progress"`
	Status    JobStatus       `json:"status"`
	DateAdded time.Time       `json:"date_added"`
}

// VideoState is the sync-relevant subset of a video carried by change events.
// Display fields never travel on change events and are never merged.
type VideoState struct {
	ID              catalog.VideoID         `json:"video_id"`
	Excluded        bool                    `json:"excluded"`
	ExclusionReason catalog.ExclusionReason `json:"exclusion_reason"`
}

// VideoChange is a video change event delivered over the push channel.
type VideoChange struct {
	Video      VideoState `json:"video"`
	Originator string     `json:"originator"`
}

// ChannelState is the full mutable field set of a channel as carried by
// change events and channel updates.
type ChannelState struct {
	ID                catalog.ChannelID `json:"channel_id"`
	PlaylistKey       string            `json:"playlist_key"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Filter            string            `json:"filter"`
	MarkedForDeletion bool              `json:"marked_for_deletion"`
}

// ChannelChange is a channel change event delivered over the push channel.
type ChannelChange struct {
	Channel    ChannelState `json:"channel"`
	Originator string       `json:"originator"`
}

// JobEvent carries job state: queue insertions on the queue-changed topic,
// progress updates on the job-progress topic, and poll responses. Progress is
// absent until the backend starts reporting one.
type JobEvent struct {
	RequestID string          `json:"request_id"`
	VideoID   catalog.VideoID `json:"video_id"`
	Progress  *int            `json:"progress,omitempty"`
	Status    JobStatus       `json:"status"`
	Error     string          `json:"error,omitempty"`
	DateAdded time.Time       `json:"date_added"`
}

// Job converts the event into a queue entry.
func (e JobEvent) Job() Job {
	progress := 0
	if e.Progress != nil {
		progress = *e.Progress
	}
	return Job{
		RequestID: e.RequestID,
		VideoID:   e.VideoID,
		Progress:  progress,
		Status:    e.Status,
		DateAdded: e.DateAdded,
	}
}

// DismissEvent is a cross-device notification dismissal broadcast.
type DismissEvent struct {
	NotificationID string `json:"notification_id"`
	Originator     string `json:"originator"`
}

// VideoInfo is the catalog lookup result for a single video.
type VideoInfo struct {
	ID              catalog.VideoID `json:"video_id"`
	Title           string          `json:"title"`
	Thumbnail       string          `json:"thumbnail"`
	DurationSeconds int             `json:"duration_seconds"`
}

// Video builds the local entity from the lookup result.
func (v VideoInfo) Video() *catalog.Video {
	return catalog.NewVideo(v.ID, v.Title, v.Thumbnail, time.Duration(v.DurationSeconds)*time.Second)
}

// StartOptions tunes a download request.
type StartOptions struct {
	Quality   string `json:"quality,omitempty"`
	AudioOnly bool   `json:"audio_only,omitempty"`
}
