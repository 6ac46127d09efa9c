package ipc

// StatusRequest fetches client status.
type StatusRequest struct{}

// StatusResponse reports connection and sync state.
type StatusResponse struct {
	Running         bool   `json:"running"`
	Connected       bool   `json:"connected"`
	ClientID        string `json:"client_id"`
	ActiveDownloads int    `json:"active_downloads"`
	QueueLength     int    `json:"queue_length"`
	DatabasePath    string `json:"database_path"`
	PID             int    `json:"pid"`
}

// QueueEntry is one row of the displayed download queue.
type QueueEntry struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	Excluded        bool   `json:"excluded"`
	ExclusionReason string `json:"exclusion_reason"`
	DurationSeconds int    `json:"duration_seconds"`
}

// QueueRequest fetches the displayed queue.
type QueueRequest struct{}

// QueueResponse contains the displayed queue, front first.
type QueueResponse struct {
	Entries []QueueEntry `json:"entries"`
}

// ToggleRequest starts a download for the video, or cancels the one already
// tracked for it.
type ToggleRequest struct {
	VideoID string `json:"video_id"`
}

// ToggleResponse reports the outcome of a toggle.
type ToggleResponse struct {
	Message string `json:"message"`
}

// DismissRequest dismisses the download notification.
type DismissRequest struct{}

// DismissResponse indicates dismiss result.
type DismissResponse struct {
	Dismissed bool `json:"dismissed"`
}
