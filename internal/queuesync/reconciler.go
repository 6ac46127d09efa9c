package queuesync

import (
	"context"
	"log/slog"

	"tubesync/internal/backend"
	"tubesync/internal/catalog"
	"tubesync/internal/logging"
)

// Backend is the subset of the API client queue reconciliation needs.
type Backend interface {
	FetchQueue(ctx context.Context) ([]backend.Job, error)
	FindVideoByID(ctx context.Context, id catalog.VideoID) (*catalog.Video, error)
}

// TrackerManager attaches progress trackers to in-flight attempts the queue
// reveals.
type TrackerManager interface {
	Attach(videoID catalog.VideoID, requestID string, percent int)
}

// Reconciler rebuilds the displayed queue from backend snapshots and applies
// incremental insertions pushed over the queue-changed topic. Fetch and
// lookup failures are swallowed: the queue keeps rendering its last known
// state and the next snapshot or event heals it.
type Reconciler struct {
	backend  Backend
	cache    *catalog.Cache
	trackers TrackerManager
	log      *slog.Logger
}

// NewReconciler builds a queue reconciler over the shared entity cache.
func NewReconciler(b Backend, cache *catalog.Cache, trackers TrackerManager, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		backend:  b,
		cache:    cache,
		trackers: trackers,
		log:      logging.NewComponentLogger(logger, "queuesync"),
	}
}

// Dedupe collapses the queue to one entry per video. The server may hold
// several attempts for the same video; the one added last wins, and when two
// share the same DateAdded the entry later in server order wins. Winners keep
// their relative server order.
func Dedupe(jobs []backend.Job) []backend.Job {
	winners := make(map[catalog.VideoID]int, len(jobs))
	for i, job := range jobs {
		prev, seen := winners[job.VideoID]
		if !seen || !job.DateAdded.Before(jobs[prev].DateAdded) {
			winners[job.VideoID] = i
		}
	}
	out := make([]backend.Job, 0, len(winners))
	for i, job := range jobs {
		if winners[job.VideoID] == i {
			out = append(out, job)
		}
	}
	return out
}

// Refresh replaces the displayed queue with a fresh backend snapshot. Videos
// missing from the cache are looked up in the catalog; a video whose lookup
// fails is dropped from this rebuild and retried on the next one. A failed
// queue fetch leaves the current display untouched.
func (r *Reconciler) Refresh(ctx context.Context) {
	jobs, err := r.backend.FetchQueue(ctx)
	if err != nil {
		r.log.Warn("queue fetch failed, keeping current display", logging.Error(err))
		return
	}
	jobs = Dedupe(jobs)

	ids := make([]catalog.VideoID, 0, len(jobs))
	for _, job := range jobs {
		if !r.ensureVideo(ctx, job.VideoID) {
			continue
		}
		ids = append(ids, job.VideoID)
		if job.Status == backend.JobInProgress {
			r.trackers.Attach(job.VideoID, job.RequestID, job.Progress)
		}
	}
	r.cache.SetList(catalog.ListQueue, ids)
	r.log.Debug("queue rebuilt", logging.Int("entries", len(ids)))
}

// OnJobInserted applies a queue insertion event: the video moves to the front
// of the displayed queue, fetched from the catalog first if unknown. An
// in-flight attempt gets a tracker.
func (r *Reconciler) OnJobInserted(ctx context.Context, ev backend.JobEvent) {
	if !r.ensureVideo(ctx, ev.VideoID) {
		return
	}
	r.cache.InsertFront(catalog.ListQueue, ev.VideoID)
	if ev.Status == backend.JobInProgress {
		percent := 0
		if ev.Progress != nil {
			percent = *ev.Progress
		}
		r.trackers.Attach(ev.VideoID, ev.RequestID, percent)
	}
}

func (r *Reconciler) ensureVideo(ctx context.Context, id catalog.VideoID) bool {
	if _, ok := r.cache.Video(id); ok {
		return true
	}
	video, err := r.backend.FindVideoByID(ctx, id)
	if err != nil {
		r.log.Warn("catalog lookup failed, skipping queue entry",
			logging.String(logging.FieldVideoID, string(id)),
			logging.Error(err))
		return false
	}
	r.cache.PutVideo(video)
	return true
}
