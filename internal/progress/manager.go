package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"tubesync/internal/backend"
	"tubesync/internal/catalog"
	"tubesync/internal/logging"
)

// State is the lifecycle of one download tracker.
type State string

const (
	StateRequested State = "requested"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Backend is the subset of the API client the manager drives jobs through.
type Backend interface {
	StartJob(ctx context.Context, videoID catalog.VideoID, opts backend.StartOptions) (string, error)
	CancelJob(ctx context.Context, requestID string) error
	JobStatus(ctx context.Context, requestID string) (backend.JobEvent, error)
}

// ExclusionStore persists the watched flag of completed downloads.
type ExclusionStore interface {
	UpsertExclusion(ctx context.Context, videoID catalog.VideoID, reason catalog.ExclusionReason) error
}

// Hooks are the manager's outward notifications. Changed fires after any
// tracker starts, advances, or ends; Failed fires once per failed attempt
// with a human-readable message.
type Hooks struct {
	Changed func()
	Failed  func(videoID catalog.VideoID, message string)
}

// Snapshot is the observable state of one active tracker.
type Snapshot struct {
	VideoID   catalog.VideoID
	RequestID string
	State     State
	Percent   int
}

type tracker struct {
	videoID   catalog.VideoID
	requestID string
	state     State
	percent   int
	cancel    context.CancelFunc
	done      bool
}

// Manager owns at most one tracker per video. A tracker polls the backend for
// the attempt it follows and mirrors progress into the video's transient
// Status field; push events short-circuit the next poll. The first poll error
// ends the tracker.
type Manager struct {
	backend  Backend
	cache    *catalog.Cache
	store    ExclusionStore
	interval time.Duration
	hooks    Hooks
	log      *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	trackers map[catalog.VideoID]*tracker
	wg       sync.WaitGroup
}

// NewManager builds a progress manager. interval is the poll cadence.
func NewManager(b Backend, cache *catalog.Cache, store ExclusionStore, interval time.Duration, hooks Hooks, logger *slog.Logger) *Manager {
	return &Manager{
		backend:  b,
		cache:    cache,
		store:    store,
		interval: interval,
		hooks:    hooks,
		log:      logging.NewComponentLogger(logger, "progress"),
		ctx:      context.Background(),
		trackers: make(map[catalog.VideoID]*tracker),
	}
}

// Start binds the lifetime of all tracker goroutines to ctx.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
}

// Wait blocks until every tracker goroutine has exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Toggle starts a download for the video, or cancels the attempt already
// tracked for it. Requesting a download twice is how the user cancels.
func (m *Manager) Toggle(ctx context.Context, videoID catalog.VideoID, opts backend.StartOptions) error {
	m.mu.Lock()
	existing, tracked := m.trackers[videoID]
	m.mu.Unlock()

	if tracked {
		m.log.Info("cancelling tracked download",
			logging.String(logging.FieldVideoID, string(videoID)),
			logging.String(logging.FieldRequestID, existing.requestID))
		if err := m.backend.CancelJob(ctx, existing.requestID); err != nil {
			return fmt.Errorf("cancel job %s: %w", existing.requestID, err)
		}
		m.finish(existing, StateCancelled, "")
		return nil
	}

	requestID, err := m.backend.StartJob(ctx, videoID, opts)
	if err != nil {
		return fmt.Errorf("start job for %s: %w", videoID, err)
	}
	m.Attach(videoID, requestID, 0)
	return nil
}

// Attach begins tracking an attempt, unless the video already has a tracker.
// Queue reconciliation attaches trackers for in-flight jobs it discovers.
func (m *Manager) Attach(videoID catalog.VideoID, requestID string, percent int) {
	m.mu.Lock()
	if _, tracked := m.trackers[videoID]; tracked {
		m.mu.Unlock()
		return
	}
	tctx, cancel := context.WithCancel(m.ctx)
	tr := &tracker{
		videoID:   videoID,
		requestID: requestID,
		state:     StatePolling,
		percent:   percent,
		cancel:    cancel,
	}
	m.trackers[videoID] = tr
	m.wg.Add(1)
	m.mu.Unlock()

	m.setStatus(videoID, statusText(percent))
	m.changed()

	go func() {
		defer m.wg.Done()
		m.poll(tctx, tr)
	}()
}

// Tracked reports whether the video currently has a tracker.
func (m *Manager) Tracked(videoID catalog.VideoID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.trackers[videoID]
	return ok
}

// Active returns a snapshot of every live tracker, ordered by video id.
func (m *Manager) Active() []Snapshot {
	m.mu.Lock()
	out := make([]Snapshot, 0, len(m.trackers))
	for _, tr := range m.trackers {
		out = append(out, Snapshot{
			VideoID:   tr.videoID,
			RequestID: tr.requestID,
			State:     tr.state,
			Percent:   tr.percent,
		})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

// HandleEvent applies a pushed job event to the matching tracker. Events for
// untracked in-flight attempts attach a tracker; terminal events finalize.
func (m *Manager) HandleEvent(ev backend.JobEvent) {
	m.mu.Lock()
	tr, tracked := m.trackers[ev.VideoID]
	if tracked && tr.requestID != ev.RequestID {
		// A different attempt for the same video; the tracked one wins.
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if !tracked {
		if ev.Status == backend.JobInProgress {
			percent := 0
			if ev.Progress != nil {
				percent = *ev.Progress
			}
			m.Attach(ev.VideoID, ev.RequestID, percent)
		}
		return
	}

	m.apply(tr, ev)
}

func (m *Manager) poll(ctx context.Context, tr *tracker) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev, err := m.backend.JobStatus(ctx, tr.requestID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.log.Warn("status poll failed",
					logging.String(logging.FieldVideoID, string(tr.videoID)),
					logging.String(logging.FieldRequestID, tr.requestID),
					logging.Error(err))
				m.fail(tr, "status check failed")
				return
			}
			m.apply(tr, ev)
			m.mu.Lock()
			finished := tr.done
			m.mu.Unlock()
			if finished {
				return
			}
		}
	}
}

func (m *Manager) apply(tr *tracker, ev backend.JobEvent) {
	switch ev.Status {
	case backend.JobSucceeded:
		m.succeed(tr)
	case backend.JobFailed:
		message := ev.Error
		if message == "" {
			message = "download failed"
		}
		m.fail(tr, message)
	default:
		if ev.Progress == nil {
			return
		}
		m.mu.Lock()
		if tr.done || tr.percent == *ev.Progress {
			m.mu.Unlock()
			return
		}
		tr.percent = *ev.Progress
		percent := tr.percent
		m.mu.Unlock()

		m.setStatus(tr.videoID, statusText(percent))
		m.changed()
	}
}

func (m *Manager) succeed(tr *tracker) {
	if !m.detach(tr, StateSucceeded) {
		return
	}
	m.cache.MutateVideo(tr.videoID, func(v *catalog.Video) {
		v.Excluded = true
		v.ExclusionReason |= catalog.ReasonWatched
		v.Status = ""
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.UpsertExclusion(ctx, tr.videoID, catalog.ReasonWatched); err != nil {
		m.log.Warn("persist exclusion failed",
			logging.String(logging.FieldVideoID, string(tr.videoID)),
			logging.Error(err))
	}
	m.log.Info("download complete", logging.String(logging.FieldVideoID, string(tr.videoID)))
	m.changed()
}

func (m *Manager) fail(tr *tracker, message string) {
	if !m.detach(tr, StateFailed) {
		return
	}
	m.setStatus(tr.videoID, "")
	m.log.Warn("download failed",
		logging.String(logging.FieldVideoID, string(tr.videoID)),
		logging.String("reason", message))
	if m.hooks.Failed != nil {
		m.hooks.Failed(tr.videoID, message)
	}
	m.changed()
}

func (m *Manager) finish(tr *tracker, state State, status string) {
	if !m.detach(tr, state) {
		return
	}
	m.setStatus(tr.videoID, status)
	m.changed()
}

// detach removes the tracker from the active set exactly once.
func (m *Manager) detach(tr *tracker, state State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tr.done {
		return false
	}
	tr.done = true
	tr.state = state
	tr.cancel()
	delete(m.trackers, tr.videoID)
	return true
}

func (m *Manager) setStatus(videoID catalog.VideoID, status string) {
	m.cache.MutateVideo(videoID, func(v *catalog.Video) {
		v.Status = status
	})
}

func (m *Manager) changed() {
	if m.hooks.Changed != nil {
		m.hooks.Changed()
	}
}

func statusText(percent int) string {
	if percent <= 0 {
		return "downloading"
	}
	return fmt.Sprintf("downloading %d%%", percent)
}
