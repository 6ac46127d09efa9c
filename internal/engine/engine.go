package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"tubesync/internal/backend"
	"tubesync/internal/catalog"
	"tubesync/internal/config"
	"tubesync/internal/identity"
	"tubesync/internal/ipc"
	"tubesync/internal/logging"
	"tubesync/internal/notify"
	"tubesync/internal/progress"
	"tubesync/internal/push"
	"tubesync/internal/queuesync"
	"tubesync/internal/reconcile"
	"tubesync/internal/services"
	"tubesync/internal/store"
)

// Engine wires the sync client together: push channel, reconciliation,
// queue display, progress tracking, notifications, and the IPC surface.
type Engine struct {
	cfg    *config.Config
	log    *slog.Logger
	id     identity.ClientID
	cache  *catalog.Cache
	store  *store.Store
	client *backend.Client
	conn   *push.Conn

	reconciler *reconcile.Engine
	queue      *queuesync.Reconciler
	progress   *progress.Manager
	aggregator *notify.Aggregator
}

// New assembles an engine from configuration. The exclusion store is opened
// here; Run owns its lifetime from then on.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	id := identity.New()
	cache := catalog.NewCache()

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open exclusion store: %w", err)
	}

	client := backend.NewClient(cfg, id, logger)

	// The aggregator consumes the manager's snapshots, and the manager's
	// hooks drive the aggregator; close the cycle through a late-bound
	// pointer.
	var aggregator *notify.Aggregator
	hooks := progress.Hooks{
		Changed: func() {
			if aggregator != nil {
				aggregator.Update()
			}
		},
		Failed: func(videoID catalog.VideoID, message string) {
			if aggregator != nil {
				aggregator.Failed(videoID, message)
			}
		},
	}
	manager := progress.NewManager(client, cache, st, cfg.PollInterval(), hooks, logger)
	aggregator = notify.NewAggregator(manager, cache, notify.NewSink(cfg), client,
		cfg.Notifications.DismissBroadcast, id, logger)

	e := &Engine{
		cfg:        cfg,
		log:        logging.NewComponentLogger(logger, "engine"),
		id:         id,
		cache:      cache,
		store:      st,
		client:     client,
		conn:       push.New(cfg.Server.PushAddr, logger),
		reconciler: reconcile.NewEngine(id, cache, client, services.RetryPolicy{
			Attempts: cfg.Sync.RetryAttempts,
			Delay:    cfg.RetryDelay(),
		}, logger),
		queue:      queuesync.NewReconciler(client, cache, manager, logger),
		progress:   manager,
		aggregator: aggregator,
	}
	return e, nil
}

// ClientID returns the process identity.
func (e *Engine) ClientID() identity.ClientID {
	return e.id
}

// Run connects, joins every push group, restores persisted exclusions, and
// serves until the context is canceled. The initial connection is retried up
// to the configured budget; exhausting it is unrecoverable.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		if err := e.store.Close(); err != nil {
			e.log.Warn("close exclusion store", logging.Error(err))
		}
	}()

	if err := e.joinGroups(ctx); err != nil {
		return err
	}
	e.conn.OnReconnected = func() {
		// Every group is rejoined by now; refetch the snapshot to cover
		// events missed while disconnected.
		e.queue.Refresh(ctx)
	}

	policy := services.RetryPolicy{Attempts: e.cfg.Sync.ConnectAttempts, Delay: e.cfg.ConnectDelay()}
	if err := services.Retry(ctx, policy, e.conn.Connect); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return services.Wrap(services.ErrUnrecoverable, "engine", "connect",
			fmt.Sprintf("push channel unreachable after %d attempts", policy.Attempts), err)
	}
	e.log.Info("connected", logging.String("push_addr", e.cfg.Server.PushAddr))

	e.progress.Start(ctx)
	e.queue.Refresh(ctx)
	e.restoreExclusions(ctx)

	server, err := ipc.NewServer(ctx, e.cfg.SocketPath(), e, e.log)
	if err != nil {
		return fmt.Errorf("start ipc server: %w", err)
	}
	server.Serve()
	defer server.Close()

	err = e.conn.Run(ctx)
	e.progress.Wait()
	return err
}

func (e *Engine) joinGroups(ctx context.Context) error {
	joins := []struct {
		topic   string
		handler push.Handler
	}{
		{push.TopicVideoChanged, func(ev push.Event) {
			var change backend.VideoChange
			if !e.decode(ev, &change) {
				return
			}
			e.reconciler.ApplyVideoChange(change)
		}},
		{push.TopicChannelChanged, func(ev push.Event) {
			var change backend.ChannelChange
			if !e.decode(ev, &change) {
				return
			}
			e.reconciler.ApplyChannelChange(change)
		}},
		{push.TopicQueueChanged, func(ev push.Event) {
			var job backend.JobEvent
			if !e.decode(ev, &job) {
				return
			}
			e.queue.OnJobInserted(ctx, job)
		}},
		{push.TopicJobProgress, func(ev push.Event) {
			var job backend.JobEvent
			if !e.decode(ev, &job) {
				return
			}
			e.progress.HandleEvent(job)
		}},
		{push.TopicNotificationDismissed, func(ev push.Event) {
			var dismiss backend.DismissEvent
			if !e.decode(ev, &dismiss) {
				return
			}
			e.aggregator.HandleDismiss(dismiss)
		}},
	}
	for _, join := range joins {
		if err := e.conn.JoinGroup(join.topic, join.handler); err != nil {
			return fmt.Errorf("join group %s: %w", join.topic, err)
		}
	}
	return nil
}

func (e *Engine) decode(ev push.Event, out any) bool {
	if err := json.Unmarshal(ev.Payload, out); err != nil {
		e.log.Warn("malformed event payload",
			logging.String("topic", ev.Topic),
			logging.Error(err))
		return false
	}
	return true
}

// restoreExclusions re-applies persisted exclusions to the cached videos so
// local state survives a restart even before change events arrive.
func (e *Engine) restoreExclusions(ctx context.Context) {
	records, err := e.store.Exclusions(ctx)
	if err != nil {
		e.log.Warn("restore exclusions failed", logging.Error(err))
		return
	}
	restored := 0
	for _, record := range records {
		applied := e.cache.MutateVideo(record.VideoID, func(v *catalog.Video) {
			v.Excluded = true
			v.ExclusionReason |= record.Reason
		})
		if applied {
			restored++
		}
	}
	if restored > 0 {
		e.log.Info("restored exclusions", logging.Int("count", restored))
	}
}

// Status implements the IPC controller surface.
func (e *Engine) Status(context.Context) ipc.StatusResponse {
	return ipc.StatusResponse{
		Running:         true,
		Connected:       e.conn.Connected(),
		ClientID:        e.id.String(),
		ActiveDownloads: len(e.progress.Active()),
		QueueLength:     len(e.cache.List(catalog.ListQueue)),
		DatabasePath:    e.store.Path(),
		PID:             os.Getpid(),
	}
}

// Queue implements the IPC controller surface.
func (e *Engine) Queue(context.Context) []ipc.QueueEntry {
	ids := e.cache.List(catalog.ListQueue)
	entries := make([]ipc.QueueEntry, 0, len(ids))
	for _, id := range ids {
		video, ok := e.cache.Video(id)
		if !ok {
			continue
		}
		entries = append(entries, ipc.QueueEntry{
			VideoID:         string(video.ID),
			Title:           video.Title,
			Status:          video.Status,
			Excluded:        video.Excluded,
			ExclusionReason: video.ExclusionReason.String(),
			DurationSeconds: int(video.Duration.Seconds()),
		})
	}
	return entries
}

// Toggle implements the IPC controller surface.
func (e *Engine) Toggle(ctx context.Context, videoID string) (string, error) {
	id := catalog.VideoID(videoID)
	tracked := e.progress.Tracked(id)
	if err := e.progress.Toggle(ctx, id, backend.StartOptions{}); err != nil {
		return "", err
	}
	if tracked {
		return "download cancelled", nil
	}
	return "download started", nil
}

// Dismiss implements the IPC controller surface.
func (e *Engine) Dismiss(ctx context.Context) error {
	return e.aggregator.Dismiss(ctx)
}
