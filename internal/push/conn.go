package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"tubesync/internal/logging"
	"tubesync/internal/services"
)

// Known group topics published by the backend.
const (
	TopicQueueChanged          = "queue-changed"
	TopicVideoChanged          = "video-changed"
	TopicChannelChanged        = "channel-changed"
	TopicJobProgress           = "job-progress"
	TopicNotificationDismissed = "notification-dismissed"
)

// Event is one delivered change notification. Delivery is at-least-once:
// events may repeat after a reconnect and carry no ordering guarantee across
// topics.
type Event struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Handler consumes events for one joined group.
type Handler func(Event)

type joinFrame struct {
	Join string `json:"join"`
}

// Conn wraps the persistent subscription to the backend event stream. Group
// membership is not preserved by the transport across a reconnect, so Conn
// records every join and replays all of them before announcing a reconnect;
// a missed rejoin silently stops delivery with no error.
type Conn struct {
	addr    string
	log     *slog.Logger
	backoff *Backoff
	dialer  func(ctx context.Context, addr string) (net.Conn, error)

	// Lifecycle hooks, set before Run.
	OnReconnecting func()
	OnReconnected  func()
	OnClosed       func()

	mu       sync.Mutex
	conn     net.Conn
	enc      *json.Encoder
	handlers map[string]Handler
	joined   []string
}

// New constructs an unconnected push channel for addr.
func New(addr string, logger *slog.Logger) *Conn {
	return &Conn{
		addr:     addr,
		log:      logging.NewComponentLogger(logger, "push"),
		backoff:  NewBackoff(time.Second, time.Minute),
		dialer:   defaultDial,
		handlers: make(map[string]Handler),
	}
}

func defaultDial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// Connect performs a single connect attempt and replays every recorded join.
// Callers wanting a retry budget wrap Connect themselves; Run reconnects
// internally with backoff once the initial connection stood.
func (c *Conn) Connect(ctx context.Context) error {
	conn, err := c.dialer(ctx, c.addr)
	if err != nil {
		return services.Wrap(services.ErrTransient, "push", "connect", "dial event stream", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.enc = json.NewEncoder(conn)
	joined := make([]string, len(c.joined))
	copy(joined, c.joined)
	enc := c.enc
	c.mu.Unlock()

	for _, topic := range joined {
		if err := enc.Encode(joinFrame{Join: topic}); err != nil {
			c.dropConn()
			return services.Wrap(services.ErrTransient, "push", "connect", "rejoin group "+topic, err)
		}
	}

	c.log.Debug("connected to event stream", logging.String("addr", c.addr), logging.Int("groups", len(joined)))
	return nil
}

// JoinGroup registers a handler for topic, delivered once per event. When the
// connection is up the join frame is sent immediately; otherwise it is sent on
// the next (re)connect.
func (c *Conn) JoinGroup(topic string, handler Handler) error {
	c.mu.Lock()
	if _, exists := c.handlers[topic]; !exists {
		c.joined = append(c.joined, topic)
	}
	c.handlers[topic] = handler
	enc := c.enc
	c.mu.Unlock()

	if enc == nil {
		return nil
	}
	if err := enc.Encode(joinFrame{Join: topic}); err != nil {
		return services.Wrap(services.ErrTransient, "push", "join", "join group "+topic, err)
	}
	return nil
}

// Run dispatches events until ctx is cancelled, reconnecting with backoff on
// stream interruption. Missed events are not buffered; the engine repairs
// gaps by re-fetching snapshots after OnReconnected.
func (c *Conn) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.dropConn()
	}()

	for {
		conn := c.current()
		if conn == nil {
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		dec := json.NewDecoder(conn)
		for {
			var ev Event
			if err := dec.Decode(&ev); err != nil {
				if ctx.Err() != nil {
					c.fire(c.OnClosed)
					return ctx.Err()
				}
				c.log.Warn("event stream interrupted", logging.Error(err))
				c.dropConn()
				break
			}
			c.dispatch(ev)
		}

		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

// Close tears the connection down and fires OnClosed.
func (c *Conn) Close() error {
	c.dropConn()
	c.fire(c.OnClosed)
	return nil
}

// Joined returns the topics joined so far, in join order.
func (c *Conn) Joined() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.joined))
	copy(out, c.joined)
	return out
}

// Connected reports whether the subscription is currently established.
func (c *Conn) Connected() bool {
	return c.current() != nil
}

func (c *Conn) reconnect(ctx context.Context) error {
	c.fire(c.OnReconnecting)
	for {
		if ctx.Err() != nil {
			c.fire(c.OnClosed)
			return ctx.Err()
		}
		if err := c.Connect(ctx); err != nil {
			delay := c.backoff.Next()
			c.log.Warn("reconnect failed", logging.Error(err), logging.Duration("retry_in", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				c.fire(c.OnClosed)
				return ctx.Err()
			}
			continue
		}
		c.backoff.Reset()
		// Every group was re-joined inside Connect; only now is delivery
		// expected again.
		c.fire(c.OnReconnected)
		return nil
	}
}

func (c *Conn) dispatch(ev Event) {
	c.mu.Lock()
	handler := c.handlers[ev.Topic]
	c.mu.Unlock()
	if handler == nil {
		c.log.Debug("event for unjoined group dropped", logging.String(logging.FieldGroup, ev.Topic))
		return
	}
	handler(ev)
}

func (c *Conn) current() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Conn) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.enc = nil
	}
}

func (c *Conn) fire(hook func()) {
	if hook != nil {
		hook()
	}
}
