package engine_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tubesync/internal/backend"
	"tubesync/internal/catalog"
	"tubesync/internal/config"
	"tubesync/internal/engine"
	"tubesync/internal/logging"
	"tubesync/internal/push"
)

// fakePushServer accepts one push connection at a time, records join frames,
// and lets tests emit events.
type fakePushServer struct {
	listener net.Listener

	mu     sync.Mutex
	conn   net.Conn
	joined []string
	ready  chan struct{}
}

func newFakePushServer(t *testing.T) *fakePushServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fs := &fakePushServer{listener: listener, ready: make(chan struct{})}
	go fs.serve()
	t.Cleanup(func() { _ = listener.Close() })
	return fs
}

func (fs *fakePushServer) serve() {
	for {
		conn, err := fs.listener.Accept()
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conn = conn
		fs.mu.Unlock()
		go fs.readJoins(conn)
	}
}

func (fs *fakePushServer) readJoins(conn net.Conn) {
	dec := json.NewDecoder(conn)
	for {
		var frame struct {
			Join string `json:"join"`
		}
		if err := dec.Decode(&frame); err != nil {
			return
		}
		fs.mu.Lock()
		fs.joined = append(fs.joined, frame.Join)
		if len(fs.joined) == 5 {
			close(fs.ready)
		}
		fs.mu.Unlock()
	}
}

func (fs *fakePushServer) waitReady(t *testing.T) {
	t.Helper()
	select {
	case <-fs.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for all joins")
	}
}

func (fs *fakePushServer) emit(t *testing.T, topic string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	fs.mu.Lock()
	conn := fs.conn
	fs.mu.Unlock()
	if conn == nil {
		t.Fatal("no push connection yet")
	}
	if err := json.NewEncoder(conn).Encode(push.Event{Topic: topic, Payload: raw}); err != nil {
		t.Fatalf("emit event: %v", err)
	}
}

func (fs *fakePushServer) addr() string { return fs.listener.Addr().String() }

func newBackendServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/queue", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]backend.Job{})
	})
	mux.HandleFunc("/api/videos/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/videos/"):]
		_ = json.NewEncoder(w).Encode(backend.VideoInfo{
			ID:              catalog.VideoID(id),
			Title:           "Video " + id,
			DurationSeconds: 120,
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func startEngine(t *testing.T) (*engine.Engine, *fakePushServer) {
	t.Helper()
	pushServer := newFakePushServer(t)
	api := newBackendServer(t)

	cfg := config.Default()
	cfg.Server.BaseURL = api.URL
	cfg.Server.PushAddr = pushServer.addr()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Sync.PollIntervalMS = 10
	cfg.Sync.ConnectAttempts = 3

	e, err := engine.New(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("engine did not stop")
		}
	})

	pushServer.waitReady(t)
	return e, pushServer
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunJoinsEveryGroup(t *testing.T) {
	_, pushServer := startEngine(t)

	pushServer.mu.Lock()
	joined := make(map[string]bool, len(pushServer.joined))
	for _, topic := range pushServer.joined {
		joined[topic] = true
	}
	pushServer.mu.Unlock()

	for _, topic := range []string{
		push.TopicQueueChanged,
		push.TopicVideoChanged,
		push.TopicChannelChanged,
		push.TopicJobProgress,
		push.TopicNotificationDismissed,
	} {
		if !joined[topic] {
			t.Errorf("group %s not joined", topic)
		}
	}
}

func TestStatusReportsConnection(t *testing.T) {
	e, _ := startEngine(t)

	status := e.Status(context.Background())
	if !status.Running || !status.Connected {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.ClientID == "" {
		t.Fatal("status must carry the client identity")
	}
}

func TestQueueInsertionEventPopulatesDisplay(t *testing.T) {
	e, pushServer := startEngine(t)

	pushServer.emit(t, push.TopicQueueChanged, backend.JobEvent{
		RequestID: "req-1",
		VideoID:   "vid-1",
		Status:    backend.JobSucceeded,
		DateAdded: time.Now().UTC(),
	})

	waitFor(t, "queue entry", func() bool {
		return len(e.Queue(context.Background())) == 1
	})
	entries := e.Queue(context.Background())
	if entries[0].VideoID != "vid-1" || entries[0].Title != "Video vid-1" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestVideoChangeEventMergesIntoQueueEntry(t *testing.T) {
	e, pushServer := startEngine(t)

	pushServer.emit(t, push.TopicQueueChanged, backend.JobEvent{
		RequestID: "req-1",
		VideoID:   "vid-1",
		Status:    backend.JobSucceeded,
		DateAdded: time.Now().UTC(),
	})
	waitFor(t, "queue entry", func() bool {
		return len(e.Queue(context.Background())) == 1
	})

	pushServer.emit(t, push.TopicVideoChanged, map[string]any{
		"video": map[string]any{
			"video_id":         "vid-1",
			"excluded":         true,
			"exclusion_reason": 1,
		},
		"originator": "another-device",
	})

	waitFor(t, "exclusion merge", func() bool {
		entries := e.Queue(context.Background())
		return len(entries) == 1 && entries[0].Excluded
	})
	entries := e.Queue(context.Background())
	if entries[0].ExclusionReason != "watched" {
		t.Fatalf("unexpected reason %q", entries[0].ExclusionReason)
	}
}
