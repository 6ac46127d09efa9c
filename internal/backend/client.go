package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tubesync/internal/catalog"
	"tubesync/internal/config"
	"tubesync/internal/identity"
	"tubesync/internal/logging"
	"tubesync/internal/services"
)

const userAgent = "tubesync/0.1.0"

// Client talks to the backend HTTP API. Every mutation is stamped with the
// local client identity so the backend echoes it back on change events.
type Client struct {
	baseURL  string
	token    string
	clientID identity.ClientID
	http     *http.Client
	log      *slog.Logger
}

// NewClient builds an API client from configuration.
func NewClient(cfg *config.Config, id identity.ClientID, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  cfg.Server.BaseURL,
		token:    cfg.Server.Token,
		clientID: id,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      logging.NewComponentLogger(logger, "backend"),
	}
}

// FetchQueue retrieves the full shared queue. The server does not guarantee
// uniqueness by VideoID; de-duplication is the caller's responsibility.
func (c *Client) FetchQueue(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := c.do(ctx, http.MethodGet, "/api/queue", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// StartJob asks the backend to begin downloading a video and returns the
// RequestID of the new attempt.
func (c *Client) StartJob(ctx context.Context, videoID catalog.VideoID, opts StartOptions) (string, error) {
	body := struct {
		VideoID catalog.VideoID `json:"video_id"`
		StartOptions
	}{VideoID: videoID, StartOptions: opts}
	var resp struct {
		RequestID string `json:"request_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/jobs", body, &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

// CancelJob asks the backend to abandon an in-flight download attempt.
func (c *Client) CancelJob(ctx context.Context, requestID string) error {
	path := "/api/jobs/" + url.PathEscape(requestID) + "/cancel"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// JobStatus polls the state of one download attempt.
func (c *Client) JobStatus(ctx context.Context, requestID string) (JobEvent, error) {
	var ev JobEvent
	path := "/api/jobs/" + url.PathEscape(requestID)
	if err := c.do(ctx, http.MethodGet, path, nil, &ev); err != nil {
		return JobEvent{}, err
	}
	return ev, nil
}

// NotifyDismiss broadcasts a notification dismissal tagged with this client's
// identity so other devices can dismiss without re-broadcasting.
func (c *Client) NotifyDismiss(ctx context.Context, notificationID string) error {
	body := DismissEvent{NotificationID: notificationID, Originator: c.clientID.String()}
	return c.do(ctx, http.MethodPost, "/api/notifications/dismiss", body, nil)
}

// PushChannelUpdate publishes a locally-edited channel so other clients
// receive the change event.
func (c *Client) PushChannelUpdate(ctx context.Context, state ChannelState) error {
	path := "/api/channels/" + url.PathEscape(string(state.ID))
	return c.do(ctx, http.MethodPut, path, state, nil)
}

// FindVideoByID looks up display metadata for a video in the upstream catalog.
func (c *Client) FindVideoByID(ctx context.Context, id catalog.VideoID) (*catalog.Video, error) {
	var info VideoInfo
	path := "/api/videos/" + url.PathEscape(string(id))
	if err := c.do(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	return info.Video(), nil
}

// FindChannelByHandle resolves a channel handle in the upstream catalog.
func (c *Client) FindChannelByHandle(ctx context.Context, handle string) (ChannelState, error) {
	var state ChannelState
	path := "/api/channels/lookup?handle=" + url.QueryEscape(handle)
	if err := c.do(ctx, http.MethodGet, path, nil, &state); err != nil {
		return ChannelState{}, err
	}
	return state, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, "backend", method+" "+path, "encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return services.Wrap(services.ErrValidation, "backend", method+" "+path, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Client-ID", c.clientID.String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "backend", method+" "+path, "send request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "backend", method+" "+path, "", nil)
	case resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		return services.Wrap(services.ErrTransient, "backend", method+" "+path, msg, nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "backend", method+" "+path, "decode response", err)
	}
	return nil
}
