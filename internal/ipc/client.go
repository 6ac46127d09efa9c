package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the running sync client.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the sync client status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Tubesync.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Queue retrieves the displayed download queue.
func (c *Client) Queue() (*QueueResponse, error) {
	var resp QueueResponse
	if err := c.client.Call("Tubesync.Queue", QueueRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Toggle starts or cancels a download for the video.
func (c *Client) Toggle(videoID string) (*ToggleResponse, error) {
	var resp ToggleResponse
	if err := c.client.Call("Tubesync.Toggle", ToggleRequest{VideoID: videoID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Dismiss dismisses the download notification.
func (c *Client) Dismiss() (*DismissResponse, error) {
	var resp DismissResponse
	if err := c.client.Call("Tubesync.Dismiss", DismissRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
