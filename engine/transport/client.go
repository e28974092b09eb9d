package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/gorilla/websocket"
)

// Client issues calls over one WebSocket connection. Calls may run concurrently;
// responses are matched by request id.
type Client struct {
	logger log.Logger
	conn   *websocket.Conn

	nextID  atomic.Uint64
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan Response
	err     error

	// done is closed when the read loop exits.
	done chan struct{}
}

// URL returns the WebSocket URL of a server listening on address.
//
// Parameters:
//   - address: host:port
//
// Returns:
//   - string: the ws:// URL
func URL(address string) string {
	u := url.URL{Scheme: "ws", Host: address, Path: Path}
	return u.String()
}

// Dial connects to a server.
//
// Parameters:
//   - ctx: bounds the handshake
//   - address: the server's host:port or a full ws:// URL
//
// Returns:
//   - *Client: the connected client
//   - error: Internal if the connection cannot be established
func Dial(ctx context.Context, address string) (*Client, error) {
	target := address
	if u, err := url.Parse(address); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		target = URL(address)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, status.Errorf(status.Internal, "dial %s: %v", target, err)
	}
	c := &Client{
		logger:  log.New("transport"),
		conn:    conn,
		pending: make(map[uint64]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.fail(status.Errorf(status.Internal, "connection closed: %v", err))
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Warningf("response to unknown request #%d", resp.ID)
			continue
		}
		ch <- resp
	}
}

// fail ends every pending call with err and rejects later ones.
func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
	for id, ch := range c.pending {
		ch <- Response{ID: id, Error: toErrorBody(err)}
		delete(c.pending, id)
	}
}

// Call sends one request and waits for its response.
//
// Parameters:
//   - ctx: bounds the wait for the response
//   - method: the remote method name
//   - params: the request message, nil for none
//   - result: decoded from the response when non-nil
//
// Returns:
//   - error: the remote error with its code preserved, or Internal for connection failures
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	req := Request{ID: c.nextID.Add(1), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return status.Errorf(status.InvalidArgument, "encode %s params: %v", method, err)
		}
		req.Params = raw
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return c.err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return status.Errorf(status.Internal, "send %s: %v", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error.toError())
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return status.Errorf(status.Internal, "decode %s result: %v", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.forget(req.ID)
		return status.Errorf(status.Internal, "%s: %v", method, ctx.Err())
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close sends a close frame and shuts the connection down.
//
// Returns:
//   - error: error if the connection could not be closed
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}
