package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoParams struct {
	Text  string `json:"text"`
	Delay int    `json:"delay"`
}

type echoResult struct {
	Text string `json:"text"`
}

var testHandler = HandlerFunc(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "Echo":
		var p echoParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, status.Errorf(status.InvalidArgument, "bad params: %v", err)
		}
		time.Sleep(time.Duration(p.Delay) * time.Millisecond)
		return echoResult{Text: p.Text}, nil
	case "Missing":
		return nil, fmt.Errorf("lookup: %w", status.Errorf(status.NotFound, "scene 7 not found"))
	case "Panic":
		panic("boom")
	}
	return nil, status.Errorf(status.InvalidArgument, "unknown method %q", method)
})

func newTestClient(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(NewServer(testHandler))
	t.Cleanup(ts.Close)
	c, err := Dial(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, ts
}

func TestCallRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)

	var res echoResult
	require.NoError(t, c.Call(context.Background(), "Echo", echoParams{Text: "hello"}, &res))
	assert.Equal(t, "hello", res.Text)
}

func TestCallPreservesErrorCodes(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	err := c.Call(ctx, "Missing", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))
	assert.Equal(t, "scene 7 not found", status.Message(err))

	err = c.Call(ctx, "Nope", nil, nil)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	err = c.Call(ctx, "Panic", nil, nil)
	assert.Equal(t, status.Internal, status.CodeOf(err))

	// The connection survives failed calls.
	var res echoResult
	require.NoError(t, c.Call(ctx, "Echo", echoParams{Text: "still here"}, &res))
	assert.Equal(t, "still here", res.Text)
}

func TestConcurrentCallsOutOfOrder(t *testing.T) {
	c, _ := newTestClient(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var res echoResult
			text := fmt.Sprintf("call-%d", i)
			err := c.Call(context.Background(), "Echo", echoParams{Text: text, Delay: (16 - i) * 2}, &res)
			assert.NoError(t, err)
			assert.Equal(t, text, res.Text)
		}(i)
	}
	wg.Wait()
}

func TestMalformedFrameIsSkipped(t *testing.T) {
	_, ts := newTestClient(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteJSON(Request{ID: 9, Method: "Echo", Params: json.RawMessage(`{"text":"ok"}`)}))

	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, uint64(9), resp.ID)
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `{"text":"ok"}`, string(resp.Result))
}

func TestCallContextCancelled(t *testing.T) {
	c, _ := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Call(ctx, "Echo", echoParams{Text: "slow", Delay: 200}, nil)
	assert.Equal(t, status.Internal, status.CodeOf(err))
}

func TestServerStartStop(t *testing.T) {
	srv := NewServer(testHandler)
	require.NoError(t, srv.Start("127.0.0.1:0"))
	addr := srv.Addr()
	require.NotEmpty(t, addr)
	assert.Equal(t, status.Internal, status.CodeOf(srv.Start("127.0.0.1:0")))

	c, err := Dial(context.Background(), addr)
	require.NoError(t, err)

	var res echoResult
	require.NoError(t, c.Call(context.Background(), "Echo", echoParams{Text: "served"}, &res))
	assert.Equal(t, "served", res.Text)

	require.NoError(t, srv.Stop())
	assert.Empty(t, srv.Addr())

	<-c.done
	err = c.Call(context.Background(), "Echo", echoParams{Text: "late"}, nil)
	assert.Equal(t, status.Internal, status.CodeOf(err))
	c.Close()
}

func TestStopRefusesNewConnections(t *testing.T) {
	srv := NewServer(testHandler)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	require.NoError(t, srv.Stop())
	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http"))
	assert.Equal(t, status.Internal, status.CodeOf(err))
}

func TestStopWaitsForRunningRequests(t *testing.T) {
	var running atomic.Int32
	started := make(chan struct{}, 1)
	slow := HandlerFunc(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		running.Add(1)
		defer running.Add(-1)
		started <- struct{}{}
		time.Sleep(100 * time.Millisecond)
		return echoResult{Text: method}, nil
	})
	srv := NewServer(slow)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c, err := Dial(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http"))
	require.NoError(t, err)
	defer c.Close()

	go c.Call(context.Background(), "Slow", nil, nil)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the handler")
	}

	require.NoError(t, srv.Stop())
	assert.Equal(t, int32(0), running.Load())
}

func TestURL(t *testing.T) {
	assert.Equal(t, "ws://127.0.0.1:15003/rpc", URL("127.0.0.1:15003"))
}
