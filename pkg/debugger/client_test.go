package debugger

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter is an in-memory debug adapter driven by a handler: every
// request the client sends is answered by handler's returned messages.
// Events can be injected at any time with send.
type fakeAdapter struct {
	conn net.Conn
	wmu  sync.Mutex
}

func startFakeAdapter(t *testing.T, c *Client, handler func(req dap.RequestMessage) []dap.Message) *fakeAdapter {
	t.Helper()

	clientEnd, serverEnd := net.Pipe()
	t.Cleanup(func() {
		_ = clientEnd.Close()
		_ = serverEnd.Close()
	})

	a := &fakeAdapter{conn: serverEnd}
	go func() {
		r := bufio.NewReader(serverEnd)
		for {
			msg, err := dap.ReadProtocolMessage(r)
			if err != nil {
				return
			}
			req, ok := msg.(dap.RequestMessage)
			if !ok {
				continue
			}
			if handler == nil {
				continue
			}
			for _, out := range handler(req) {
				a.send(out)
			}
		}
	}()

	c.attach(clientEnd)
	return a
}

func (a *fakeAdapter) send(msg dap.Message) {
	a.wmu.Lock()
	defer a.wmu.Unlock()
	_ = dap.WriteProtocolMessage(a.conn, msg)
}

// okResponse builds the Response envelope answering req.
func okResponse(req dap.RequestMessage) dap.Response {
	r := req.GetRequest()
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		Command:         r.Command,
		RequestSeq:      r.Seq,
		Success:         true,
	}
}

func threadsResponse(req dap.RequestMessage, names ...string) *dap.ThreadsResponse {
	resp := &dap.ThreadsResponse{Response: okResponse(req)}
	for i, name := range names {
		resp.Body.Threads = append(resp.Body.Threads, dap.Thread{Id: i + 1, Name: name})
	}
	return resp
}

func newTestClient(opts ...Option) *Client {
	return NewClient(append([]Option{WithRequestTimeout(2 * time.Second)}, opts...)...)
}

func (c *Client) forceState(s State, threadID int) {
	c.mu.Lock()
	c.state = s
	c.threadID = threadID
	c.mu.Unlock()
}

func pendingCount(c *Client) int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

func TestRoundTripMatchesBySeq(t *testing.T) {
	c := newTestClient()
	startFakeAdapter(t, c, func(req dap.RequestMessage) []dap.Message {
		// A stale response and an interleaved event arrive before the
		// real answer; only the matching request_seq resolves the call.
		stale := threadsResponse(req, "stale")
		stale.RequestSeq = req.GetRequest().Seq + 1000
		return []dap.Message{
			stale,
			outputEvent(99, "noise"),
			threadsResponse(req, "main"),
		}
	})

	threads, err := c.Threads(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "main", threads[0].Name)
	assert.Equal(t, 0, pendingCount(c))
}

func TestRoundTripErrorResponse(t *testing.T) {
	c := newTestClient()
	startFakeAdapter(t, c, func(req dap.RequestMessage) []dap.Message {
		er := &dap.ErrorResponse{Response: okResponse(req)}
		er.Success = false
		er.Body.Error = &dap.ErrorMessage{Format: "thread 7 not found"}
		return []dap.Message{er}
	})

	_, err := c.Threads(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thread 7 not found")
}

func TestRoundTripFailureWithoutErrorBody(t *testing.T) {
	c := newTestClient()
	startFakeAdapter(t, c, func(req dap.RequestMessage) []dap.Message {
		resp := threadsResponse(req)
		resp.Success = false
		resp.Message = "adapter busy"
		return []dap.Message{resp}
	})

	_, err := c.Threads(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adapter busy")
}

func TestRoundTripTimeoutDropsLateResponse(t *testing.T) {
	c := newTestClient(WithRequestTimeout(30 * time.Millisecond))

	var mu sync.Mutex
	var late dap.RequestMessage
	a := startFakeAdapter(t, c, func(req dap.RequestMessage) []dap.Message {
		mu.Lock()
		late = req
		mu.Unlock()
		return nil
	})

	_, err := c.Threads(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, 0, pendingCount(c))

	// The late response must be discarded silently, not crash or leak.
	mu.Lock()
	a.send(threadsResponse(late, "too late"))
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, pendingCount(c))
}

func TestRoundTripContextCancelled(t *testing.T) {
	c := newTestClient()
	startFakeAdapter(t, c, func(req dap.RequestMessage) []dap.Message { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Threads(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRoundTripNotConnected(t *testing.T) {
	c := newTestClient()
	_, err := c.Threads(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectAlreadyConnected(t *testing.T) {
	c := newTestClient()
	startFakeAdapter(t, c, nil)

	err := c.Connect(context.Background(), "127.0.0.1", 6006)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")
}

func TestSequenceNumbersIncrease(t *testing.T) {
	c := newTestClient()
	first := c.newRequest("threads")
	second := c.newRequest("threads")
	assert.Greater(t, second.Seq, first.Seq)
}

func TestCloseClearsSessionButKeepsBreakpoints(t *testing.T) {
	c := newTestClient()
	startFakeAdapter(t, c, nil)
	c.forceState(StatePaused, 1)
	c.mu.Lock()
	c.breakpoints["res://a.gd"] = []Breakpoint{{Source: "res://a.gd", Line: 10, Verified: true}}
	c.mu.Unlock()

	require.NoError(t, c.Close())

	assert.Equal(t, StateDisconnected, c.State())
	assert.Zero(t, c.ThreadID())
	bps := c.Breakpoints()
	require.Len(t, bps, 1)
	assert.Equal(t, 10, bps[0].Line)
}

func TestReadLoopDisconnectResetsState(t *testing.T) {
	c := newTestClient()
	a := startFakeAdapter(t, c, nil)
	c.forceState(StateRunning, 1)

	_ = a.conn.Close()

	require.Eventually(t, func() bool {
		return c.State() == StateDisconnected
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, c.ThreadID())
}
