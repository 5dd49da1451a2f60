package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverSide struct {
	conn    *Conn
	pongs   atomic.Int32
	readErr chan error
}

// dialPair starts a server that wraps each upgraded connection in a Conn and
// returns the server side and a connected client.
func dialPair(t *testing.T) (*serverSide, *websocket.Conn) {
	t.Helper()

	ready := make(chan *serverSide, 1)
	upgrader := NewUpgrader(NewCheckOrigin(nil, false))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		side := &serverSide{conn: NewConn(ws, clockwork.NewRealClock()), readErr: make(chan error, 1)}
		side.conn.OnPong(func() { side.pongs.Add(1) })
		ready <- side
		side.readErr <- side.conn.ReadLoop()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case side := <-ready:
		return side, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side never upgraded")
		return nil, nil
	}
}

func TestConn_SendDeliversTextMessage(t *testing.T) {
	side, client := dialPair(t)

	require.NoError(t, side.conn.Send([]byte(`{"seq":0}`)))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.JSONEq(t, `{"seq":0}`, string(msg))
}

func TestConn_ProbeTriggersPong(t *testing.T) {
	side, client := dialPair(t)

	// The client answers pings only while reading.
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.NoError(t, side.conn.Probe())
	assert.Eventually(t, func() bool { return side.pongs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestConn_TerminateIsIdempotent(t *testing.T) {
	side, client := dialPair(t)

	require.NoError(t, side.conn.Terminate())
	assert.NoError(t, side.conn.Terminate())

	require.ErrorIs(t, side.conn.Send([]byte("x")), domain.ErrConnectionClosed)
	require.ErrorIs(t, side.conn.Probe(), domain.ErrConnectionClosed)

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestConn_ReadLoopEndsWhenClientCloses(t *testing.T) {
	side, client := dialPair(t)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, client.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	select {
	case err := <-side.readErr:
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not end")
	}
}

func TestConn_ReadLoopDiscardsClientMessages(t *testing.T) {
	side, client := dialPair(t)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("hello")))
	require.NoError(t, side.conn.Send([]byte("still here")))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "still here", string(msg))

	select {
	case err := <-side.readErr:
		t.Fatalf("read loop ended early: %v", err)
	default:
	}
}

func TestConn_TerminateDoesNotWaitForStuckWrite(t *testing.T) {
	side, client := dialPair(t)

	// Hold the write lock the way a Send blocked on a full socket would.
	side.conn.writeMu.Lock()
	defer side.conn.writeMu.Unlock()

	done := make(chan error, 1)
	go func() { done <- side.conn.Terminate() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("terminate waited on the in-flight write")
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.False(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "no close frame while a write is in flight")
}
