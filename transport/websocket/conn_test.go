package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/rpsls/game/protocol"
)

// newGameServer starts a websocket server running handler for each
// connection and returns its ws:// URL
func newGameServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg protocol.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func nextPush(t *testing.T, c *Conn) protocol.Push {
	t.Helper()
	select {
	case p, ok := <-c.Pushes():
		require.True(t, ok, "push feed closed")
		return p
	case <-time.After(time.Second):
		t.Fatal("no push received")
	}
	return protocol.Push{}
}

func waitDone(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("connection did not end")
	}
}

func TestConnHandshakeIsSentFirst(t *testing.T) {
	received := make(chan protocol.Message, 2)
	url := newGameServer(t, func(conn *websocket.Conn) {
		received <- readMessage(t, conn)
		received <- readMessage(t, conn)
	})

	c := NewConn(DefaultConfig(url))
	require.NoError(t, c.Open(context.Background(), protocol.JoinMessage("u1", "ABCDE")))
	defer c.Close()

	require.NoError(t, c.Send(protocol.PlayMessage("u1", "ABCDE", 1, protocol.Rock)))

	first := <-received
	assert.Equal(t, protocol.ActionJoin, first.Action)
	assert.Equal(t, "ABCDE", first.GameID)

	second := <-received
	assert.Equal(t, protocol.ActionPlay, second.Action)
	assert.Equal(t, protocol.Rock, second.Play)
	require.NotNil(t, second.Round)
	assert.Equal(t, 1, *second.Round)
}

func TestConnDeliversBatchedPushesInOrder(t *testing.T) {
	url := newGameServer(t, func(conn *websocket.Conn) {
		readMessage(t, conn)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"gameId":"ABCDE","round":1}`+"\n"+`{"yourScore":1}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"roundSummary":"Tie Game"}`))
		time.Sleep(100 * time.Millisecond)
	})

	c := NewConn(DefaultConfig(url))
	require.NoError(t, c.Open(context.Background(), protocol.NewGameMessage("u1")))
	defer c.Close()

	p := nextPush(t, c)
	require.NotNil(t, p.GameID)
	assert.Equal(t, "ABCDE", *p.GameID)

	p = nextPush(t, c)
	require.NotNil(t, p.YourScore)
	assert.Equal(t, 1, *p.YourScore)

	p = nextPush(t, c)
	require.NotNil(t, p.RoundSummary)
	assert.Equal(t, "Tie Game", *p.RoundSummary)
}

func TestConnMalformedFrameIsAnEmptyPush(t *testing.T) {
	url := newGameServer(t, func(conn *websocket.Conn) {
		readMessage(t, conn)
		conn.WriteMessage(websocket.TextMessage, []byte(`<html>oops</html>`))
		time.Sleep(100 * time.Millisecond)
	})

	c := NewConn(DefaultConfig(url))
	require.NoError(t, c.Open(context.Background(), protocol.NewGameMessage("u1")))
	defer c.Close()

	assert.True(t, nextPush(t, c).IsEmpty())
}

func TestConnCleanCloseFromServer(t *testing.T) {
	url := newGameServer(t, func(conn *websocket.Conn) {
		readMessage(t, conn)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		time.Sleep(100 * time.Millisecond)
	})

	c := NewConn(DefaultConfig(url))
	require.NoError(t, c.Open(context.Background(), protocol.NewGameMessage("u1")))

	waitDone(t, c)
	assert.True(t, c.Clean())
	assert.NoError(t, c.Err())

	_, ok := <-c.Pushes()
	assert.False(t, ok, "push feed should be closed")
}

func TestConnUncleanDrop(t *testing.T) {
	url := newGameServer(t, func(conn *websocket.Conn) {
		readMessage(t, conn)
		conn.UnderlyingConn().Close()
	})

	c := NewConn(DefaultConfig(url))
	require.NoError(t, c.Open(context.Background(), protocol.NewGameMessage("u1")))

	waitDone(t, c)
	assert.False(t, c.Clean())
	assert.Error(t, c.Err())
	assert.ErrorIs(t, c.Send(protocol.PlayMessage("u1", "ABCDE", 0, protocol.Paper)), ErrClosed)
}

func TestConnOpensOnce(t *testing.T) {
	url := newGameServer(t, func(conn *websocket.Conn) {
		readMessage(t, conn)
		time.Sleep(100 * time.Millisecond)
	})

	c := NewConn(DefaultConfig(url))
	require.NoError(t, c.Open(context.Background(), protocol.NewGameMessage("u1")))
	defer c.Close()

	assert.ErrorIs(t, c.Open(context.Background(), protocol.NewGameMessage("u1")), ErrAlreadyOpened)
}

func TestConnSendBeforeOpen(t *testing.T) {
	c := NewConn(DefaultConfig("ws://127.0.0.1:0"))
	assert.ErrorIs(t, c.Send(protocol.NewGameMessage("u1")), ErrNotOpen)
}

func TestConnSendRejectsInvalidMessage(t *testing.T) {
	c := NewConn(DefaultConfig("ws://127.0.0.1:0"))
	assert.ErrorIs(t, c.Send(protocol.Message{Action: protocol.ActionJoin, UserID: "u1"}), protocol.ErrMissingGameID)
}

func TestConnDialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	c := NewConn(DefaultConfig(url))
	err := c.Open(context.Background(), protocol.NewGameMessage("u1"))
	require.Error(t, err)

	waitDone(t, c)
	assert.False(t, c.Clean())
}

func TestConnCloseIsIdempotent(t *testing.T) {
	url := newGameServer(t, func(conn *websocket.Conn) {
		readMessage(t, conn)
		conn.SetReadDeadline(time.Now().Add(time.Second))
		conn.ReadMessage()
	})

	c := NewConn(DefaultConfig(url))
	require.NoError(t, c.Open(context.Background(), protocol.NewGameMessage("u1")))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	waitDone(t, c)
	assert.True(t, c.Clean())
}

func TestConnCloseWhileDialing(t *testing.T) {
	ended := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			ended <- err
			return
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				ended <- err
				return
			}
		}
	}))
	defer server.Close()

	c := NewConn(DefaultConfig("ws" + strings.TrimPrefix(server.URL, "http")))
	opened := make(chan error, 1)
	go func() { opened <- c.Open(context.Background(), protocol.NewGameMessage("u1")) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, c.Close())
	waitDone(t, c)

	select {
	case err := <-opened:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Open did not return")
	}

	select {
	case err := <-ended:
		var netErr net.Error
		assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "socket dialed during Close stayed open: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("server never saw the socket end")
	}
}
