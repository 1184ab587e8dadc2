package stream

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runtimeeditor/history/internal/config"
	"github.com/runtimeeditor/history/internal/history"
	"github.com/runtimeeditor/history/pkg/core"
)

// testServer upgrades to WebSocket, records received messages and acks hello.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == TypeHello {
				data, _ := json.Marshal(AckMessage{Type: TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []Envelope
}

func (m *messageLog) add(env Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) ofType(msgType string) []Envelope {
	var out []Envelope
	for _, env := range m.all() {
		if env.Type == msgType {
			out = append(out, env)
		}
	}
	return out
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectSendsHello(t *testing.T) {
	srv, ml := testServer(t)

	c := New(config.StreamConfig{URL: wsURL(srv), Secret: "s3cret"}, HelloPayload{Session: "sess-1", Capacity: 100}, nil)
	require.NoError(t, c.Connect())
	defer c.Close()

	hellos := ml.ofType(TypeHello)
	require.Len(t, hellos, 1)
	var hello HelloPayload
	require.NoError(t, json.Unmarshal(hellos[0].Payload, &hello))
	assert.Equal(t, "sess-1", hello.Session)
	assert.Equal(t, 100, hello.Capacity)

	ml.mu.Lock()
	assert.Equal(t, "s3cret", ml.secret)
	ml.mu.Unlock()
}

func TestPublishStateAndOps(t *testing.T) {
	srv, ml := testServer(t)

	c := New(config.StreamConfig{URL: wsURL(srv)}, HelloPayload{Session: "s"}, nil)
	require.NoError(t, c.Connect())
	defer c.Close()

	observe := c.Observer()
	observe(history.State{Enabled: true, CanUndo: true, UndoLen: 1})
	c.Audit("undo", history.Result{
		CommandID: "cmd-1",
		Kind:      core.KindTransform,
		Affected:  []core.EntityHandle{"crate"},
		Skipped:   []core.EntityHandle{"ghost"},
		Warnings:  []error{errors.New("ghost: entity not found")},
	}, history.State{})

	require.Eventually(t, func() bool {
		return len(ml.ofType(TypeHistoryState)) == 1 && len(ml.ofType(TypeHistoryOp)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var st history.State
	require.NoError(t, json.Unmarshal(ml.ofType(TypeHistoryState)[0].Payload, &st))
	assert.True(t, st.CanUndo)
	assert.Equal(t, 1, st.UndoLen)

	var op OpPayload
	require.NoError(t, json.Unmarshal(ml.ofType(TypeHistoryOp)[0].Payload, &op))
	assert.Equal(t, "undo", op.Op)
	assert.Equal(t, "transform", op.Kind)
	assert.Equal(t, []string{"crate"}, op.Affected)
	assert.Equal(t, []string{"ghost"}, op.Skipped)
	assert.Equal(t, []string{"ghost: entity not found"}, op.Warnings)
}

func TestConnectFailsWithoutServer(t *testing.T) {
	c := New(config.StreamConfig{URL: "ws://127.0.0.1:1/ws"}, HelloPayload{}, nil)
	assert.Error(t, c.Connect())
	assert.NoError(t, c.Close())
}

func TestConnectTimesOutWithoutAck(t *testing.T) {
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(config.StreamConfig{URL: wsURL(srv)}, HelloPayload{}, nil)
	defer c.Close()

	data, err := marshalEnvelope(TypeHello, HelloPayload{})
	require.NoError(t, err)
	require.NoError(t, c.conn.dial(c.cfg.URL, ""))
	err = c.conn.sendAndWait(data, TypeHello, 50*time.Millisecond)
	assert.ErrorContains(t, err, "timeout")
}

func TestReconnectReplaysHelloAndState(t *testing.T) {
	var mu sync.Mutex
	var conns []*ws.Conn
	ml := &messageLog{}
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns = append(conns, c)
		mu.Unlock()
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if json.Unmarshal(msg, &env) == nil {
				ml.add(env)
				if env.Type == TypeHello {
					data, _ := json.Marshal(AckMessage{Type: TypeAck, For: TypeHello})
					c.WriteMessage(ws.TextMessage, data)
				}
			}
		}
	}))
	defer srv.Close()

	c := New(config.StreamConfig{URL: wsURL(srv)}, HelloPayload{Session: "r"}, nil)
	c.conn.backoff = 10 * time.Millisecond
	require.NoError(t, c.Connect())
	defer c.Close()

	c.PublishState(history.State{CanRedo: true, RedoLen: 2})
	require.Eventually(t, func() bool { return len(ml.ofType(TypeHistoryState)) == 1 }, 2*time.Second, 10*time.Millisecond)

	// drop the server side of the first connection
	mu.Lock()
	conns[0].Close()
	mu.Unlock()

	require.Eventually(t, func() bool {
		return len(ml.ofType(TypeHello)) == 2 && len(ml.ofType(TypeHistoryState)) == 2
	}, 5*time.Second, 10*time.Millisecond)
}
