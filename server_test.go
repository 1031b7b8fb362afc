package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var testLimits = Limits{
	SendBuffer:     64,
	MaxMessageSize: 64 * 1024,
	WriteWait:      time.Second,
	PongWait:       10 * time.Second,
}

func startRelay(t *testing.T, origins ...string) (*httptest.Server, *ClientManager) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	manager := NewClientManager(log)
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	srv := httptest.NewServer(NewServer(manager, testLimits, origins, log).Routes())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		manager.Wait()
	})
	return srv, manager
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, payload any) {
	require.NoError(t, conn.WriteJSON(envelope(t, event, payload)))
}

func receive(t *testing.T, conn *websocket.Conn) Envelope {
	var env Envelope
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// expectSilence asserts that nothing arrives on conn for a short while.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	var env Envelope
	err := conn.ReadJSON(&env)
	require.Error(t, err, "unexpected %q", env.Event)
}

func joinAs(t *testing.T, srv *httptest.Server, identity string) *websocket.Conn {
	conn := dial(t, srv)
	send(t, conn, EventJoin, identity)
	return conn
}

func TestRelay_Alice_And_Bob_Scenario(t *testing.T) {
	req := require.New(t)
	srv, _ := startRelay(t)

	// Given alice then bob join
	alice := joinAs(t, srv, "alice")
	env := receive(t, alice)
	req.Equal(EventUserList, env.Event)
	req.Equal([]string{"alice"}, payload[[]string](t, env))

	bob := joinAs(t, srv, "bob")
	env = receive(t, alice)
	req.Equal([]string{"alice", "bob"}, payload[[]string](t, env))
	env = receive(t, bob)
	req.Equal([]string{"alice", "bob"}, payload[[]string](t, env))

	// When alice writes to bob
	send(t, alice, EventChatMessage, ChatMessage{ID: "m1", Sender: "alice", Body: "hi", Recipient: lo.ToPtr("bob")})

	// Then bob gets the message
	env = receive(t, bob)
	req.Equal(EventChatMessage, env.Event)
	req.Equal("hi", payload[ChatMessage](t, env).Body)

	// And alice gets her echo followed by the delivery acknowledgement
	req.Equal(EventChatMessage, receive(t, alice).Event)
	env = receive(t, alice)
	req.Equal(EventMessageDelivered, env.Event)
	req.Equal(Ack{ID: "m1"}, payload[Ack](t, env))

	// When bob reads it
	send(t, bob, EventMessageRead, ReadReceipt{ID: "m1", From: "bob", To: "alice"})

	// Then alice is told
	env = receive(t, alice)
	req.Equal(EventMessageRead, env.Event)
	req.Equal(Ack{ID: "m1"}, payload[Ack](t, env))
}

func TestRelay_Typing_Goes_To_Bob_Only(t *testing.T) {
	req := require.New(t)
	srv, _ := startRelay(t)

	alice := joinAs(t, srv, "alice")
	receive(t, alice)
	bob := joinAs(t, srv, "bob")
	receive(t, alice)
	receive(t, bob)
	carol := joinAs(t, srv, "carol")
	receive(t, alice)
	receive(t, bob)
	receive(t, carol)

	send(t, alice, EventTyping, TypingSignal{From: "alice", To: lo.ToPtr("bob")})
	send(t, alice, EventStopTyping, TypingSignal{From: "alice", To: lo.ToPtr("bob")})

	env := receive(t, bob)
	req.Equal(EventTyping, env.Event)
	req.Equal("alice", payload[TypingSignal](t, env).From)
	req.Equal(EventStopTyping, receive(t, bob).Event)

	expectSilence(t, alice)
	expectSilence(t, carol)
}

func TestRelay_No_Replay_After_Disconnect(t *testing.T) {
	req := require.New(t)
	srv, manager := startRelay(t)

	alice := joinAs(t, srv, "alice")
	receive(t, alice)
	bob := joinAs(t, srv, "bob")
	receive(t, alice)
	receive(t, bob)

	// Given bob disconnects
	req.NoError(bob.Close())
	env := receive(t, alice)
	req.Equal([]string{"alice"}, payload[[]string](t, env))
	req.Eventually(func() bool { return manager.Connections() == 1 }, time.Second, 10*time.Millisecond)

	// When alice writes to him
	send(t, alice, EventChatMessage, ChatMessage{ID: "m1", Body: "hi", Recipient: lo.ToPtr("bob")})

	// Then nothing comes back, not even an acknowledgement
	expectSilence(t, alice)

	// And a reconnecting bob does not get it either
	bob = joinAs(t, srv, "bob")
	env = receive(t, bob)
	req.Equal(EventUserList, env.Event)
	expectSilence(t, bob)
}

func TestRelay_Malformed_Frames_Do_Not_Kill_The_Session(t *testing.T) {
	req := require.New(t)
	srv, _ := startRelay(t)

	alice := joinAs(t, srv, "alice")
	receive(t, alice)

	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("not json")))
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte(`{"event":"chat message","data":{"text":"no id"}}`)))
	send(t, alice, EventChatMessage, ChatMessage{ID: "m2", Body: "still here"})

	env := receive(t, alice)
	req.Equal(EventChatMessage, env.Event)
	req.Equal("m2", payload[ChatMessage](t, env).ID)
	req.Equal(EventMessageDelivered, receive(t, alice).Event)
}

func TestServer_Index_And_Health(t *testing.T) {
	req := require.New(t)
	srv, manager := startRelay(t)

	resp, err := http.Get(srv.URL + "/")
	req.NoError(err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("Server is running!", string(body))

	alice := joinAs(t, srv, "alice")
	receive(t, alice)
	req.Eventually(func() bool { return manager.Identities() == 1 }, time.Second, 10*time.Millisecond)

	resp, err = http.Get(srv.URL + "/health")
	req.NoError(err)
	defer resp.Body.Close()
	var health healthResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&health))
	req.Equal(healthResponse{Status: "ok", Connections: 1, Joined: 1, Identities: 1}, health)
}

func TestServer_Origin_Check(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})
	anyOrigin := originChecker([]string{"*"})

	tests := []struct {
		name   string
		origin string
		check  func(*http.Request) bool
		want   bool
	}{
		{"allowed origin", "http://localhost:5173", check, true},
		{"foreign origin", "http://evil.example", check, false},
		{"no origin header", "", check, true},
		{"wildcard", "http://evil.example", anyOrigin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.want, tt.check(r))
		})
	}
}

func TestServer_Rejects_Foreign_Origin(t *testing.T) {
	req := require.New(t)
	srv, _ := startRelay(t, "http://localhost:5173")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusForbidden, resp.StatusCode)
}
