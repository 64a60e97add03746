package store

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeChangefeed speaks just enough phoenix to exercise the client: it
// records joins, and the first connection is dropped right after its join
// to force a redial.
func fakeChangefeed(t *testing.T, joins chan<- string) *httptest.Server {
	t.Helper()

	var conns int32
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := atomic.AddInt32(&conns, 1)

		for {
			var msg phxMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Event != "phx_join" {
				continue
			}
			joins <- msg.Topic
			if n == 1 {
				return
			}
			if err := conn.WriteJSON(phxMessage{Topic: msg.Topic, Event: "INSERT"}); err != nil {
				return
			}
		}
	}))
}

func awaitJoin(t *testing.T, joins <-chan string, what string) string {
	t.Helper()
	select {
	case topic := <-joins:
		return topic
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}

func TestRealtime_RedialRejoinsWatchedTopics(t *testing.T) {
	joins := make(chan string, 4)
	srv := fakeChangefeed(t, joins)
	defer srv.Close()

	rt := NewRealtime(srv.URL, "key", nil)
	rt.redialWait = 5 * time.Millisecond
	defer rt.Close()

	changes := make(chan struct{}, 4)
	sub, err := rt.Watch("sharedTasks", func() { changes <- struct{}{} }, func(error) {})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer sub.Close()

	first := awaitJoin(t, joins, "initial join")

	// The server drops the socket after the first join. The client must
	// redial and re-join the topic without a new Watch call.
	second := awaitJoin(t, joins, "join after redial")
	if second != first {
		t.Fatalf("rejoined %q, want %q", second, first)
	}

	// The second connection echoes an INSERT after the join; delivery
	// proves the subscription is live again.
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered after redial")
	}
}

func TestRealtime_CloseStopsRedial(t *testing.T) {
	joins := make(chan string, 4)
	srv := fakeChangefeed(t, joins)
	defer srv.Close()

	rt := NewRealtime(srv.URL, "key", nil)
	rt.redialWait = 5 * time.Millisecond

	if _, err := rt.Watch("sharedTasks", func() {}, nil); err != nil {
		t.Fatalf("watch: %v", err)
	}
	awaitJoin(t, joins, "initial join")

	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Closed clients must not dial back after the server-side drop.
	select {
	case topic := <-joins:
		t.Fatalf("unexpected join %q after close", topic)
	case <-time.After(100 * time.Millisecond):
	}
}
