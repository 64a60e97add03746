package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/pkg/logger"
)

// Realtime maintains one websocket to the hosted store's changefeed and
// multiplexes per-collection watchers over phoenix channels. The socket is
// dialed lazily on the first watch, survives watcher churn, and is redialed
// after a drop while watchers remain.
type Realtime struct {
	mu         sync.Mutex
	url        string
	apiKey     string
	conn       *websocket.Conn
	watchers   map[string]map[int64]*realtimeWatch
	nextID     int64
	ref        int64
	done       chan struct{}
	closed     bool
	redialWait time.Duration
	log        *logger.Logger
}

type realtimeWatch struct {
	client     *Realtime
	id         int64
	topic      string
	onChange   func()
	onError    ErrorFunc
	mu         sync.Mutex
	closed     bool
}

type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// NewRealtime creates a realtime client for the store at httpURL.
func NewRealtime(httpURL, apiKey string, log *logger.Logger) *Realtime {
	wsURL := httpURL
	switch {
	case strings.HasPrefix(wsURL, "https"):
		wsURL = "wss" + wsURL[len("https"):]
	case strings.HasPrefix(wsURL, "http"):
		wsURL = "ws" + wsURL[len("http"):]
	}
	wsURL = strings.TrimSuffix(wsURL, "/") + "/realtime/v1/websocket?apikey=" + apiKey

	if log == nil {
		log = logger.NewDefault("store-realtime")
	}
	return &Realtime{
		url:        wsURL,
		apiKey:     apiKey,
		watchers:   make(map[string]map[int64]*realtimeWatch),
		redialWait: time.Second,
		log:        log,
	}
}

// Watch registers onChange to fire whenever any document in the collection
// changes. The returned handle must be closed.
func (r *Realtime) Watch(collection string, onChange func(), onError ErrorFunc) (Subscription, error) {
	topic := "realtime:public:documents:collection=eq." + collection

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.connectLocked(); err != nil {
		return nil, err
	}

	r.nextID++
	w := &realtimeWatch{client: r, id: r.nextID, topic: topic, onChange: onChange, onError: onError}

	join := len(r.watchers[topic]) == 0
	if r.watchers[topic] == nil {
		r.watchers[topic] = make(map[int64]*realtimeWatch)
	}
	r.watchers[topic][w.id] = w

	if join {
		if err := r.sendLocked(topic, "phx_join"); err != nil {
			delete(r.watchers[topic], w.id)
			return nil, apperrors.Transport(err, "join channel %s", topic)
		}
	}
	return w, nil
}

// connectLocked dials the socket and re-joins every topic that still has
// watchers, so subscriptions survive a redial.
func (r *Realtime) connectLocked() error {
	if r.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(r.url, nil)
	if err != nil {
		return apperrors.Transport(err, "dial realtime socket")
	}
	r.conn = conn
	r.done = make(chan struct{})

	for topic := range r.watchers {
		if err := r.sendLocked(topic, "phx_join"); err != nil {
			conn.Close()
			r.conn = nil
			close(r.done)
			return apperrors.Transport(err, "rejoin channel %s", topic)
		}
	}

	go r.readLoop(conn, r.done)
	go r.heartbeat(r.done)
	return nil
}

func (r *Realtime) sendLocked(topic, event string) error {
	r.ref++
	return r.conn.WriteJSON(map[string]any{
		"topic":   topic,
		"event":   event,
		"payload": map[string]any{},
		"ref":     strconv.FormatInt(r.ref, 10),
	})
}

func (r *Realtime) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			r.handleDisconnect(conn, err)
			return
		}

		var msg phxMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Event {
		case "INSERT", "UPDATE", "DELETE":
			r.dispatch(msg.Topic)
		}
	}
}

func (r *Realtime) dispatch(topic string) {
	r.mu.Lock()
	watches := make([]*realtimeWatch, 0, len(r.watchers[topic]))
	for _, w := range r.watchers[topic] {
		watches = append(watches, w)
	}
	r.mu.Unlock()

	for _, w := range watches {
		w.fire()
	}
}

func (r *Realtime) handleDisconnect(conn *websocket.Conn, cause error) {
	r.mu.Lock()
	if r.conn != conn {
		r.mu.Unlock()
		return
	}
	r.conn = nil
	close(r.done)
	var watches []*realtimeWatch
	for _, topicWatches := range r.watchers {
		for _, w := range topicWatches {
			watches = append(watches, w)
		}
	}
	redial := !r.closed && len(watches) > 0
	r.mu.Unlock()

	r.log.WithError(cause).Warn("realtime socket closed")
	err := apperrors.Transport(cause, "realtime socket closed")
	for _, w := range watches {
		w.fail(err)
	}
	if redial {
		go r.redial()
	}
}

// redial re-establishes the socket after a drop. Watchers stay registered
// through the outage; connectLocked re-joins their topics once the dial
// succeeds. A Watch call racing the redial dials first and wins.
func (r *Realtime) redial() {
	wait := r.redialWait
	for {
		time.Sleep(wait)

		r.mu.Lock()
		if r.closed || len(r.watchers) == 0 || r.conn != nil {
			r.mu.Unlock()
			return
		}
		err := r.connectLocked()
		r.mu.Unlock()

		if err == nil {
			r.log.Info("realtime socket reconnected")
			return
		}
		r.log.WithError(err).Warn("realtime redial failed")
		if wait < 30*time.Second {
			wait *= 2
		}
	}
}

func (r *Realtime) heartbeat(done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.conn != nil {
				if err := r.sendLocked("phoenix", "heartbeat"); err != nil {
					r.log.WithError(err).Warn("realtime heartbeat failed")
				}
			}
			r.mu.Unlock()
		}
	}
}

// Close closes the socket and detaches every watcher.
func (r *Realtime) Close() error {
	r.mu.Lock()
	r.closed = true
	conn := r.conn
	r.conn = nil
	if r.done != nil {
		select {
		case <-r.done:
		default:
			close(r.done)
		}
	}
	r.watchers = make(map[string]map[int64]*realtimeWatch)
	r.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return conn.Close()
	}
	return nil
}

func (w *realtimeWatch) fire() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if !closed && w.onChange != nil {
		w.onChange()
	}
}

func (w *realtimeWatch) fail(err error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if !closed && w.onError != nil {
		w.onError(err)
	}
}

// Close detaches the watcher, leaving the channel when it was the last one.
func (w *realtimeWatch) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	c := w.client
	c.mu.Lock()
	defer c.mu.Unlock()
	if topicWatches, ok := c.watchers[w.topic]; ok {
		delete(topicWatches, w.id)
		if len(topicWatches) == 0 {
			delete(c.watchers, w.topic)
			if c.conn != nil {
				if err := c.sendLocked(w.topic, "phx_leave"); err != nil {
					return fmt.Errorf("leave channel %s: %w", w.topic, err)
				}
			}
		}
	}
	return nil
}
