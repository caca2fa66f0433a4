// Package bus publishes session events to a websocket hub, so a UI or another
// shard can follow the conversation.
package bus

import (
	"encoding/json"
	"errors"
	log "log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"jarvis/internal/session"
)

const (
	writeTimeout  = 2 * time.Second
	redialBackoff = 5 * time.Second
	closeTimeout  = 2 * writeTimeout
	queueSize     = 64
)

type Message struct {
	From    string    `json:"from"`
	To      string    `json:"to,omitempty"`
	Kind    string    `json:"kind"`
	Content string    `json:"content,omitempty"`
	Session string    `json:"session"`
	At      time.Time `json:"at"`
}

// Bus queues messages for a single sender goroutine, which owns the
// connection. Report never blocks: when the queue is full the event is dropped.
type Bus struct {
	dialer ws.Dialer
	url    string
	from   string
	conn   *ws.Conn

	mu     sync.Mutex
	queue  chan *Message
	closed bool
	done   chan struct{}
}

func newBus(wsURL, from string) *Bus {
	return &Bus{
		dialer: ws.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: writeTimeout,
		},
		url:   wsURL,
		from:  from,
		queue: make(chan *Message, queueSize),
		done:  make(chan struct{}),
	}
}

// Dial connects to the hub at wsURL. Messages are sent with from as sender.
func Dial(wsURL, from string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	b := newBus(u.String(), from)
	conn, _, err := b.dialer.Dial(b.url, nil)
	if err != nil {
		return nil, err
	}
	b.conn = conn
	go b.run()

	log.Info("Connected to bus", "url", wsURL)
	return b, nil
}

// Report implements session.Reporter.
func (b *Bus) Report(ev session.Event) {
	b.Publish(&Message{
		From:    b.from,
		Kind:    ev.State.String(),
		Content: ev.Text,
		Session: ev.Session,
		At:      ev.At,
	})
}

// Publish queues m. It reports false when m was dropped.
func (b *Bus) Publish(m *Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	select {
	case b.queue <- m:
		return true
	default:
		log.Debug("Bus queue full, dropping event", "kind", m.Kind)
		return false
	}
}

func (b *Bus) run() {
	defer close(b.done)
	defer b.hangup()

	var retryAt time.Time
	for m := range b.queue {
		if b.conn == nil && time.Now().Before(retryAt) {
			continue // hub is down, drop until the next redial attempt
		}
		if err := b.send(m); err != nil {
			log.Warn("Failed to publish event", "kind", m.Kind, "err", err)
			if b.conn == nil {
				retryAt = time.Now().Add(redialBackoff)
			}
		}
	}
}

// send writes m, redialing once if the connection has gone away.
func (b *Bus) send(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	if b.conn != nil {
		err := b.write(data)
		if err == nil {
			return nil
		}
		log.Debug("Bus write failed, redialing", "err", err)
		b.conn.Close()
		b.conn = nil
	}

	conn, _, err := b.dialer.Dial(b.url, nil)
	if err != nil {
		return err
	}
	b.conn = conn
	return b.write(data)
}

func (b *Bus) write(data []byte) error {
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return b.conn.WriteMessage(ws.TextMessage, data)
}

func (b *Bus) hangup() {
	if b.conn == nil {
		return
	}
	_ = b.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	b.conn.Close()
	b.conn = nil
}

// Close flushes queued messages and closes the connection, giving up after
// closeTimeout.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-time.After(closeTimeout):
		return errors.New("bus: timed out flushing events")
	}
}
