package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types pushed by the server. EventConnected is synthesized by the
// listener itself after every successful (re)connect so subscribers can treat
// any delivery gap as "state is stale, refetch everything".
const (
	EventTodos     = "todos"
	EventConnected = "connected"
)

// Event carries only a type discriminator. Receipt is the signal; there is
// no payload to merge.
type Event struct {
	Type string `json:"type"`
}

// EventHandler is invoked once per received event matching the subscription.
type EventHandler func(Event)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// Listener maintains a long-lived one-way push channel to the server and
// reconnects automatically. Within one connection events are dispatched in
// arrival order; no ordering is guaranteed across reconnects.
type Listener struct {
	endpoint string
	types    map[string]struct{}
	handler  EventHandler
	logger   *zap.Logger
	dialer   *websocket.Dialer

	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxAttempts    int // consecutive failed connects before giving up; 0 = never
}

type ListenerOption func(*Listener)

// WithLogger replaces the no-op default logger.
func WithLogger(logger *zap.Logger) ListenerOption {
	return func(l *Listener) { l.logger = logger }
}

// WithBackoff tunes the reconnect backoff window.
func WithBackoff(initial, max time.Duration) ListenerOption {
	return func(l *Listener) {
		l.initialBackoff = initial
		l.maxBackoff = max
	}
}

// WithMaxAttempts bounds consecutive failed connection attempts. When the
// bound is hit Run returns and real-time updates degrade to manual refresh.
func WithMaxAttempts(attempts int) ListenerOption {
	return func(l *Listener) { l.maxAttempts = attempts }
}

// WithListenerToken authenticates the handshake via the access_token query
// parameter, the only channel available to websocket clients.
func WithListenerToken(token string) ListenerOption {
	return func(l *Listener) {
		if token == "" {
			return
		}
		if parsed, err := url.Parse(l.endpoint); err == nil {
			query := parsed.Query()
			query.Set("access_token", token)
			parsed.RawQuery = query.Encode()
			l.endpoint = parsed.String()
		}
	}
}

// NewListener subscribes handler to the named event types on the server's
// push channel. baseURL is the todo API base; the scheme is rewritten for
// the websocket handshake.
func NewListener(baseURL string, types []string, handler EventHandler, opts ...ListenerOption) (*Listener, error) {
	endpoint, err := eventEndpoint(baseURL)
	if err != nil {
		return nil, err
	}

	subscribed := make(map[string]struct{}, len(types))
	for _, t := range types {
		subscribed[t] = struct{}{}
	}

	l := &Listener{
		endpoint:       endpoint,
		types:          subscribed,
		handler:        handler,
		logger:         zap.NewNop(),
		dialer:         websocket.DefaultDialer,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run connects and dispatches events until ctx is cancelled or the attempt
// bound is exhausted. Every successful connect dispatches a synthetic
// connected event before any server event.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.initialBackoff
	failures := 0

	for {
		conn, _, err := l.dialer.DialContext(ctx, l.endpoint, nil)
		if err != nil {
			failures++
			if l.maxAttempts > 0 && failures >= l.maxAttempts {
				return fmt.Errorf("event stream: giving up after %d failed attempts: %w", failures, err)
			}

			l.logger.Warn("event stream connect failed",
				zap.String("endpoint", l.endpoint),
				zap.Int("failures", failures),
				zap.Duration("retry_in", backoff),
				zap.Error(err),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, l.maxBackoff)
			continue
		}

		failures = 0
		backoff = l.initialBackoff
		l.logger.Info("event stream connected", zap.String("endpoint", l.endpoint))

		// Anything may have been missed while disconnected; subscribers
		// resync on this single signal instead of diffing the gap.
		l.dispatch(Event{Type: EventConnected})

		l.readLoop(ctx, conn)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			l.logger.Warn("event stream disconnected", zap.Error(err))
			return
		}

		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			l.logger.Warn("discarding malformed event", zap.Error(err))
			continue
		}

		l.dispatch(event)
	}
}

func (l *Listener) dispatch(event Event) {
	if _, ok := l.types[event.Type]; !ok && event.Type != EventConnected {
		return
	}
	l.handler(event)
}

// eventEndpoint converts the API base URL into the websocket /events URL.
func eventEndpoint(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch {
	case parsed.Scheme == "https":
		parsed.Scheme = "wss"
	case parsed.Scheme == "http":
		parsed.Scheme = "ws"
	case !strings.HasPrefix(parsed.Scheme, "ws"):
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	return parsed.JoinPath("events").String(), nil
}
