package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/fieldkit/fieldsync/models"
)

// WSConfig configures the websocket transport.
type WSConfig struct {
	URL          string
	PingInterval time.Duration
	WriteTimeout time.Duration

	// TokenFunc, when set, supplies the bearer token attached to the
	// handshake request.
	TokenFunc func() string
}

// wsTransport implements [Transport] over a websocket endpoint speaking
// the fieldsync realtime protocol: one subscribe frame up, a stream of
// change/broadcast frames down.
type wsTransport struct {
	cfg WSConfig
}

// NewWSTransport constructs the websocket [Transport].
func NewWSTransport(cfg WSConfig) Transport {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &wsTransport{cfg: cfg}
}

type subscribeFrame struct {
	Type   string              `json:"type"`
	Tables []models.EntityType `json:"tables"`
}

type inboundFrame struct {
	Type      string                 `json:"type"`
	Change    *models.ChangeEvent    `json:"change,omitempty"`
	Broadcast *models.BroadcastEvent `json:"broadcast,omitempty"`
}

func (t *wsTransport) Subscribe(ctx context.Context, tables []models.EntityType) (Subscription, error) {
	header := make(map[string][]string)
	if t.cfg.TokenFunc != nil {
		if token := t.cfg.TokenFunc(); token != "" {
			header["Authorization"] = []string{"Bearer " + token}
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial realtime endpoint: %w", err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	if err = conn.WriteJSON(subscribeFrame{Type: "subscribe", Tables: tables}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscribe frame: %w", err)
	}

	sub := &wsSubscription{
		conn:       conn,
		events:     make(chan models.ChangeEvent, 64),
		broadcasts: make(chan models.BroadcastEvent, 16),
		done:       make(chan error, 1),
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	sub.cancel = cancel

	g, pumpCtx := errgroup.WithContext(pumpCtx)
	g.Go(func() error { return sub.readPump(pumpCtx) })
	g.Go(func() error { return sub.pingPump(pumpCtx, t.cfg.PingInterval, t.cfg.WriteTimeout) })
	go func() {
		sub.done <- g.Wait()
		close(sub.events)
		close(sub.broadcasts)
	}()

	return sub, nil
}

type wsSubscription struct {
	conn       *websocket.Conn
	cancel     context.CancelFunc
	events     chan models.ChangeEvent
	broadcasts chan models.BroadcastEvent
	done       chan error
}

func (s *wsSubscription) Events() <-chan models.ChangeEvent        { return s.events }
func (s *wsSubscription) Broadcasts() <-chan models.BroadcastEvent { return s.broadcasts }
func (s *wsSubscription) Done() <-chan error                       { return s.done }

func (s *wsSubscription) Close() error {
	s.cancel()
	return s.conn.Close()
}

func (s *wsSubscription) readPump(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read realtime frame: %w", err)
		}

		var frame inboundFrame
		if err = json.Unmarshal(data, &frame); err != nil {
			// One malformed frame must not kill the subscription.
			continue
		}

		switch {
		case frame.Type == "change" && frame.Change != nil:
			select {
			case s.events <- *frame.Change:
			case <-ctx.Done():
				return ctx.Err()
			}
		case frame.Type == "broadcast" && frame.Broadcast != nil:
			select {
			case s.broadcasts <- *frame.Broadcast:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (s *wsSubscription) pingPump(ctx context.Context, interval, writeTimeout time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}
