package netmon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// beaconMessage is the wire shape pushed by a connectivity beacon
// endpoint: {"online": true, "link": "wifi"}.
type beaconMessage struct {
	Online bool   `json:"online"`
	Link   string `json:"link,omitempty"`
}

// SubscribeBeacon connects to a WebSocket endpoint that pushes
// connectivity transitions, updating the Monitor's state immediately
// on receipt instead of waiting for the next poll tick. Reconnects
// with backoff on a dropped connection. Runs until ctx is canceled.
func (m *Monitor) SubscribeBeacon(ctx context.Context, url string) {
	go m.runBeacon(ctx, url)
}

func (m *Monitor) runBeacon(ctx context.Context, url string) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.connectBeacon(ctx, url); err != nil {
			m.logger.Warn("connectivity beacon connection failed", "error", err, "retry_in", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (m *Monitor) connectBeacon(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("netmon: dialing beacon: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	for {
		var msg beaconMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return fmt.Errorf("netmon: reading beacon message: %w", err)
		}

		m.logger.Debug("connectivity beacon message", slog.Bool("online", msg.Online), slog.String("link", msg.Link))
		m.setState(State{Online: msg.Online, Link: Link(msg.Link)})
	}
}
