package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// MainnetWSURL is the default Hyperliquid WebSocket endpoint.
const MainnetWSURL = "wss://api.hyperliquid.xyz/ws"

// FillHandler receives fills for the wallet named in the subscription.
type FillHandler func(wallet string, fills []domain.Fill)

// wsCommand is the subscription envelope the venue expects.
type wsCommand struct {
	Method       string         `json:"method"`
	Subscription map[string]any `json:"subscription"`
}

// wsMessage is the envelope of every inbound WebSocket message.
type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// userFillsData is the payload on the userFills channel.
type userFillsData struct {
	User       string     `json:"user"`
	Fills      []wireFill `json:"fills"`
	IsSnapshot bool       `json:"isSnapshot"`
}

// WSClient streams userFills events from Hyperliquid. Fills delivered here
// reach the same deduplicated ingest path as polled batches, so a duplicate
// between the two sources is harmless.
type WSClient struct {
	wsURL  string
	conn   *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex
	closed bool

	// Wallets to (re)subscribe on each connect.
	wallets []string

	handler FillHandler
	done    chan struct{}
}

// NewWSClient creates a WSClient. An empty wsURL selects mainnet.
func NewWSClient(wsURL string, handler FillHandler, logger *slog.Logger) *WSClient {
	if wsURL == "" {
		wsURL = MainnetWSURL
	}
	return &WSClient{
		wsURL:   wsURL,
		handler: handler,
		logger:  logger.With(slog.String("component", "hyperliquid_ws")),
		done:    make(chan struct{}),
	}
}

// SubscribeUserFills registers a wallet for the userFills channel. Wallets
// registered before Run are subscribed on first connect; later registrations
// are subscribed immediately when a connection is live.
func (w *WSClient) SubscribeUserFills(wallet string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, existing := range w.wallets {
		if existing == wallet {
			return nil
		}
	}
	w.wallets = append(w.wallets, wallet)

	if w.conn != nil {
		return w.sendSubscribe(wallet)
	}
	return nil
}

// Run connects and processes messages until ctx is cancelled, reconnecting
// with exponential backoff on any connection failure.
func (w *WSClient) Run(ctx context.Context) error {
	delay := reconnectDelay

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		w.logger.Warn("websocket disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// connectAndRead dials, subscribes all registered wallets, and reads until
// the connection drops or ctx is cancelled.
func (w *WSClient) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("hyperliquid/ws: connect: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	wallets := make([]string, len(w.wallets))
	copy(wallets, w.wallets)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.conn = nil
		w.mu.Unlock()
		_ = conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for _, wallet := range wallets {
		w.mu.Lock()
		err := w.sendSubscribe(wallet)
		w.mu.Unlock()
		if err != nil {
			return fmt.Errorf("hyperliquid/ws: subscribe %s: %w", wallet, err)
		}
	}

	// Ping loop tied to this connection.
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go w.pingLoop(pingCtx, conn)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("hyperliquid/ws: read: %w", err)
		}

		if msg.Channel != "userFills" {
			continue
		}

		var data userFillsData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			w.logger.Warn("malformed userFills payload", slog.String("error", err.Error()))
			continue
		}

		// The initial snapshot replays history already covered by polling.
		if data.IsSnapshot {
			continue
		}

		fills := make([]domain.Fill, 0, len(data.Fills))
		for _, wf := range data.Fills {
			f, err := wf.toDomain()
			if err != nil {
				w.logger.Warn("skipping malformed fill",
					slog.String("wallet", data.User),
					slog.String("error", err.Error()),
				)
				continue
			}
			fills = append(fills, f)
		}

		if len(fills) > 0 && w.handler != nil {
			w.handler(data.User, fills)
		}
	}
}

// sendSubscribe writes a userFills subscription. Caller holds w.mu.
func (w *WSClient) sendSubscribe(wallet string) error {
	if w.conn == nil {
		return domain.ErrWSDisconnect
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(wsCommand{
		Method: "subscribe",
		Subscription: map[string]any{
			"type": "userFills",
			"user": wallet,
		},
	})
}

func (w *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
