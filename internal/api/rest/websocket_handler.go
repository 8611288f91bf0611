package rest

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
	// Slow consumers are dropped rather than allowed to backpressure
	// the scoring path.
	streamClientBuffer = 64
)

// StreamHub fans scored results out to connected websocket clients.
// It implements scoring.ResultPublisher; Publish never blocks.
type StreamHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan *transaction.ScoreResult
	done chan struct{}
}

// NewStreamHub creates an empty hub.
func NewStreamHub(logger *slog.Logger) *StreamHub {
	return &StreamHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The stream is read-only monitoring data; any origin may
			// subscribe.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// Publish enqueues a result for every connected client, dropping it
// for clients whose buffer is full.
func (h *StreamHub) Publish(result *transaction.ScoreResult) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- result:
		default:
			// Client is not keeping up; skip this result for it.
		}
	}
}

// ClientCount reports the number of connected subscribers.
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleStream upgrades the connection and streams verdicts until the
// client disconnects.
func (h *StreamHub) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			"error", err,
			"remote_addr", r.RemoteAddr,
		)
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan *transaction.ScoreResult, streamClientBuffer),
		done: make(chan struct{}),
	}
	h.register(client)
	h.logger.Info("stream client connected",
		"remote_addr", r.RemoteAddr,
		"clients", h.ClientCount(),
	)

	go h.readLoop(client)
	h.writeLoop(client)

	h.unregister(client)
	h.logger.Info("stream client disconnected",
		"remote_addr", r.RemoteAddr,
		"clients", h.ClientCount(),
	)
}

func (h *StreamHub) register(client *streamClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
}

func (h *StreamHub) unregister(client *streamClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.conn.Close()
}

// readLoop drains control frames and detects disconnects. Clients send
// no application data.
func (h *StreamHub) readLoop(client *streamClient) {
	defer close(client.done)
	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHub) writeLoop(client *streamClient) {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case result := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := client.conn.WriteJSON(streamEvent(result)); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func streamEvent(result *transaction.ScoreResult) ScoreResponse {
	return ScoreResponse{
		UserID:           result.EntityKey,
		Amount:           result.Amount,
		FraudProbability: result.FraudProbability,
		Status:           string(result.Verdict),
		Context: ScoreContext{
			AvgSpend:  result.HistoricalAverageAmount,
			Deviation: result.AmountDeviationRatio,
		},
	}
}
