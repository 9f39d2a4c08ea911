package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"xof_converter/internal/domain"
	"xof_converter/internal/engine"
	"xof_converter/internal/infra"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsPingInterval = 30 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 32
)

// Messages the browser sends
const (
	msgAmount = "amount"
	msgFrom   = "from"
	msgTo     = "to"
	msgSwap   = "swap"
	msgSave   = "save"
)

// Messages the server pushes
const (
	msgState     = "state"
	msgFavorites = "favorites"
)

// clientMessage is one browser input
type clientMessage struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// serverMessage is one push to the browser
type serverMessage struct {
	Type      string             `json:"type"`
	SessionID string             `json:"session_id"`
	State     *engine.State      `json:"state,omitempty"`
	Favorites *FavoritesResponse `json:"favorites,omitempty"`
}

// SessionConfig is what every websocket session starts from
type SessionConfig struct {
	Debounce time.Duration
	From     string
	To       string
}

// wsClient is one connected browser. Writes go through send so that the
// session loop never blocks on the network.
type wsClient struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	send    chan serverMessage
}

// threadSafeWrite sends a message to the WebSocket connection in a thread-safe manner
func (c *wsClient) threadSafeWrite(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// enqueue drops the message when the client cannot keep up
func (c *wsClient) enqueue(msg serverMessage) {
	select {
	case c.send <- msg:
	default:
		slog.Warn("WebSocket client lagging, message dropped",
			slog.String("session_id", c.id),
			slog.String("type", msg.Type),
		)
	}
}

// Hub owns the websocket sessions and fans favorites changes out to them
type Hub struct {
	resolver  domain.Resolver
	catalog   *domain.Catalog
	favorites favoritesSource
	metrics   *infra.Metrics
	cfg       SessionConfig
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
}

// favoritesSource is the part of the favorites store the hub needs
type favoritesSource interface {
	engine.FavoriteSaver
	List() []domain.FavoriteEntry
	Max() int
	Subscribe(fn func([]domain.FavoriteEntry))
}

// NewHub creates a hub and subscribes it to favorites changes
func NewHub(resolver domain.Resolver, catalog *domain.Catalog, favorites favoritesSource, metrics *infra.Metrics, cfg SessionConfig) *Hub {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	h := &Hub{
		resolver:  resolver,
		catalog:   catalog,
		favorites: favorites,
		metrics:   metrics,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS configuration of the local service
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
	if favorites != nil {
		favorites.Subscribe(h.broadcastFavorites)
	}
	return h
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastFavorites(entries []domain.FavoriteEntry) {
	resp := newFavoritesResponse(h.favorites.Max(), entries)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(serverMessage{Type: msgFavorites, SessionID: c.id, Favorites: &resp})
	}
}

// ServeWS upgrades the request and runs one converter session over it.
//
// Endpoint: GET /ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan serverMessage, wsSendBuffer),
	}
	logger := slog.Default().With("module", "ws", "session_id", client.id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := engine.NewSession(h.resolver, engine.SessionOptions{
		Debounce:  h.cfg.Debounce,
		From:      h.cfg.From,
		To:        h.cfg.To,
		Catalog:   h.catalog,
		Favorites: h.favorites,
		Metrics:   h.metrics,
	}, func(st engine.State) {
		client.enqueue(serverMessage{Type: msgState, SessionID: client.id, State: &st})
	})

	h.register(client)
	defer h.unregister(client)
	logger.Info("WebSocket session opened", slog.String("remote", r.RemoteAddr))

	if h.favorites != nil {
		resp := newFavoritesResponse(h.favorites.Max(), h.favorites.List())
		client.enqueue(serverMessage{Type: msgFavorites, SessionID: client.id, Favorites: &resp})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		session.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, client, logger)
	}()

	h.readLoop(client, session, logger)

	cancel()
	conn.Close()
	wg.Wait()
	logger.Info("WebSocket session closed")
}

// readLoop forwards browser input to the session until the connection drops
func (h *Hub) readLoop(c *wsClient, session *engine.Session, logger *slog.Logger) {
	c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", slog.Any("error", err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Debug("WebSocket message parse error", slog.Any("error", err))
			continue
		}

		switch msg.Type {
		case msgAmount:
			session.SetAmount(msg.Value)
		case msgFrom:
			session.SetFrom(msg.Value)
		case msgTo:
			session.SetTo(msg.Value)
		case msgSwap:
			session.Swap()
		case msgSave:
			session.SaveFavorite()
		default:
			logger.Debug("Unknown WebSocket message", slog.String("type", msg.Type))
		}
	}
}

// writeLoop drains the send queue and keeps the connection alive
func (h *Hub) writeLoop(ctx context.Context, c *wsClient, logger *slog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.threadSafeWrite(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			b, err := json.Marshal(msg)
			if err != nil {
				logger.Error("Failed to encode WebSocket message", slog.Any("error", err))
				continue
			}
			if err := c.threadSafeWrite(websocket.TextMessage, b); err != nil {
				logger.Debug("WebSocket write failed", slog.Any("error", err))
				c.conn.Close() // unblocks readLoop
				return
			}
		case <-ticker.C:
			if err := c.threadSafeWrite(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.metrics.IncrementSessions()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	h.metrics.DecrementSessions()
}
