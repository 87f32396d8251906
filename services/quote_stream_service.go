package services

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stockwatch_backend/services/marketdata"
)

// WebSocket configuration
const (
	MaxStreamClients      = 100
	StreamWriteTimeout    = 10 * time.Second
	StreamPongTimeout     = 60 * time.Second
	StreamPingInterval    = 30 * time.Second
	streamSendBufferDepth = 64
)

// StreamMessage is the envelope broadcast to connected clients.
type StreamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time string      `json:"time"`
}

type streamClient struct {
	conn *websocket.Conn
	send chan StreamMessage
}

// QuoteStreamService pushes quote updates to WebSocket clients after each
// refresh cycle.
type QuoteStreamService struct {
	mu       sync.RWMutex
	clients  map[*streamClient]bool
	upgrader websocket.Upgrader
}

// Global quote stream instance
var GlobalQuoteStream *QuoteStreamService

// InitQuoteStreamService initializes the quote stream hub.
func InitQuoteStreamService() {
	GlobalQuoteStream = &QuoteStreamService{
		clients: make(map[*streamClient]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	log.Println("Quote stream service initialized")
}

// HandleWS upgrades the request and serves the client until it disconnects.
func (s *QuoteStreamService) HandleWS(c *gin.Context) {
	s.mu.RLock()
	count := len(s.clients)
	s.mu.RUnlock()
	if count >= MaxStreamClients {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many stream clients"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan StreamMessage, streamSendBufferDepth),
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go s.writePump(client)
	s.readPump(client)
}

// BroadcastQuote fans a quote update out to every connected client. Slow
// clients are dropped rather than blocking the refresh cycle.
func (s *QuoteStreamService) BroadcastQuote(quote marketdata.QuoteRecord) {
	if s == nil {
		return
	}
	msg := StreamMessage{
		Type: "quote",
		Data: quote,
		Time: time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		select {
		case client.send <- msg:
		default:
			// Buffer full; the write pump will notice the closed conn.
			client.conn.Close()
		}
	}
}

// ClientCount returns the number of connected stream clients.
func (s *QuoteStreamService) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *QuoteStreamService) removeClient(client *streamClient) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
	s.mu.Unlock()
	client.conn.Close()
}

// readPump consumes (and discards) client frames to detect disconnects and
// keep pong handling alive.
func (s *QuoteStreamService) readPump(client *streamClient) {
	defer s.removeClient(client)

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(StreamPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(StreamPongTimeout))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *QuoteStreamService) writePump(client *streamClient) {
	ticker := time.NewTicker(StreamPingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(StreamWriteTimeout))
			if err := client.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(StreamWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
