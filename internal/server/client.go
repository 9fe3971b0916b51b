// client.go
// The read goroutine listens to frames from the browser and hands them to the relay manager.
// The write goroutine drains the client's send queue back to the browser.
// Separating read/write keeps a slow browser from stalling the relay loop.

package server

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"wsrelay/internal/logging"
	"wsrelay/internal/relay"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	ErrClientClosed    = errors.New("client connection closed")
	ErrSendBufferFull  = errors.New("client send buffer full")
	errUnsupportedType = errors.New("unsupported websocket frame type")
)

// ClientOptions tunes every accepted connection.
type ClientOptions struct {
	SendBufferSize int
	MaxMessageSize int64
	// RateLimit is in frames per second; zero means unlimited.
	RateLimit float64
	RateBurst int
}

// Client is the relay.Conn backed by one WebSocket.
type Client struct {
	socket  *websocket.Conn
	send    chan []byte
	closed  chan struct{}
	open    atomic.Bool
	once    sync.Once
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newClient(socket *websocket.Conn, opts ClientOptions) *Client {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	c := &Client{
		socket:  socket,
		send:    make(chan []byte, opts.SendBufferSize),
		closed:  make(chan struct{}),
		limiter: rate.NewLimiter(limit, opts.RateBurst),
		logger:  logging.Logger,
	}
	c.open.Store(true)

	if opts.MaxMessageSize > 0 {
		socket.SetReadLimit(opts.MaxMessageSize)
	}
	return c
}

// Send queues data for the write goroutine. It never blocks.
func (c *Client) Send(data []byte) error {
	if !c.open.Load() {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Open reports whether the socket can still take frames.
func (c *Client) Open() bool {
	return c.open.Load()
}

// Close stops the write goroutine and closes the socket. The read goroutine
// then fails and reports the close to the manager.
func (c *Client) Close() {
	c.once.Do(func() {
		c.open.Store(false)
		close(c.closed)
	})
}

func (c *Client) read(manager *relay.Manager) {
	defer func() {
		c.Close()
		manager.OnClose(c)
		c.socket.Close()
	}()

	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		c.socket.SetReadDeadline(time.Now().Add(pongWait))

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			c.logger.Warn("dropping frame", "error", errUnsupportedType, "frame_type", msgType)
			continue
		}
		if !c.limiter.Allow() {
			c.logger.Warn("rate limit exceeded, dropping frame")
			continue
		}
		manager.OnMessage(c, string(message))
	}
}

func (c *Client) write() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write failed", "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("websocket ping failed", "error", err)
				c.Close()
				return
			}

		case <-c.closed:
			c.socket.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (c *Client) bind(clientID string) {
	c.logger = logging.WithClient(clientID)
}
