// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 256
	writeTimeout    = time.Second
)

// WebSocketTransport broadcasts every payload as JSON to the clients
// connected on /ws. Payloads are queued on a buffered channel and dropped
// when the queue is full, so a slow client never stalls the frame loop.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once

	listener net.Listener
	server   *http.Server

	// Minimum time between broadcasts; zero sends everything.
	minInterval time.Duration
	sendMu      sync.Mutex
	lastSend    time.Time
	dropped     int
}

// NewWebSocketTransport listens on addr and starts serving /ws. Payloads
// arriving less than minInterval after the previous broadcast are skipped.
func NewWebSocketTransport(addr string, minInterval time.Duration) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // visualiser clients are served from anywhere
			},
		},
		clients:     make(map[*websocket.Conn]bool),
		broadcast:   make(chan any, broadcastBuffer),
		done:        make(chan struct{}),
		listener:    ln,
		minInterval: minInterval,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	wst.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Infof("websocket server listening on %s/ws", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("websocket server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	return wst, nil
}

// Addr returns the address the server is listening on.
func (wst *WebSocketTransport) Addr() net.Addr { return wst.listener.Addr() }

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	logger.Infof("client %s connected, total: %d", conn.RemoteAddr(), total)

	// Clients only listen; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	if ok {
		conn.Close()
		logger.Infof("client %s disconnected, total: %d", conn.RemoteAddr(), total)
	}
}

// handleBroadcasts marshals each payload once and writes it to every client.
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		var data any
		select {
		case <-wst.done:
			return
		case data = <-wst.broadcast:
		}

		msg, err := json.Marshal(data)
		if err != nil {
			logger.Errorf("failed to marshal %T: %v", data, err)
			continue
		}

		wst.clientsMu.Lock()
		var failed []*websocket.Conn
		for client := range wst.clients {
			client.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Warnf("error sending to %s: %v", client.RemoteAddr(), err)
				failed = append(failed, client)
			}
		}
		wst.clientsMu.Unlock()

		for _, c := range failed {
			wst.drop(c)
		}
	}
}

// Send queues data for broadcast. It never blocks.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return errors.New("websocket transport is closed")
	default:
	}

	wst.sendMu.Lock()
	defer wst.sendMu.Unlock()

	if wst.minInterval > 0 {
		now := time.Now()
		if now.Sub(wst.lastSend) < wst.minInterval {
			return nil
		}
		wst.lastSend = now
	}

	select {
	case wst.broadcast <- data:
	default:
		wst.dropped++
		if wst.dropped%broadcastBuffer == 1 {
			logger.Warnf("broadcast queue full, %d payloads dropped", wst.dropped)
		}
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		logger.Infof("closing websocket server")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		err = wst.server.Close()
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface.
var _ Transport = (*WebSocketTransport)(nil)
