package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin already checked
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	go client.writePump()
	go client.readPump()

	s.register <- client
}

// checkOrigin accepts same-host origins and the configured dev address.
func (s *PreviewServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	allowedOrigins := []string{
		r.Host,
		fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		fmt.Sprintf("localhost:%d", s.config.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", s.config.Server.Port),
	}

	for _, allowed := range allowedOrigins {
		if originURL.Host == allowed {
			return true
		}
	}

	return false
}

// ClientCount returns the number of connected live reload clients.
func (s *PreviewServer) ClientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

func (s *PreviewServer) runWebSocketHub(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-s.register:
			if client == nil || client.conn == nil {
				continue
			}
			s.clientsMutex.Lock()
			s.clients[client.conn] = client
			clientCount := len(s.clients)
			s.clientsMutex.Unlock()
			s.logger.Debug(ctx, "client connected", "clients", clientCount)

		case conn := <-s.unregister:
			if conn == nil {
				continue
			}
			s.clientsMutex.Lock()
			if client, ok := s.clients[conn]; ok {
				delete(s.clients, conn)
				close(client.send)
				conn.Close(websocket.StatusNormalClosure, "")
				s.logger.Debug(ctx, "client disconnected", "clients", len(s.clients))
			}
			s.clientsMutex.Unlock()

		case message := <-s.broadcast:
			s.clientsMutex.RLock()
			var failedClients []*websocket.Conn
			for conn, client := range s.clients {
				select {
				case client.send <- message:
				default:
					failedClients = append(failedClients, conn)
				}
			}
			s.clientsMutex.RUnlock()

			if len(failedClients) > 0 {
				s.clientsMutex.Lock()
				for _, conn := range failedClients {
					if client, ok := s.clients[conn]; ok {
						delete(s.clients, conn)
						close(client.send)
						conn.Close(websocket.StatusPolicyViolation, "client too slow")
					}
				}
				s.clientsMutex.Unlock()
			}
		}
	}
}

// readPump drains the connection so close frames and pings are handled.
func (c *Client) readPump() {
	defer func() {
		c.server.unregister <- c.conn
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(context.Background(), pongWait)
		_, _, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				c.server.logger.Debug(context.Background(), "websocket read ended", "error", err.Error())
			}
			return
		}
	}
}

// writePump pumps messages to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.server.logger.Warn(context.Background(), err, "websocket write failed")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
