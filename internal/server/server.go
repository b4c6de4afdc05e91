// Package server serves component assets and runs the development preview
// server with live reload.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/tagx/internal/catalog"
	"github.com/conneroisu/tagx/internal/config"
	tagxerrors "github.com/conneroisu/tagx/internal/errors"
	"github.com/conneroisu/tagx/internal/logging"
	"github.com/conneroisu/tagx/internal/registry"
	"github.com/conneroisu/tagx/internal/watcher"
)

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *PreviewServer
}

// PreviewServer renders catalog components in the browser and reloads the
// page when their files change.
type PreviewServer struct {
	config       *config.Config
	catalog      *catalog.Catalog
	registry     *registry.ComponentRegistry
	watcher      *watcher.FileWatcher
	logger       logging.Logger
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	scanErrors   *tagxerrors.ErrorCollector
	errorsMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message types sent over the live reload socket.
const (
	MessageReload = "reload"
	MessageError  = "error"
)

// New creates a preview server for the components of cat.
func New(cfg *config.Config, cat *catalog.Catalog, logger logging.Logger) (*PreviewServer, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")

	fileWatcher, err := watcher.NewFileWatcher(300*time.Millisecond, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &PreviewServer{
		config:     cfg,
		catalog:    cat,
		registry:   registry.NewComponentRegistry(),
		watcher:    fileWatcher,
		logger:     logger,
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		scanErrors: tagxerrors.NewErrorCollector(),
	}, nil
}

// Registry returns the component listing the server keeps up to date.
func (s *PreviewServer) Registry() *registry.ComponentRegistry {
	return s.registry
}

// Start scans the catalog, watches its folders, and serves until ctx is
// done or the listener fails.
func (s *PreviewServer) Start(ctx context.Context) error {
	if s.config.Server.LiveReload {
		s.setupFileWatcher(ctx)
	}

	if err := s.Scan(ctx); err != nil {
		s.logger.Error(ctx, err, "initial scan failed")
	}

	go s.runWebSocketHub(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "preview server listening", "addr", "http://"+addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Handler returns the routes of the preview server behind the static
// asset middleware.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/components", s.handleComponents)
	mux.HandleFunc("/render/", s.handleRender)
	mux.HandleFunc("/", s.handleIndex)

	static := StaticMiddleware(s.config.RootURL, s.config.Server.AllowedExt, s.catalog.Locate)
	return s.logRequests(static(mux))
}

// Scan refreshes the component listing and remembers the components that
// failed to load.
func (s *PreviewServer) Scan(ctx context.Context) error {
	collector, err := s.registry.Scan(ctx, s.catalog)
	if err != nil {
		return err
	}

	s.errorsMutex.Lock()
	s.scanErrors = collector
	s.errorsMutex.Unlock()

	for _, e := range collector.GetErrors() {
		s.logger.Warn(ctx, e.Err, "component failed to load", "component", e.Component, "file", e.File)
	}
	s.logger.Info(ctx, "scanned components", "count", s.registry.Count())
	return nil
}

func (s *PreviewServer) errorOverlay() string {
	s.errorsMutex.RLock()
	defer s.errorsMutex.RUnlock()
	return s.scanErrors.ErrorOverlay()
}

func (s *PreviewServer) setupFileWatcher(ctx context.Context) {
	exts := append(append([]string(nil), s.config.FileExtensions...), s.config.Server.AllowedExt...)
	s.watcher.AddFilter(watcher.ExtensionFilter(exts...))
	s.watcher.AddFilter(watcher.NoHiddenFilter)

	s.watcher.AddHandler(watcher.InvalidateHandler(s.catalog))
	s.watcher.AddHandler(func(events []watcher.ChangeEvent) error {
		return s.handleFileChange(ctx, events)
	})

	for _, roots := range s.catalog.Prefixes() {
		for _, root := range roots {
			if err := s.watcher.AddRecursive(root); err != nil {
				s.logger.Warn(ctx, err, "failed to watch folder", "path", root)
			}
		}
	}

	if err := s.watcher.Start(ctx); err != nil {
		s.logger.Error(ctx, err, "failed to start file watcher")
	}
}

func (s *PreviewServer) handleFileChange(ctx context.Context, events []watcher.ChangeEvent) error {
	for _, event := range events {
		s.logger.Debug(ctx, "file changed", "path", event.Path, "type", event.Type.String())
	}

	if err := s.Scan(ctx); err != nil {
		return err
	}

	if overlay := s.errorOverlay(); overlay != "" {
		s.broadcastMessage(UpdateMessage{Type: MessageError, Content: overlay, Timestamp: time.Now()})
		return nil
	}

	msg := UpdateMessage{Type: MessageReload, Timestamp: time.Now()}
	if len(events) == 1 {
		msg.Target = events[0].Path
	}
	s.broadcastMessage(msg)
	return nil
}

func (s *PreviewServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *PreviewServer) broadcastMessage(msg UpdateMessage) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "failed to marshal message")
		jsonData = []byte(`{"type":"reload"}`)
	}

	select {
	case s.broadcast <- jsonData:
	default:
		s.logger.Warn(context.Background(), nil, "dropping live reload message, hub is busy")
	}
}

// Shutdown gracefully shuts down the server and cleans up resources
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down preview server")

		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn(ctx, err, "failed to stop file watcher")
		}

		s.clientsMutex.Lock()
		for conn, client := range s.clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		s.clients = make(map[*websocket.Conn]*Client)
		s.clientsMutex.Unlock()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}
