package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskpoolio/taskpool/pkg/pool"
)

// Inspector serves an HTTP debug surface over a running pool:
//
//	GET /status   point-in-time pool stats as JSON
//	GET /metrics  Prometheus exposition (when a Gatherer is configured)
//	GET /watch    WebSocket stream of the status document
type Inspector struct {
	pool     pool.Pool
	addr     string
	gatherer prometheus.Gatherer
	interval time.Duration
	logger   pool.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	stop     chan struct{}
}

// Config configures an Inspector.
type Config struct {
	// Addr is the listen address, e.g. "localhost:9190".
	// ":0" picks an ephemeral port; see Addr() for the bound address.
	Addr string

	// Gatherer serves /metrics. nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// WatchInterval is the /watch stream period. Zero selects one second.
	WatchInterval time.Duration

	// Logger receives serve and upgrade errors. nil selects the default.
	Logger pool.Logger
}

// New creates an Inspector bound to p. Call Start to begin serving.
func New(p pool.Pool, cfg Config) *Inspector {
	interval := cfg.WatchInterval
	if interval <= 0 {
		interval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pool.NewDefaultLogger()
	}

	return &Inspector{
		pool:     p,
		addr:     cfg.Addr,
		gatherer: cfg.Gatherer,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // debug surface, allow all origins
			},
		},
		stop: make(chan struct{}),
	}
}

// Handler returns the inspector's routes, for mounting into an existing
// server instead of running Start.
func (i *Inspector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", i.handleStatus)
	mux.HandleFunc("/watch", i.handleWatch)
	if i.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(i.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start begins serving in the background.
func (i *Inspector) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.listener != nil {
		return fmt.Errorf("inspector is already running")
	}

	ln, err := net.Listen("tcp", i.addr)
	if err != nil {
		return fmt.Errorf("inspector failed to listen on %s: %w", i.addr, err)
	}
	i.listener = ln
	i.server = &http.Server{Handler: i.Handler()}

	go func() {
		if err := i.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			i.logger.Errorf("inspector serve error: %v", err)
		}
	}()

	i.logger.Infof("inspector listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (i *Inspector) Addr() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.listener == nil {
		return ""
	}
	return i.listener.Addr().String()
}

// Stop gracefully shuts the server down and ends all watch streams.
func (i *Inspector) Stop(ctx context.Context) error {
	i.mu.Lock()
	server := i.server
	i.server = nil
	i.listener = nil
	i.mu.Unlock()

	if server == nil {
		return nil
	}
	close(i.stop)

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("inspector shutdown: %w", err)
	}
	return nil
}

// handleStatus writes the pool's status document.
func (i *Inspector) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(i.pool.Stats()); err != nil {
		i.logger.Errorf("inspector: failed to encode status: %v", err)
	}
}

// handleWatch upgrades to WebSocket and streams the status document until
// the client disconnects or the inspector stops.
func (i *Inspector) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := i.upgrader.Upgrade(w, r, nil)
	if err != nil {
		i.logger.Errorf("inspector: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Reader loop solely to observe the client going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	if err := conn.WriteJSON(i.pool.Stats()); err != nil {
		return
	}
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteJSON(i.pool.Stats()); err != nil {
				return
			}
		case <-clientGone:
			return
		case <-i.stop:
			return
		}
	}
}
