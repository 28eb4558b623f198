package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/driftwoodchat/driftwood/internal/platform/timeouts"
	"github.com/driftwoodchat/driftwood/internal/services/relay/storage"
)

// A connection is dropped after this many consecutive undecodable frames.
const maxDecodeErrorsPerConn = 3

// Config carries the tunable parts of the relay. Zero values fall back to
// production defaults.
type Config struct {
	HTTPAddr          string
	IdleTimeout       time.Duration
	ReapInterval      time.Duration
	PresenceInterval  time.Duration
	HistoryLimit      int
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

func (c *Config) norm() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 10 * time.Minute
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = 5 * time.Minute
	}
	if c.PresenceInterval <= 0 {
		c.PresenceInterval = time.Minute
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = timeouts.Shutdown
	}
}

// peer serializes writes to one connection. Handlers on other connections
// and the background workers all write through it.
type peer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	conn   io.Closer
	closed bool
}

func newPeer(conn io.WriteCloser) *peer {
	return &peer{enc: json.NewEncoder(conn), conn: conn}
}

func (p *peer) writeRecord(record any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("peer is closed")
	}
	return p.enc.Encode(record)
}

func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	_ = p.conn.Close()
}

// Server is the relay process: one HTTP listener carrying the WebSocket
// endpoint and the liveness endpoint, plus the reaper and presence workers.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	stopWorkers     context.CancelFunc
	workersDone     chan struct{}
}

func NewServer(config Config, store storage.MessageStore) (*Server, error) {
	if store == nil {
		return nil, storage.ErrNotConfigured
	}
	config.norm()

	c := newCore(store, time.Now, config.HistoryLimit)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.runReaper(workerCtx, config.IdleTimeout, config.ReapInterval)
	}()
	go func() {
		defer wg.Done()
		c.runPresenceHeartbeat(workerCtx, config.PresenceInterval)
	}()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	return &Server{
		httpServer: &http.Server{
			Addr:              config.HTTPAddr,
			Handler:           newHandler(c),
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
		shutdownTimeout: config.ShutdownTimeout,
		stopWorkers:     stopWorkers,
		workersDone:     done,
	}, nil
}

// NewHandler returns the relay HTTP handler without the listener or the
// background workers. Intended for tests.
func NewHandler(store storage.MessageStore) http.Handler {
	return newHandler(newCore(store, time.Now, defaultHistoryLimit))
}

func newHandler(c *core) http.Handler {
	wsHandler := websocket.Handler(c.handleConn)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
	mux.HandleFunc("/up", c.handleLiveness)
	return mux
}

func (c *core) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(livenessRecord{
		Status:        "ok",
		Connections:   c.peers.size(),
		UptimeSeconds: c.clock().Sub(c.started).Seconds(),
	})
}

// handleConn runs the read loop for one WebSocket connection. Frames are
// newline-delimited JSON records decoded straight off the socket.
func (c *core) handleConn(ws *websocket.Conn) {
	p := newPeer(ws)
	c.peers.add(p)
	sess := &session{peer: p}
	defer c.disconnect(sess)

	var source io.Reader = ws
	decoder := json.NewDecoder(source)
	decodeErrors := 0
	for {
		var f frame
		if err := decoder.Decode(&f); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				// I/O error or clean close; either way the connection
				// is done.
				return
			}
			decodeErrors++
			log.Printf("dropping malformed frame: %v", err)
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			if syntaxErr != nil {
				// A syntax error poisons the decoder. Frames are
				// newline-delimited, so discard through the end of the
				// bad line and resume. The decoder's buffer is carried
				// over; a valid frame that arrived behind the bad one
				// is not lost.
				stream := bufio.NewReader(io.MultiReader(decoder.Buffered(), source))
				if _, err := stream.ReadBytes('\n'); err != nil {
					return
				}
				source = stream
				decoder = json.NewDecoder(source)
			}
			continue
		}
		decodeErrors = 0
		c.handleFrame(sess, f)
	}
}

// ListenAndServe blocks until ctx is canceled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()
	log.Printf("listening on %s", s.httpServer.Addr)

	select {
	case err := <-serveErr:
		s.stopWorkers()
		<-s.workersDone
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.stopWorkers()
	<-s.workersDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the server resources without a graceful drain.
func (s *Server) Close() error {
	s.stopWorkers()
	<-s.workersDone
	return s.httpServer.Close()
}
