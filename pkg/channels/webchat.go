package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/gptchat/gptchat/pkg/config"
	"github.com/gptchat/gptchat/pkg/logger"
	"github.com/gptchat/gptchat/pkg/widget"
)

// WebChatChannel serves the chat page and drives one widget per browser
// connection. The browser only draws what the widget tells it to.
type WebChatChannel struct {
	config   config.WebConfig
	asker    widget.Asker
	fallback string
	server   *http.Server
	addr     string
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
	sessions map[string]*webSession // sessionID -> live connection
	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.RWMutex
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Time    string `json:"time"`
}

func NewWebChatChannel(cfg config.WebConfig, asker widget.Asker, fallback string) *WebChatChannel {
	limit := rate.Inf
	if cfg.AcceptRate > 0 {
		limit = rate.Limit(cfg.AcceptRate)
	}
	burst := cfg.AcceptBurst
	if burst <= 0 {
		burst = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebChatChannel{
		config:   cfg,
		asker:    asker,
		fallback: fallback,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		limiter:  rate.NewLimiter(limit, burst),
		sessions: make(map[string]*webSession),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Handler returns the routes without starting a listener.
func (c *WebChatChannel) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", c.handleUI)
	mux.HandleFunc("/chat/ws", c.handleWS)
	mux.HandleFunc("/chat/poll", c.handlePoll)
	mux.HandleFunc("/healthz", c.handleHealth)
	return mux
}

func (c *WebChatChannel) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", c.config.Addr())
	if err != nil {
		return fmt.Errorf("webchat: listen %s: %w", c.config.Addr(), err)
	}
	c.addr = ln.Addr().String()
	c.server = &http.Server{
		Handler:           c.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	c.running.Store(true)

	logger.InfoCF("webchat", "WebChat started", map[string]interface{}{"addr": c.addr})

	go func() {
		if err := c.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("webchat", "WebChat server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	return nil
}

// Stop shuts the server down and drops live connections. Requests still in
// flight are cancelled through their connection context.
func (c *WebChatChannel) Stop(ctx context.Context) error {
	c.running.Store(false)
	c.cancel()

	c.mu.RLock()
	live := make([]*webSession, 0, len(c.sessions))
	for _, s := range c.sessions {
		live = append(live, s)
	}
	c.mu.RUnlock()
	for _, s := range live {
		s.close()
	}

	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

func (c *WebChatChannel) IsRunning() bool { return c.running.Load() }

// Addr is the bound listen address once Start has returned.
func (c *WebChatChannel) Addr() string { return c.addr }

// Sessions returns the number of live browser connections.
func (c *WebChatChannel) Sessions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

func (c *WebChatChannel) handleWS(w http.ResponseWriter, r *http.Request) {
	if !c.limiter.Allow() {
		logger.WarnCF("webchat", "Connection rejected by rate limit", map[string]interface{}{"remote": r.RemoteAddr})
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnCF("webchat", "Websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	s := newWebSession(conn, cancel, c.config.MarkdownReplies)
	s.widget = widget.New(c.asker, s, s.input,
		widget.WithFallbackText(c.fallback),
		widget.WithLauncher(widget.Go),
	)
	id := s.widget.SessionID()

	c.mu.Lock()
	c.sessions[id] = s
	c.mu.Unlock()

	logger.InfoCF("webchat", "Session opened", map[string]interface{}{"session": id, "remote": r.RemoteAddr})

	go s.writeLoop()
	s.enqueue(frame{Type: "session", SessionID: id})
	s.readLoop(ctx)

	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
	s.close()

	logger.InfoCF("webchat", "Session closed", map[string]interface{}{"session": id})
}

func (c *WebChatChannel) handlePoll(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	c.mu.RLock()
	s, ok := c.sessions[id]
	c.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	transcript := s.widget.Transcript()
	msgs := make([]chatMessage, 0, len(transcript))
	for _, m := range transcript {
		msgs = append(msgs, chatMessage{Role: m.Role(), Content: m.Text, Time: m.Time.Format("15:04:05")})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs)
}

func (c *WebChatChannel) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "sessions": c.Sessions()})
}

func (c *WebChatChannel) handleUI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, webChatHTML)
}
