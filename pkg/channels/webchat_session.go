package channels

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gptchat/gptchat/pkg/logger"
	"github.com/gptchat/gptchat/pkg/widget"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	maxFrameSize = 64 * 1024
)

// frame is a server to browser message.
type frame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Origin    string `json:"origin,omitempty"`
	Text      string `json:"text,omitempty"`
	HTML      string `json:"html,omitempty"`
	Time      string `json:"time,omitempty"`
	State     string `json:"state,omitempty"`
}

// inbound is a browser to server message.
type inbound struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Shift bool   `json:"shift"`
}

// webSession is one browser connection. It is the widget's Renderer and
// owns its Input, so every widget effect becomes a frame on the socket.
type webSession struct {
	conn     *websocket.Conn
	widget   *widget.Widget
	input    *browserInput
	markdown bool
	out      chan frame
	done     chan struct{}
	cancel   context.CancelFunc
	once     sync.Once
}

// browserInput mirrors the page's textarea. Clearing it tells the page to
// clear its textarea too.
type browserInput struct {
	*widget.TextInput
	s *webSession
}

func (in *browserInput) Clear() {
	in.TextInput.Clear()
	in.s.enqueue(frame{Type: "clear_input"})
}

func newWebSession(conn *websocket.Conn, cancel context.CancelFunc, markdown bool) *webSession {
	s := &webSession{
		conn:     conn,
		markdown: markdown,
		out:      make(chan frame, 64),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	s.input = &browserInput{TextInput: widget.NewTextInput(""), s: s}
	return s
}

func (s *webSession) AppendMessage(m widget.Message) {
	f := frame{
		Type:   "message",
		Origin: m.Role(),
		Text:   m.Text,
		Time:   m.Time.Format("15:04"),
	}
	if s.markdown && m.Origin == widget.Bot {
		f.HTML = renderMarkdown(m.Text)
	}
	s.enqueue(f)
}

func (s *webSession) SetSendAffordance(a widget.Affordance) {
	s.enqueue(frame{Type: "affordance", State: a.String()})
}

// enqueue keeps widget order; frames for a closed session are dropped.
func (s *webSession) enqueue(f frame) {
	select {
	case s.out <- f:
	case <-s.done:
	}
}

func (s *webSession) close() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
		s.conn.Close()
	})
}

func (s *webSession) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	})

	for {
		var in inbound
		if err := s.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnCF("webchat", "Read failed", map[string]interface{}{
					"session": s.widget.SessionID(),
					"error":   err.Error(),
				})
			}
			return
		}

		switch in.Type {
		case "input":
			s.input.Set(in.Text)
		case "submit":
			s.widget.HandleKey(ctx, widget.Key{Name: widget.KeyEnter, Shift: in.Shift})
		case "click":
			s.widget.Click(ctx)
		default:
			logger.DebugCF("webchat", "Unknown frame", map[string]interface{}{"type": in.Type})
		}
	}
}

func (s *webSession) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case f := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(f); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}
