// Package widget holds the chat widget core: the transcript, the single
// in-flight request guard and the send affordance state machine. Front ends
// plug in through Renderer and Input; the answering service through Asker.
package widget

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultFallbackText is shown as the bot reply whenever a request fails.
const DefaultFallbackText = "伺服器錯誤，請稍後再試"

// Affordance is the visible state of the send control.
type Affordance int

const (
	// Idle: arrow visible, control enabled.
	Idle Affordance = iota
	// InFlight: arrow hidden, loading indicator visible, control disabled.
	InFlight
)

func (a Affordance) String() string {
	if a == InFlight {
		return "in_flight"
	}
	return "idle"
}

// Asker sends one question to the answering service and returns its reply.
type Asker interface {
	Ask(ctx context.Context, question, sessionID string) (string, error)
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(ctx context.Context, question, sessionID string) (string, error)

func (f AskerFunc) Ask(ctx context.Context, question, sessionID string) (string, error) {
	return f(ctx, question, sessionID)
}

// Renderer draws the widget. AppendMessage must leave the newest message
// visible.
type Renderer interface {
	AppendMessage(Message)
	SetSendAffordance(Affordance)
}

// Input is the text box the user types into.
type Input interface {
	Value() string
	Clear()
}

type Widget struct {
	sessionID  string
	asker      Asker
	renderer   Renderer
	input      Input
	transcript Transcript
	inFlight   atomic.Bool
	fallback   string
	launch     func(func())
	now        func() time.Time
}

type Option func(*Widget)

// WithFallbackText replaces the reply shown when a request fails.
func WithFallbackText(text string) Option {
	return func(w *Widget) {
		if strings.TrimSpace(text) != "" {
			w.fallback = text
		}
	}
}

// WithLauncher sets how HandleKey and Click wait for the reply. The input is
// read and the user's message shown before launch is called; launch gets the
// rest. The default runs it on the caller's goroutine; event loops pass one
// that starts a goroutine.
func WithLauncher(launch func(func())) Option {
	return func(w *Widget) {
		if launch != nil {
			w.launch = launch
		}
	}
}

// WithSessionID pins the session identifier instead of generating one.
func WithSessionID(id string) Option {
	return func(w *Widget) {
		if id != "" {
			w.sessionID = id
		}
	}
}

// WithClock sets the time source used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(w *Widget) {
		if now != nil {
			w.now = now
		}
	}
}

// Go is a launcher that waits for each reply on its own goroutine.
func Go(f func()) { go f() }

func New(asker Asker, renderer Renderer, input Input, opts ...Option) *Widget {
	w := &Widget{
		sessionID: uuid.NewString(),
		asker:     asker,
		renderer:  renderer,
		input:     input,
		fallback:  DefaultFallbackText,
		launch:    func(f func()) { f() },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Widget) SessionID() string { return w.sessionID }

func (w *Widget) FallbackText() string { return w.fallback }

// Transcript returns a copy of all messages so far.
func (w *Widget) Transcript() []Message { return w.transcript.Messages() }

// LastReply returns the most recent bot message.
func (w *Widget) LastReply() (Message, bool) { return w.transcript.Last(Bot) }

func (w *Widget) InFlight() bool { return w.inFlight.Load() }

func (w *Widget) Affordance() Affordance {
	if w.inFlight.Load() {
		return InFlight
	}
	return Idle
}

// SendMessage appends a message to the transcript. An empty user text means
// "take it from the input box". Content that is blank after trimming is
// ignored. User messages clear the input box.
func (w *Widget) SendMessage(origin Origin, text string) {
	content := text
	if content == "" && origin == User {
		content = strings.TrimSpace(w.input.Value())
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	msg := Message{Origin: origin, Text: content, Time: w.now()}
	w.transcript.append(msg)
	if origin == User {
		w.input.Clear()
	}
	w.renderer.AppendMessage(msg)
}

// HandleSend runs one request lifecycle for the current input. It returns
// once the request has settled, or at once when the input is blank or a
// request is already in flight.
func (w *Widget) HandleSend(ctx context.Context) {
	if text, ok := w.begin(); ok {
		w.settle(ctx, text)
	}
}

// begin validates the input, claims the in-flight slot and shows the user's
// message. It always runs on the caller's goroutine so the text sent is the
// text that was in the box when the user asked.
func (w *Widget) begin() (string, bool) {
	text := strings.TrimSpace(w.input.Value())
	if text == "" {
		return "", false
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		return "", false
	}
	w.renderer.SetSendAffordance(InFlight)
	w.SendMessage(User, text)
	return text, true
}

// settle issues the request, shows the reply or the fallback, and returns the
// control to Idle whatever happened.
func (w *Widget) settle(ctx context.Context, text string) {
	defer func() {
		w.renderer.SetSendAffordance(Idle)
		w.inFlight.Store(false)
	}()

	reply, err := w.ask(ctx, text)
	if err != nil {
		w.SendMessage(Bot, w.fallback)
		return
	}
	w.SendMessage(Bot, reply)
}

// start is HandleSend with the request half handed to the launcher.
func (w *Widget) start(ctx context.Context) {
	if text, ok := w.begin(); ok {
		w.launch(func() { w.settle(ctx, text) })
	}
}

func (w *Widget) ask(ctx context.Context, question string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("asker panicked: %v", r)
		}
	}()
	return w.asker.Ask(ctx, question, w.sessionID)
}

// HandleKey applies the keyboard binding. It reports whether the key was
// consumed; when it returns false the caller applies the key's default
// effect, such as inserting a newline.
func (w *Widget) HandleKey(ctx context.Context, k Key) bool {
	if !k.IsSubmit() {
		return false
	}
	w.start(ctx)
	return true
}

// Click is the send control's action.
func (w *Widget) Click(ctx context.Context) {
	w.start(ctx)
}
