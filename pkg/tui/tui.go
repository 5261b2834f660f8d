// Package tui is the full-screen terminal front end: a scrolling
// transcript, a multi-line input box and a send button with a spinner.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/gptchat/gptchat/pkg/logger"
	"github.com/gptchat/gptchat/pkg/widget"
)

const (
	arrowLabel    = "➤"
	spinnerFrames = "⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏"
	spinnerTick   = 100 * time.Millisecond
	hint          = "[gray]Enter send · Alt/Shift+Enter newline · Ctrl+Y copy reply · Esc quit[-]"
)

type Options struct {
	FallbackText string
	ShowTimes    bool
	// Screen replaces the terminal, e.g. with a simulation screen.
	Screen tcell.Screen
}

type TUI struct {
	app        *tview.Application
	transcript *tview.TextView
	input      *tview.TextArea
	send       *tview.Button
	status     *tview.TextView
	widget     *widget.Widget
	showTimes  bool
	ctx        context.Context

	// post hands f to the UI goroutine without waiting for it to run. Calls
	// made from the event loop itself must never block on it.
	post func(f func())

	pendingMu sync.Mutex
	pending   []func()
	wake      chan struct{}

	spinMu   sync.Mutex
	spinStop chan struct{}
	spinDone chan struct{}
}

// areaInput adapts the text area to widget.Input. The widget only reads and
// clears the input from key and click handlers, which run on the UI
// goroutine.
type areaInput struct {
	area *tview.TextArea
}

func (in areaInput) Value() string { return in.area.GetText() }

func (in areaInput) Clear() { in.area.SetText("", false) }

func New(asker widget.Asker, opts Options) *TUI {
	t := &TUI{
		app:        tview.NewApplication(),
		transcript: tview.NewTextView(),
		input:      tview.NewTextArea(),
		status:     tview.NewTextView(),
		showTimes:  opts.ShowTimes,
		ctx:        context.Background(),
		wake:       make(chan struct{}, 1),
	}
	t.post = t.enqueue
	if opts.Screen != nil {
		t.app.SetScreen(opts.Screen)
	}

	t.widget = widget.New(asker, t, areaInput{area: t.input},
		widget.WithFallbackText(opts.FallbackText),
		widget.WithLauncher(widget.Go),
	)

	t.transcript.
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true).
		SetScrollable(true)
	t.transcript.SetBorder(true).SetTitle(" GPT Chat ")

	t.input.SetPlaceholder("Type a message...")
	t.input.SetBorder(true)
	t.input.SetInputCapture(t.captureInput)

	t.send = tview.NewButton(arrowLabel).SetSelectedFunc(func() {
		t.widget.Click(t.ctx)
		t.app.SetFocus(t.input)
	})

	t.status.SetDynamicColors(true)
	t.status.SetText(hint)

	inputRow := tview.NewFlex().
		AddItem(t.input, 0, 1, true).
		AddItem(t.send, 5, 0, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.transcript, 0, 1, false).
		AddItem(inputRow, 5, 0, true).
		AddItem(t.status, 1, 0, false)

	t.app.SetRoot(root, true).
		SetFocus(t.input).
		EnableMouse(true).
		SetInputCapture(t.captureGlobal)
	return t
}

// Widget exposes the underlying chat widget.
func (t *TUI) Widget() *widget.Widget { return t.widget }

// Run blocks until the user quits or ctx is done.
func (t *TUI) Run(ctx context.Context) error {
	t.ctx = ctx
	go func() {
		<-ctx.Done()
		t.app.Stop()
	}()
	done := make(chan struct{})
	go t.pump(done)

	logger.DebugCF("tui", "Starting", map[string]interface{}{"session": t.widget.SessionID()})
	err := t.app.Run()
	close(done)
	t.stopSpinner()
	return err
}

// enqueue records f in order and wakes the pump.
func (t *TUI) enqueue(f func()) {
	t.pendingMu.Lock()
	t.pending = append(t.pending, f)
	t.pendingMu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// pump forwards queued updates to the event loop in batches. It is the only
// goroutine that waits on QueueUpdateDraw.
func (t *TUI) pump(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.wake:
		}

		t.pendingMu.Lock()
		batch := t.pending
		t.pending = nil
		t.pendingMu.Unlock()
		if len(batch) == 0 {
			continue
		}
		t.app.QueueUpdateDraw(func() {
			for _, f := range batch {
				f()
			}
		})
	}
}

// keyOf maps a terminal key event onto the widget's key binding.
func keyOf(ev *tcell.EventKey) (widget.Key, bool) {
	if ev.Key() != tcell.KeyEnter {
		return widget.Key{}, false
	}
	mods := ev.Modifiers()
	return widget.Key{
		Name:  widget.KeyEnter,
		Shift: mods&tcell.ModShift != 0,
		Alt:   mods&tcell.ModAlt != 0,
	}, true
}

func (t *TUI) captureInput(ev *tcell.EventKey) *tcell.EventKey {
	k, ok := keyOf(ev)
	if !ok {
		return ev
	}
	if t.widget.HandleKey(t.ctx, k) {
		return nil
	}
	// The text area only inserts a newline for a bare Enter.
	return tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
}

func (t *TUI) captureGlobal(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyEscape:
		t.app.Stop()
		return nil
	case tcell.KeyCtrlY:
		t.copyLastReply()
		return nil
	case tcell.KeyTab:
		if t.input.HasFocus() {
			t.app.SetFocus(t.send)
		} else {
			t.app.SetFocus(t.input)
		}
		return nil
	}
	return ev
}

func (t *TUI) copyLastReply() {
	last, ok := t.widget.LastReply()
	if !ok {
		t.flash("[yellow]nothing to copy yet[-]")
		return
	}
	if err := clipboard.WriteAll(last.Text); err != nil {
		logger.WarnCF("tui", "Clipboard write failed", map[string]interface{}{"error": err.Error()})
		t.flash("[red]clipboard unavailable[-]")
		return
	}
	t.flash("[green]reply copied[-]")
}

func (t *TUI) flash(msg string) {
	t.status.SetText(msg)
	time.AfterFunc(2*time.Second, func() {
		t.post(func() { t.status.SetText(hint) })
	})
}

// AppendMessage implements widget.Renderer.
func (t *TUI) AppendMessage(m widget.Message) {
	text := formatMessage(m, t.showTimes)
	t.post(func() {
		fmt.Fprint(t.transcript, text)
		t.transcript.ScrollToEnd()
	})
}

// SetSendAffordance implements widget.Renderer.
func (t *TUI) SetSendAffordance(a widget.Affordance) {
	if a == widget.InFlight {
		t.post(func() {
			t.send.SetLabel(string([]rune(spinnerFrames)[0]))
			t.send.SetDisabled(true)
		})
		t.startSpinner()
		return
	}
	t.stopSpinner()
	t.post(func() {
		t.send.SetLabel(arrowLabel)
		t.send.SetDisabled(false)
	})
}

func (t *TUI) startSpinner() {
	t.spinMu.Lock()
	defer t.spinMu.Unlock()
	if t.spinStop != nil {
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	t.spinStop, t.spinDone = stop, done

	go func() {
		defer close(done)
		frames := []rune(spinnerFrames)
		ticker := time.NewTicker(spinnerTick)
		defer ticker.Stop()
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				label := string(frames[i%len(frames)])
				t.post(func() { t.send.SetLabel(label) })
			}
		}
	}()
}

func (t *TUI) stopSpinner() {
	t.spinMu.Lock()
	stop, done := t.spinStop, t.spinDone
	t.spinStop, t.spinDone = nil, nil
	t.spinMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func formatMessage(m widget.Message, showTimes bool) string {
	var b strings.Builder
	if m.Origin == widget.User {
		b.WriteString("[#a78bfa::b]you[-:-:-]")
	} else {
		b.WriteString("[#34d399::b]bot[-:-:-]")
	}
	if showTimes && !m.Time.IsZero() {
		b.WriteString(" [gray]" + m.Time.Format("15:04") + "[-]")
	}
	b.WriteString("\n")
	b.WriteString(tview.Escape(m.Text))
	b.WriteString("\n\n")
	return b.String()
}
