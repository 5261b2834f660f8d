// Package repl is the line-oriented front end. On a terminal it reads with
// readline; piped input is read line by line.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/readline"

	"github.com/gptchat/gptchat/pkg/logger"
	"github.com/gptchat/gptchat/pkg/widget"
)

const (
	userPrompt     = "you> "
	continuePrompt = "...> "
	botPrefix      = "bot> "
	quitCommand    = "/quit"
)

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

type Options struct {
	FallbackText string
	// Interactive reads with readline from the terminal. Otherwise In is
	// scanned line by line and user messages are echoed to Out.
	Interactive bool
	In          io.Reader
	Out         io.Writer
	// Spinner animates a loading indicator on Out while a request runs.
	Spinner     bool
	HistoryFile string
}

type lineReader interface {
	ReadLine() (string, error)
	SetPrompt(string)
	Close() error
}

type REPL struct {
	widget  *widget.Widget
	input   *widget.TextInput
	lines   lineReader
	echo    bool
	spinner bool

	mu  sync.Mutex
	out io.Writer

	spinStop chan struct{}
	spinDone chan struct{}
}

func New(asker widget.Asker, opts Options) (*REPL, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	r := &REPL{
		input:   widget.NewTextInput(""),
		echo:    !opts.Interactive,
		spinner: opts.Spinner,
		out:     opts.Out,
	}

	if opts.Interactive {
		rl, err := readline.NewFromConfig(&readline.Config{
			Prompt:          userPrompt,
			HistoryFile:     opts.HistoryFile,
			InterruptPrompt: "^C",
			EOFPrompt:       quitCommand,
			Stdout:          opts.Out,
		})
		if err != nil {
			return nil, fmt.Errorf("starting readline: %w", err)
		}
		r.lines = rl
	} else {
		r.lines = newScannerReader(opts.In)
	}

	r.widget = widget.New(asker, r, r.input, widget.WithFallbackText(opts.FallbackText))
	return r, nil
}

// Widget exposes the underlying chat widget.
func (r *REPL) Widget() *widget.Widget { return r.widget }

// Run reads lines until /quit, EOF or ctx is done. A line ending in a
// backslash continues on the next line.
func (r *REPL) Run(ctx context.Context) error {
	defer r.lines.Close()

	var pending []string
	for ctx.Err() == nil {
		if len(pending) > 0 {
			r.lines.SetPrompt(continuePrompt)
		} else {
			r.lines.SetPrompt(userPrompt)
		}

		line, err := r.lines.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(pending) == 0 && line == "" {
				return nil
			}
			pending = nil
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if len(pending) == 0 && strings.TrimSpace(line) == quitCommand {
			return nil
		}
		if strings.HasSuffix(line, `\`) {
			pending = append(pending, strings.TrimSuffix(line, `\`))
			continue
		}

		pending = append(pending, line)
		r.input.Set(strings.Join(pending, "\n"))
		pending = nil
		r.widget.HandleKey(ctx, widget.Key{Name: widget.KeyEnter})
	}
	return nil
}

// AppendMessage implements widget.Renderer. On a terminal the user already
// sees what they typed, so only bot messages are printed.
func (r *REPL) AppendMessage(m widget.Message) {
	if m.Origin == widget.User && !r.echo {
		return
	}
	prefix := botPrefix
	if m.Origin == widget.User {
		prefix = userPrompt
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearSpinnerLocked()
	fmt.Fprintln(r.out, prefix+m.Text)
}

// SetSendAffordance implements widget.Renderer.
func (r *REPL) SetSendAffordance(a widget.Affordance) {
	if !r.spinner {
		return
	}
	if a == widget.InFlight {
		r.startSpinner()
		return
	}
	r.stopSpinner()
}

func (r *REPL) startSpinner() {
	if r.spinStop != nil {
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	r.spinStop, r.spinDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			r.mu.Lock()
			fmt.Fprintf(r.out, "\r%c ", spinnerFrames[i%len(spinnerFrames)])
			r.mu.Unlock()

			select {
			case <-stop:
				r.mu.Lock()
				r.clearSpinnerLocked()
				r.mu.Unlock()
				return
			case <-ticker.C:
			}
		}
	}()
}

func (r *REPL) stopSpinner() {
	if r.spinStop == nil {
		return
	}
	close(r.spinStop)
	<-r.spinDone
	r.spinStop, r.spinDone = nil, nil
}

func (r *REPL) clearSpinnerLocked() {
	if r.spinner {
		fmt.Fprint(r.out, "\r  \r")
	}
}

// scannerReader reads piped input. Prompts are not printed.
type scannerReader struct {
	scanner *bufio.Scanner
}

func newScannerReader(in io.Reader) *scannerReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scannerReader{scanner: s}
}

func (s *scannerReader) ReadLine() (string, error) {
	if s.scanner.Scan() {
		return strings.TrimSuffix(s.scanner.Text(), "\r"), nil
	}
	if err := s.scanner.Err(); err != nil {
		logger.WarnCF("repl", "Input read failed", map[string]interface{}{"error": err.Error()})
		return "", err
	}
	return "", io.EOF
}

func (s *scannerReader) SetPrompt(string) {}

func (s *scannerReader) Close() error { return nil }
