package widget

import "sync"

// KeyEnter is the primary submit key.
const KeyEnter = "Enter"

// Key is a key press as seen by the input box.
type Key struct {
	Name  string
	Shift bool
	// Alt counts as the modifier too; many terminals cannot report Shift+Enter.
	Alt bool
}

// IsSubmit reports whether k is Enter with no modifier held.
func (k Key) IsSubmit() bool {
	return k.Name == KeyEnter && !k.Shift && !k.Alt
}

// TextInput is an Input backed by a string. Safe for concurrent use.
type TextInput struct {
	mu   sync.Mutex
	text string
}

func NewTextInput(text string) *TextInput {
	return &TextInput{text: text}
}

func (in *TextInput) Set(text string) {
	in.mu.Lock()
	in.text = text
	in.mu.Unlock()
}

// Append adds text at the end, as typing would.
func (in *TextInput) Append(text string) {
	in.mu.Lock()
	in.text += text
	in.mu.Unlock()
}

func (in *TextInput) Value() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.text
}

func (in *TextInput) Clear() {
	in.Set("")
}
