package term

import (
	"fmt"
	"io"
	"strings"
)

// Prompter answers controller prompts on the status line, reading from
// the same key stream as the main loop.
type Prompter struct {
	keys <-chan string
	out  io.Writer
}

func NewPrompter(keys <-chan string, out io.Writer) *Prompter {
	return &Prompter{keys: keys, out: out}
}

// Line echoes typed characters until enter. Escape, ctrl+c or a closed
// input cancel with an empty answer.
func (p *Prompter) Line(prompt string) string {
	fmt.Fprint(p.out, "\r\n"+prompt)
	var b []rune
	for key := range p.keys {
		switch {
		case key == KeyEnter:
			return string(b)
		case key == KeyEsc || key == KeyCtrlC:
			return ""
		case key == KeyBackspace:
			if len(b) > 0 {
				b = b[:len(b)-1]
				fmt.Fprint(p.out, "\b \b")
			}
		case Printable(key):
			b = append(b, []rune(key)...)
			fmt.Fprint(p.out, key)
		}
	}
	return ""
}

// Confirm reads a single key; only y or Y accept.
func (p *Prompter) Confirm(question string) bool {
	fmt.Fprint(p.out, "\r\n"+question+" [y/N] ")
	key, ok := <-p.keys
	if !ok {
		return false
	}
	return strings.EqualFold(key, "y")
}
