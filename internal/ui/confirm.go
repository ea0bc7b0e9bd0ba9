package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks yes/no and free-text questions on a terminal. The zero value
// reads stdin and writes stdout.
type Prompter struct {
	In  io.Reader
	Out io.Writer

	r *bufio.Reader
}

// Confirm prompts with a yes/no question. Anything but y or yes is no.
func (p *Prompter) Confirm(prompt string) bool {
	return p.yes(StyleWarning.Render(prompt))
}

// ConfirmDanger is Confirm styled for destructive actions.
func (p *Prompter) ConfirmDanger(prompt string) bool {
	return p.yes(StyleError.Render("⚠ " + prompt))
}

// Input prompts for a line of text and returns it trimmed.
func (p *Prompter) Input(prompt string) string {
	fmt.Fprintf(p.out(), "%s: ", StyleWarning.Render(prompt))
	return strings.TrimSpace(p.readLine())
}

func (p *Prompter) yes(rendered string) bool {
	fmt.Fprintf(p.out(), "%s [y/N]: ", rendered)
	line := strings.ToLower(strings.TrimSpace(p.readLine()))
	return line == "y" || line == "yes"
}

func (p *Prompter) readLine() string {
	if p.r == nil {
		in := p.In
		if in == nil {
			in = os.Stdin
		}
		p.r = bufio.NewReader(in)
	}
	line, _ := p.r.ReadString('\n')
	return line
}

func (p *Prompter) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}
