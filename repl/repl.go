// Package repl drives a composed agent from a line-oriented prompt.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MaxLineSize is the longest user turn the loop accepts.
const MaxLineSize = 4 * 1024 * 1024

// ExitKeywords end the loop when typed on their own, in any case.
var ExitKeywords = []string{"quit", "exit", "q"}

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Chatter sends one turn to an agent and returns its reply.
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
}

// Loop reads user turns from in and writes prompts and replies to out.
type Loop struct {
	agent Chatter
	in    io.Reader
	out   io.Writer
	// Streamed is set when replies are already printed by a step observer.
	Streamed bool
}

// New creates a Loop.
func New(agent Chatter, in io.Reader, out io.Writer) *Loop {
	return &Loop{agent: agent, in: in, out: out}
}

// IsExit reports whether line is one of ExitKeywords.
func IsExit(line string) bool {
	return slices.Contains(ExitKeywords, strings.ToLower(strings.TrimSpace(line)))
}

// PrintAssistant writes one assistant line.
func PrintAssistant(out io.Writer, text string) {
	fmt.Fprintf(out, "%s %s\n", assistantStyle.Render("Assistant:"), text)
}

// Run blocks until an exit keyword, end of input, or ctx is done. A failing turn is reported
// and the loop continues.
func (l *Loop) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(l.in)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(l.out, userStyle.Render("User:")+" ")
		if !scanner.Scan() {
			fmt.Fprintln(l.out)
			return scanner.Err()
		}

		line := scanner.Text()
		if IsExit(line) {
			fmt.Fprintln(l.out, "Goodbye!")
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		reply, err := l.agent.Chat(ctx, line)
		if err != nil {
			fmt.Fprintln(l.out, errorStyle.Render("Error: "+err.Error()))
			continue
		}
		if !l.Streamed {
			PrintAssistant(l.out, reply)
		}
	}
}
