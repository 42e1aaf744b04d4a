package identification

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"crost/internal/media"
)

const (
	maxPromptAttempts = 3
	ansiBold          = "\x1b[1m"
	ansiReset         = "\x1b[0m"
)

// ConsolePrompter asks on a line-oriented console which candidate a file is.
type ConsolePrompter struct {
	in       *bufio.Reader
	out      io.Writer
	colorize bool
}

// NewConsolePrompter reads answers from in and writes questions to out.
// Headers are bold when out is a terminal.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{
		in:       bufio.NewReader(in),
		out:      out,
		colorize: IsTerminal(out),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Choose prints the candidates and reads an index. "s" skips the file, as does
// running out of attempts on invalid input. End of input is an error.
func (p *ConsolePrompter) Choose(ctx context.Context, filename string, candidates []media.Title) (int, error) {
	p.header(fmt.Sprintf("What is %s?", filename))
	for i, c := range candidates {
		fmt.Fprintf(p.out, "%d: %s\n", i, c.Display())
	}

	for attempt := 1; attempt <= maxPromptAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		fmt.Fprintf(p.out, "Choice [0-%d, s to skip]: ", len(candidates)-1)

		line, err := p.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if err != nil && answer == "" {
			if errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("read choice: %w", io.ErrUnexpectedEOF)
			}
			return 0, fmt.Errorf("read choice: %w", err)
		}

		if answer == "s" || answer == "skip" {
			return 0, ErrSkipped
		}
		idx, convErr := strconv.Atoi(answer)
		if convErr == nil && idx >= 0 && idx < len(candidates) {
			return idx, nil
		}
		fmt.Fprintf(p.out, "%q is not a valid choice\n", answer)
		if err != nil {
			return 0, fmt.Errorf("read choice: %w", io.ErrUnexpectedEOF)
		}
	}
	fmt.Fprintln(p.out, "Too many invalid answers, skipping")
	return 0, ErrSkipped
}

func (p *ConsolePrompter) header(text string) {
	if p.colorize {
		fmt.Fprintf(p.out, "%s%s%s\n", ansiBold, text, ansiReset)
		return
	}
	fmt.Fprintln(p.out, text)
}
