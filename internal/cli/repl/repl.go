package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Executor runs one command line, already split into words.
type Executor func(ctx context.Context, args []string) error

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input   io.Reader
	output  io.Writer
	prompt  string
	exec    Executor
	history *History
}

// New creates a new REPL instance reading from in and writing to out.
func New(in io.Reader, out io.Writer, prompt string, exec Executor, history *History) *REPL {
	if history == nil {
		history = NewHistory("")
	}
	return &REPL{
		input:   in,
		output:  out,
		prompt:  prompt,
		exec:    exec,
		history: history,
	}
}

// Run starts the REPL loop. It returns nil on EOF, exit or quit, and
// ctx.Err() when ctx is cancelled between lines.
func (r *REPL) Run(ctx context.Context) error {
	reader := bufio.NewReader(r.input)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err == io.EOF && line == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.history.Add(line)

		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		case "history":
			r.printHistory()
			continue
		}

		if execErr := r.execute(ctx, line); execErr != nil {
			fmt.Fprintf(r.output, "(error) %v\n", execErr)
		}
		if err == io.EOF {
			return nil
		}
	}
}

func (r *REPL) execute(ctx context.Context, line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}
	if r.exec == nil {
		return errors.New("no executor")
	}
	return r.exec(ctx, args)
}

func (r *REPL) printHistory() {
	entries := r.history.Entries()
	for i, e := range entries {
		fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
	}
}

// SplitArgs splits line into words. Double-quoted sections form a single
// word and may contain \", \\, \n, \r and \t escapes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		hasWord bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote && c == '\\':
			if i+1 >= len(line) {
				return nil, errors.New("unterminated escape")
			}
			i++
			switch line[i] {
			case 'n':
				cur.WriteByte('\n')
			case 'r':
				cur.WriteByte('\r')
			case 't':
				cur.WriteByte('\t')
			default:
				cur.WriteByte(line[i])
			}
		case c == '"':
			inQuote = !inQuote
			hasWord = true
		case !inQuote && (c == ' ' || c == '\t'):
			if hasWord {
				args = append(args, cur.String())
				cur.Reset()
				hasWord = false
			}
		default:
			cur.WriteByte(c)
			hasWord = true
		}
	}

	if inQuote {
		return nil, errors.New("unbalanced quotes")
	}
	if hasWord {
		args = append(args, cur.String())
	}
	return args, nil
}
