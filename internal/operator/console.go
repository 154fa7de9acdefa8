// Package operator is the stdin/stdout surface of the tools: confirmation
// prompts, secret entry and summaries.
package operator

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var ErrAborted = errors.New("aborted by operator")

// ErrNotTerminal is returned by ReadSecret when stdin cannot hide input.
var ErrNotTerminal = errors.New("stdin is not a terminal")

type terminal interface {
	IsTerminal() bool
	ReadPassword() ([]byte, error)
}

type fdTerminal struct{ fd int }

func (t fdTerminal) IsTerminal() bool              { return term.IsTerminal(t.fd) }
func (t fdTerminal) ReadPassword() ([]byte, error) { return term.ReadPassword(t.fd) }

type Console struct {
	in        *bufio.Reader
	out       io.Writer
	term      terminal
	assumeYes bool
	ctx       context.Context

	heading *color.Color
	warn    *color.Color
}

type Option func(*Console)

// WithAssumeYes answers every Confirm with yes without reading input.
func WithAssumeYes(v bool) Option {
	return func(c *Console) { c.assumeYes = v }
}

// WithContext ends pending prompts when ctx is done. The tools pass the
// signal.NotifyContext context so Ctrl-C at a prompt aborts the run.
func WithContext(ctx context.Context) Option {
	return func(c *Console) { c.ctx = ctx }
}

func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		in:      bufio.NewReader(in),
		out:     out,
		term:    fdTerminal{fd: -1},
		heading: color.New(color.FgCyan, color.Bold),
		warn:    color.New(color.FgYellow),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stdio is the console bound to the process's stdin and stdout.
func Stdio(opts ...Option) *Console {
	c := New(os.Stdin, os.Stdout, opts...)
	c.term = fdTerminal{fd: int(os.Stdin.Fd())}
	return c
}

func (c *Console) ReadLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	return c.await(func() (string, error) {
		line, err := c.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimSpace(line), nil
	})
}

type readResult struct {
	s   string
	err error
}

// await runs read, returning early with the context's error once the
// console's context is done. An abandoned read keeps the input, so no read
// starts after cancellation.
func (c *Console) await(read func() (string, error)) (string, error) {
	if c.ctx == nil {
		return read()
	}
	if err := c.ctx.Err(); err != nil {
		return "", err
	}
	ch := make(chan readResult, 1)
	go func() {
		s, err := read()
		ch <- readResult{s, err}
	}()
	select {
	case r := <-ch:
		return r.s, r.err
	case <-c.ctx.Done():
		fmt.Fprintln(c.out)
		return "", c.ctx.Err()
	}
}

// Confirm asks question and returns nil only for "y" or "yes". Anything
// else, EOF included, prints "Aborting" and returns ErrAborted.
func (c *Console) Confirm(question string) error {
	if c.assumeYes {
		fmt.Fprintf(c.out, "%s (press y to confirm or any other key to cancel)? y [assumed]\n", question)
		return nil
	}
	answer, err := c.ReadLine(question + " (press y to confirm or any other key to cancel)? ")
	if err == nil {
		switch strings.ToLower(answer) {
		case "y", "yes":
			return nil
		}
	}
	fmt.Fprintln(c.out, "Aborting")
	if c.ctx != nil && c.ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrAborted, c.ctx.Err())
	}
	return ErrAborted
}

func (c *Console) ReadSecret(prompt string) (string, error) {
	if !c.term.IsTerminal() {
		return "", ErrNotTerminal
	}
	fmt.Fprint(c.out, prompt)
	secret, err := c.await(func() (string, error) {
		b, err := c.term.ReadPassword()
		fmt.Fprintln(c.out)
		return string(b), err
	})
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(secret), nil
}

func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *Console) Warn(format string, a ...any) {
	c.warn.Fprintf(c.out, format+"\n", a...)
}

// PrintJSON writes label as a heading followed by v as indented JSON.
func (c *Console) PrintJSON(label string, v any) {
	c.heading.Fprintln(c.out, label)
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(c.out, "%+v\n", v)
		return
	}
	fmt.Fprintln(c.out, string(b))
}

// PrintFields writes kv as aligned "key: value" lines in key order.
func (c *Console) PrintFields(title string, kv map[string]any) {
	c.heading.Fprintln(c.out, title)
	keys := make([]string, 0, len(kv))
	width := 0
	for k := range kv {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.out, "  %-*s  %v\n", width+1, k+":", kv[k])
	}
}
