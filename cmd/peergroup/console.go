package main

import (
	"io"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
)

// console wraps a readline.Instance the way neo-go's cli/vm.CLI does: line
// editing and history from readline, tokenizing from go-shellquote.
type console struct {
	l   *readline.Instance
	out io.Writer
}

func newConsole() (*console, error) {
	l, err := readline.NewEx(&readline.Config{Prompt: "peergroup> "})
	if err != nil {
		return nil, err
	}
	return &console{l: l, out: l.Stdout()}, nil
}

// readLine returns the next tokenized command line, or an error once the
// user sends EOF/interrupt.
func (c *console) readLine() ([]string, error) {
	line, err := c.l.Readline()
	if err != nil {
		return nil, err
	}
	return shellquote.Split(line)
}

func (c *console) Close() error {
	return c.l.Close()
}
