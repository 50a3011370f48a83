package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errNoInput = errors.New("no input available")

// console reads prompted values. On a terminal secrets are read without
// echo; otherwise lines are read from in, which keeps scripted use working.
type console struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: in, reader: bufio.NewReader(in), out: out}
}

func (c *console) terminalFD() (int, bool) {
	f, ok := c.in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

func (c *console) readLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *console) readSecret(prompt string) ([]byte, error) {
	fd, isTerm := c.terminalFD()
	if !isTerm {
		line, err := c.readLine(prompt)
		return []byte(line), err
	}
	fmt.Fprint(c.out, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprint(c.out, "\n")
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(secret), nil
}

// promptPassword asks for a password, repeating until a non-empty one is
// entered and, when confirm is set, typed twice the same.
func (c *console) promptPassword(prefix string, confirm bool) (string, error) {
	for {
		pass, err := c.readSecret(prefix + ": ")
		if err != nil {
			return "", err
		}
		if len(pass) == 0 {
			fmt.Fprintln(c.out, "The password must not be empty.")
			if _, isTerm := c.terminalFD(); !isTerm {
				return "", errNoInput
			}
			continue
		}
		if !confirm {
			return string(pass), nil
		}
		again, err := c.readSecret("Confirm password: ")
		if err != nil {
			return "", err
		}
		if !bytes.Equal(pass, again) {
			fmt.Fprintln(c.out, "The entered passwords do not match.")
			if _, isTerm := c.terminalFD(); !isTerm {
				return "", errors.New("passwords do not match")
			}
			continue
		}
		return string(pass), nil
	}
}
