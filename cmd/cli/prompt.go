package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// password returns flagValue, or prompts for it. A non-terminal stdin is read as one line.
func (g *globals) password(flagValue, label string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fd := int(os.Stdin.Fd())
	if isTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		b, err := readPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(g.in).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
		}
		return "", errors.New(strings.ToLower(label) + " is required")
	}
	return line, nil
}
