package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// readPassphrase takes the passphrase from the configured environment
// variable, a terminal prompt, or the first line of stdin, in that order.
func (a *app) readPassphrase() ([]byte, error) {
	if env := a.cfg.Vault.PassphraseEnv; env != "" {
		if value, ok := os.LookupEnv(env); ok {
			a.logger.WithField("env", env).Debug("Read passphrase from environment")
			return []byte(value), nil
		}
	}

	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.stderr, "Master password: ")
		passphrase, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		return passphrase, nil
	}

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("read passphrase: %w", errors.Join(errNoPassphrase, err))
	}
	return []byte(trimLineEnding(line)), nil
}

// trimLineEnding drops one trailing "\n" or "\r\n". Other whitespace is
// part of the passphrase.
func trimLineEnding(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

var errNoPassphrase = errors.New("no passphrase on stdin")

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// startSpinner shows progress on an interactive stderr and returns the
// function that stops it.
func (a *app) startSpinner(msg string) func() {
	f, ok := a.stderr.(*os.File)
	if !a.cfg.Output.Spinner || !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}
