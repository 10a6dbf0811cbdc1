// Package session holds the operator's session state for the CLI. The
// ledger never sees it; it only decides whether a command may run.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var (
	ErrWrongPassword = errors.New("wrong password")
	ErrEmptyPassword = errors.New("empty password")
)

// Session is the state of one CLI invocation.
type Session struct {
	Authenticated bool
	StartedAt     time.Time
}

// Gate checks the configured password hash. An empty hash means no password
// is required.
type Gate struct {
	hash string
}

func NewGate(hash string) Gate {
	return Gate{hash: strings.TrimSpace(hash)}
}

func (g Gate) Required() bool {
	return g.hash != ""
}

func (g Gate) Check(password string) error {
	if !g.Required() {
		return nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(g.hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPassword
	}
	return err
}

// Open starts a session, asking read for the password up to attempts times
// when one is required.
func (g Gate) Open(read func() (string, error), attempts int, now time.Time) (Session, error) {
	if !g.Required() {
		return Session{Authenticated: true, StartedAt: now}, nil
	}
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		var password string
		if password, err = read(); err != nil {
			return Session{}, fmt.Errorf("read password: %w", err)
		}
		if err = g.Check(password); err == nil {
			return Session{Authenticated: true, StartedAt: now}, nil
		}
		if !errors.Is(err, ErrWrongPassword) {
			return Session{}, err
		}
	}
	return Session{}, err
}

// HashPassword returns the bcrypt hash to put in auth.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Prompt returns a reader that writes prompt to out and reads one password
// from in, without echo when in is a terminal.
func Prompt(in *os.File, out io.Writer, prompt string) func() (string, error) {
	lines := bufio.NewReader(in)
	return func() (string, error) {
		fmt.Fprint(out, prompt)
		fd := int(in.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
		line, err := lines.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
