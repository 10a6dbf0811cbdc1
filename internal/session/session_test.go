package session

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func answers(list ...string) func() (string, error) {
	return func() (string, error) {
		if len(list) == 0 {
			return "", io.EOF
		}
		next := list[0]
		list = list[1:]
		return next, nil
	}
}

func TestGateWithoutPassword(t *testing.T) {
	g := NewGate("  ")
	assert.False(t, g.Required())
	assert.NoError(t, g.Check("anything"))

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s, err := g.Open(func() (string, error) { t.Fatal("no prompt expected"); return "", nil }, 3, now)
	require.NoError(t, err)
	assert.True(t, s.Authenticated)
	assert.Equal(t, now, s.StartedAt)
}

func TestGateOpen(t *testing.T) {
	g := NewGate(hashOf(t, "secret"))
	require.True(t, g.Required())
	now := time.Now()

	tests := []struct {
		name     string
		read     func() (string, error)
		attempts int
		wantErr  error
	}{
		{"first try", answers("secret"), 3, nil},
		{"second try", answers("nope", "secret"), 3, nil},
		{"out of attempts", answers("a", "b", "secret"), 2, ErrWrongPassword},
		{"input closed", answers(), 3, io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := g.Open(tt.read, tt.attempts, now)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.False(t, s.Authenticated)
				return
			}
			require.NoError(t, err)
			assert.True(t, s.Authenticated)
		})
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, NewGate(h).Check("pw"))
	assert.ErrorIs(t, NewGate(h).Check("PW"), ErrWrongPassword)

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestPromptReadsLinesFromPipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	_, err = w.WriteString("first\r\nsecond")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var out bytes.Buffer
	read := Prompt(r, &out, "Password: ")

	got, err := read()
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = read()
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	_, err = read()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "Password: Password: Password: ", out.String())
}
