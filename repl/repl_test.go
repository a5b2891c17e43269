package repl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoAgent struct {
	turns []string
}

func (a *echoAgent) Chat(_ context.Context, message string) (string, error) {
	a.turns = append(a.turns, message)
	if message == "fail" {
		return "", errors.New("model unavailable")
	}
	return "you said " + message, nil
}

func TestIsExit(t *testing.T) {
	for _, s := range []string{"quit", "EXIT", "Q", " q "} {
		assert.True(t, IsExit(s), s)
	}
	for _, s := range []string{"quitting", "", "exit now"} {
		assert.False(t, IsExit(s), s)
	}
}

func TestRunUntilExitKeyword(t *testing.T) {
	agent := &echoAgent{}
	var out bytes.Buffer
	in := strings.NewReader("hello\n\nfail\nagain\nQuit\nnever read\n")

	err := New(agent, in, &out).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", "fail", "again"}, agent.turns)
	text := out.String()
	assert.Contains(t, text, "User:")
	assert.Contains(t, text, "you said hello")
	assert.Contains(t, text, "model unavailable")
	assert.Contains(t, text, "you said again")
	assert.Contains(t, text, "Goodbye!")
}

func TestRunStopsAtEOF(t *testing.T) {
	agent := &echoAgent{}
	var out bytes.Buffer

	err := New(agent, strings.NewReader("only line"), &out).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"only line"}, agent.turns)
}

func TestRunStreamedSkipsReply(t *testing.T) {
	agent := &echoAgent{}
	var out bytes.Buffer
	l := New(agent, strings.NewReader("hello\nexit\n"), &out)
	l.Streamed = true

	require.NoError(t, l.Run(context.Background()))
	assert.NotContains(t, out.String(), "you said hello")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(&echoAgent{}, strings.NewReader("hello\n"), &bytes.Buffer{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAcceptsLongLines(t *testing.T) {
	agent := &echoAgent{}
	long := strings.Repeat("x", 256*1024)

	err := New(agent, strings.NewReader(long+"\nexit\n"), &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, agent.turns, 1)
	assert.Len(t, agent.turns[0], len(long))
}
