package rewrite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcomposer/agentcomposer/analyzer"
)

const chatbotSource = `package chatbot

import "context"

// Chatbot answers with the session model.
func Chatbot(ctx context.Context, state State) (State, error) {
	reply, err := Complete(ctx, state.Messages)
	if err != nil {
		return State{}, err
	}
	return State{Messages: []Message{reply}}, nil
}
`

func TestNeededImports(t *testing.T) {
	m := DefaultManifest()

	imports, err := m.NeededImports([]string{"State", "Message"}, []string{"context"})
	require.NoError(t, err)
	assert.Equal(t, []Import{{Name: ".", Path: AgentStatePath}}, imports)
	assert.Equal(t, `import . "github.com/agentcomposer/agentcomposer/agentstate"`, imports[0].String())
}

func TestNeededImportsSkipsExisting(t *testing.T) {
	imports, err := DefaultManifest().NeededImports([]string{"State"}, []string{AgentStatePath})
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestNeededImportsUndeclared(t *testing.T) {
	_, err := DefaultManifest().NeededImports([]string{"State", "Widget", "Gadget"}, nil)

	var uerr *UndeclaredTypeError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, []string{"Gadget", "Widget"}, uerr.Names)
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest("Widget=example.com/widgets, Gadget = example.com/gadgets")
	require.NoError(t, err)
	assert.Equal(t, Manifest{"Widget": "example.com/widgets", "Gadget": "example.com/gadgets"}, m)

	merged := DefaultManifest().Merge(m)
	assert.Equal(t, AgentStatePath, merged["State"])
	assert.Equal(t, "example.com/widgets", merged["Widget"])

	_, err = ParseManifest("Widget")
	assert.Error(t, err)
}

func TestPrepend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatbot.go")
	require.NoError(t, os.WriteFile(path, []byte(chatbotSource), 0o644))

	c, err := analyzer.Analyze(path)
	require.NoError(t, err)
	free, err := c.FreeTypeNames("Chatbot")
	require.NoError(t, err)
	assert.Equal(t, []string{"State"}, free)

	imports, err := DefaultManifest().NeededImports(free, c.Imports)
	require.NoError(t, err)
	require.NoError(t, Prepend(path, imports))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(out), `. "github.com/agentcomposer/agentcomposer/agentstate"`)
	assert.Contains(t, string(out), "// Chatbot answers with the session model.")

	after, err := analyzer.Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"context", AgentStatePath}, after.Imports)
	assert.Equal(t, []string{"Chatbot"}, after.Functions)
}

func TestPrependNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatbot.go")
	require.NoError(t, os.WriteFile(path, []byte(chatbotSource), 0o644))

	require.NoError(t, Prepend(path, nil))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, chatbotSource, string(out))
}
