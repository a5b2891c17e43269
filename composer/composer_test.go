package composer

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/agentcomposer/agentcomposer/agentstate"
	"github.com/agentcomposer/agentcomposer/analyzer"
	"github.com/agentcomposer/agentcomposer/config"
	"github.com/agentcomposer/agentcomposer/fetch"
	"github.com/agentcomposer/agentcomposer/installer"
	"github.com/agentcomposer/agentcomposer/log"
	"github.com/agentcomposer/agentcomposer/rewrite"
)

const chatbotSource = `package chatbot

import "context"

func Chatbot(ctx context.Context, state State) (State, error) {
	reply, err := Complete(ctx, state.Messages)
	if err != nil {
		return State{}, err
	}
	return State{Messages: []Message{reply}}, nil
}
`

type upperModel struct{}

func (upperModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	last := "no input"
	if len(messages) > 0 {
		last = agentstate.TextOf(messages[len(messages)-1])
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: strings.ToUpper(last)}}}, nil
}

func (m upperModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, opts...)
}

func serve(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testConfig(t *testing.T, url, function string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.Destination = filepath.Join(t.TempDir(), "agents", "chatbot.go")
	cfg.Function = function
	cfg.InstallCommand = []string{filepath.Join(t.TempDir(), "no-such-go"), "get"}
	cfg.GoCommand = cfg.InstallCommand[0]
	return cfg
}

func TestComposeWithoutKeysMakesNoRequest(t *testing.T) {
	srv, hits := serve(t, chatbotSource)
	cfg := testConfig(t, srv.URL, "Chatbot")

	err := Compose(context.Background(), cfg, func(string) string { return "" }, strings.NewReader(""), &bytes.Buffer{})

	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Zero(t, hits.Load())
	assert.NoFileExists(t, cfg.Destination)
}

func TestPrepareChatbot(t *testing.T) {
	srv, _ := serve(t, chatbotSource)
	cfg := testConfig(t, srv.URL, "Chatbot")

	c, err := New(cfg, nil, WithLogger(log.NewCustomLogger(&bytes.Buffer{}, log.LogLevelDebug)))
	require.NoError(t, err)

	p, err := c.Prepare(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Chatbot"}, p.Catalog.Functions)
	assert.Equal(t, []string{"context"}, p.Catalog.Imports)
	assert.Equal(t, []analyzer.Param{
		{Name: "ctx", Type: "context.Context"},
		{Name: "state", Type: "State"},
	}, p.Params)

	require.Len(t, p.Installs, 1)
	assert.Equal(t, installer.StatusSkipped, p.Installs[0].Status)

	assert.Equal(t, []rewrite.Import{{Name: ".", Path: rewrite.AgentStatePath}}, p.Imports)
	assert.Contains(t, p.Artifact.Text, rewrite.AgentStatePath)

	require.NotNil(t, p.Loaded)
	require.Len(t, p.Samples, 1)
	assert.NoError(t, p.Samples[0].Err)
	assert.Equal(t, agentstate.State{}, p.Samples[0].Value)
}

func TestPrepareFunctionNotDiscovered(t *testing.T) {
	srv, _ := serve(t, chatbotSource)
	cfg := testConfig(t, srv.URL, "Summarize")

	c, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = c.Prepare(context.Background())
	var nf *analyzer.SymbolNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Summarize", nf.Symbol)
}

func TestPrepareTransferError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	cfg := testConfig(t, srv.URL, "Chatbot")

	c, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = c.Prepare(context.Background())
	var terr *fetch.TransferError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
}

func TestPrepareParseError(t *testing.T) {
	srv, _ := serve(t, "def chatbot(state: State):\n    return state\n")
	cfg := testConfig(t, srv.URL, "chatbot")

	c, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = c.Prepare(context.Background())
	var perr *analyzer.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestPrepareUndeclaredType(t *testing.T) {
	srv, _ := serve(t, "package chatbot\n\nfunc Chatbot(w Widget) Widget { return w }\n")
	cfg := testConfig(t, srv.URL, "Chatbot")

	c, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = c.Prepare(context.Background())
	var uerr *rewrite.UndeclaredTypeError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, []string{"Widget"}, uerr.Names)
}

func TestRunConversation(t *testing.T) {
	srv, _ := serve(t, chatbotSource)
	cfg := testConfig(t, srv.URL, "Chatbot")
	session := &config.Session{Provider: config.ProviderOpenAI, Model: upperModel{}}

	c, err := New(cfg, session)
	require.NoError(t, err)

	var out bytes.Buffer
	err = c.Run(context.Background(), strings.NewReader("hello there\nEXIT\n"), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "HELLO THERE")
	assert.Contains(t, out.String(), "Goodbye!")
	require.Len(t, session.Messages(), 2)
	assert.Equal(t, "hello there", agentstate.TextOf(session.Messages()[0]))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.URL = "https://example.com/chatbot.go"
	assert.NoError(t, cfg.Validate())

	cfg.InstallCommand = nil
	assert.Error(t, cfg.Validate())
	cfg.SkipInstall = true
	assert.NoError(t, cfg.Validate())
}

func sampleUnit(t *testing.T) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "testdata", "remote_agents", "chatbot.go"))
	require.NoError(t, err)
	return string(src)
}

func TestPrepareSampleUnit(t *testing.T) {
	srv, _ := serve(t, sampleUnit(t))

	c, err := New(testConfig(t, srv.URL, "Chatbot"), nil)
	require.NoError(t, err)
	p, err := c.Prepare(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Chatbot", "Echo"}, p.Catalog.Functions)
	assert.Equal(t, []string{"context", "strings"}, p.Catalog.Imports)

	ctx := agentstate.WithModel(context.Background(), upperModel{})
	out, err := p.Loaded.Node(ctx, agentstate.State{Messages: []agentstate.Message{agentstate.HumanMessage("hi there")}})
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "HI THERE", agentstate.TextOf(out.Messages[0]))

	c, err = New(testConfig(t, srv.URL, "Echo"), nil)
	require.NoError(t, err)
	p, err = c.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []analyzer.Param{{Name: "state", Type: "State"}}, p.Params)

	out, err = p.Loaded.Node(context.Background(), agentstate.State{Messages: []agentstate.Message{agentstate.HumanMessage("  hello  ")}})
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "hello", agentstate.TextOf(out.Messages[0]))
}

func TestRunDryRun(t *testing.T) {
	srv, _ := serve(t, "package ready\n\nfunc Ready(s State) State {\n\treturn State{Messages: []Message{AIMessage(\"ready\")}}\n}\n")
	cfg := testConfig(t, srv.URL, "Ready")
	cfg.DryRun = true

	c, err := New(cfg, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, c.Run(context.Background(), strings.NewReader("never read\n"), &out))
	assert.Equal(t, "Result: ready\n", out.String())
}

func TestDryRunUsesSessionModel(t *testing.T) {
	srv, _ := serve(t, chatbotSource)
	session := &config.Session{Provider: config.ProviderOpenAI, Model: upperModel{}}
	c, err := New(testConfig(t, srv.URL, "Chatbot"), session)
	require.NoError(t, err)

	p, err := c.Prepare(context.Background())
	require.NoError(t, err)

	var out bytes.Buffer
	result, err := c.DryRun(context.Background(), p, &out)
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "Result: NO INPUT\n", out.String())
}
