package prebuilt

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smallnest/langgraphgo/graph"
	"github.com/tmc/langchaingo/llms"

	"github.com/agentcomposer/agentcomposer/agentstate"
	"github.com/agentcomposer/agentcomposer/log"
)

// StepObserver receives the update produced by each executed node.
type StepObserver func(node string, update agentstate.State)

// History stores the conversation across turns.
type History interface {
	AddMessages(ms []agentstate.Message)
	Messages() []agentstate.Message
}

// RemoteAgentOption configures a RemoteAgent.
type RemoteAgentOption func(*RemoteAgent)

// WithModel makes model, and opts on every call, available to the node through agentstate.Complete.
func WithModel(model llms.Model, opts ...llms.CallOption) RemoteAgentOption {
	return func(a *RemoteAgent) {
		a.model = model
		a.callOpts = opts
	}
}

// WithObserver registers an observer for every executed step.
func WithObserver(o StepObserver) RemoteAgentOption {
	return func(a *RemoteAgent) {
		a.observers = append(a.observers, o)
	}
}

// WithHistory stores the conversation in h instead of in the agent.
func WithHistory(h History) RemoteAgentOption {
	return func(a *RemoteAgent) {
		a.history = h
	}
}

// WithDescription sets the node description.
func WithDescription(desc string) RemoteAgentOption {
	return func(a *RemoteAgent) {
		a.description = desc
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) RemoteAgentOption {
	return func(a *RemoteAgent) {
		a.logger = l
	}
}

// RemoteAgent runs a loaded remote function as the single node of a state graph and keeps
// the conversation going across turns.
type RemoteAgent struct {
	// Runnable is the compiled graph
	Runnable *graph.StateRunnable

	name        string
	description string
	node        agentstate.NodeFunc
	threadID    string
	model       llms.Model
	callOpts    []llms.CallOption
	observers   []StepObserver
	history     History
	logger      log.Logger
}

// NewRemoteAgent wires node as the entry and the only node of a graph that ends after it.
func NewRemoteAgent(name string, node agentstate.NodeFunc, opts ...RemoteAgentOption) (*RemoteAgent, error) {
	if name == "" {
		return nil, errors.New("remote agent: node name is empty")
	}
	if node == nil {
		return nil, errors.New("remote agent: node function is nil")
	}

	a := &RemoteAgent{
		name:        name,
		description: fmt.Sprintf("remote function %s", name),
		node:        node,
		threadID:    uuid.New().String(),
		history:     &memoryHistory{},
		logger:      log.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = log.OrNoOp(a.logger)

	schema := graph.NewMapSchema()
	schema.RegisterReducer(agentstate.KeyMessages, graph.AppendReducer)
	schema.RegisterReducer(agentstate.KeyIntermediateSteps, graph.AppendReducer)

	g := graph.NewStateGraph()
	g.SetSchema(schema)
	g.AddNode(name, a.description, a.runNode)
	g.SetEntryPoint(name)
	g.AddEdge(name, graph.END)

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}
	a.Runnable = runnable
	return a, nil
}

// Name returns the node name.
func (a *RemoteAgent) Name() string {
	return a.name
}

// ThreadID returns the current session ID.
func (a *RemoteAgent) ThreadID() string {
	return a.threadID
}

// Messages returns the conversation so far.
func (a *RemoteAgent) Messages() []agentstate.Message {
	return a.history.Messages()
}

func (a *RemoteAgent) runNode(ctx context.Context, state any) (any, error) {
	m, ok := state.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid state type: %T", state)
	}
	in, err := agentstate.FromMap(m)
	if err != nil {
		return nil, err
	}

	out, err := a.node(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", a.name, err)
	}
	if out.LastAgent == "" {
		out.LastAgent = a.name
	}

	for _, o := range a.observers {
		o(a.name, out)
	}
	return agentstate.ToMap(out)
}

// Invoke runs the graph once from initial and returns the final state.
func (a *RemoteAgent) Invoke(ctx context.Context, initial agentstate.State) (agentstate.State, error) {
	if a.model != nil {
		ctx = agentstate.WithModel(ctx, a.model, a.callOpts...)
	}

	input, err := agentstate.ToMap(initial)
	if err != nil {
		return agentstate.State{}, err
	}

	config := &graph.Config{
		Configurable: map[string]any{
			"thread_id": a.threadID,
		},
	}
	resp, err := a.Runnable.InvokeWithConfig(ctx, input, config)
	if err != nil {
		return agentstate.State{}, err
	}

	mState, ok := resp.(map[string]any)
	if !ok {
		return agentstate.State{}, fmt.Errorf("invalid response type: %T", resp)
	}
	return agentstate.FromMap(mState)
}

// Chat sends one user turn through the graph and returns the text of the last message.
func (a *RemoteAgent) Chat(ctx context.Context, message string) (string, error) {
	before := a.history.Messages()
	userMsg := agentstate.HumanMessage(message)

	history := make([]agentstate.Message, 0, len(before)+1)
	history = append(history, before...)
	history = append(history, userMsg)

	final, err := a.Invoke(ctx, agentstate.State{Input: message, Messages: history})
	if err != nil {
		return "", err
	}

	// record the user turn and everything the graph appended after it
	added := []agentstate.Message{userMsg}
	if len(final.Messages) > len(history) {
		added = append(added, final.Messages[len(history):]...)
	}
	a.history.AddMessages(added)
	a.logger.Debug("thread %s: %d messages", a.threadID, len(a.history.Messages()))

	last, ok := final.LastMessage()
	if !ok {
		return "", errors.New("no messages in response")
	}
	return agentstate.TextOf(last), nil
}

type memoryHistory struct {
	messages []agentstate.Message
}

func (h *memoryHistory) AddMessages(ms []agentstate.Message) {
	h.messages = append(h.messages, ms...)
}

func (h *memoryHistory) Messages() []agentstate.Message {
	return h.messages
}
