package agentstate

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/tmc/langchaingo/llms"
)

// Keys of the map form of State.
const (
	KeyInput             = "input"
	KeyMessages          = "messages"
	KeyAgentOutcome      = "agent_outcome"
	KeyIntermediateSteps = "intermediate_steps"
	KeyLastAgent         = "last_agent"
)

// Message is a single chat message.
type Message = llms.MessageContent

// Step records one action taken by an agent together with what it observed.
type Step struct {
	Action      string `mapstructure:"action" json:"action"`
	Observation string `mapstructure:"observation" json:"observation"`
}

// State is the conversation-state value passed to and returned from a node.
type State struct {
	// Input is the raw user input of the current turn.
	Input string `mapstructure:"input,omitempty" json:"input"`
	// Messages is the conversation history. Values returned by a node are appended.
	Messages []Message `mapstructure:"messages,omitempty" json:"messages"`
	// AgentOutcome is the last outcome reported by an agent, nil until one exists.
	AgentOutcome any `mapstructure:"agent_outcome,omitempty" json:"agent_outcome"`
	// IntermediateSteps lists actions and observations. Values returned by a node are appended.
	IntermediateSteps []Step `mapstructure:"intermediate_steps,omitempty" json:"intermediate_steps"`
	// LastAgent names the node that produced the latest update.
	LastAgent string `mapstructure:"last_agent,omitempty" json:"last_agent"`
}

// NodeFunc is the capability every loaded remote function is adapted to.
type NodeFunc func(ctx context.Context, state State) (State, error)

// ToMap converts s into the map form used by the graph, leaving out empty fields.
func ToMap(s State) (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(s, &out); err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return out, nil
}

// FromMap converts the map form used by the graph back into a State.
func FromMap(m map[string]any) (State, error) {
	var s State
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &s,
		TagName: "mapstructure",
	})
	if err != nil {
		return State{}, err
	}
	if err := dec.Decode(m); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}

// LastMessage returns the final message of the history and whether there was one.
func (s State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
