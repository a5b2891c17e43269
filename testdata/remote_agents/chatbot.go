// Package chatbot is a remote unit served to agent-composer:
//
//	agent-composer --url https://host/remote_agents/chatbot.go --function Chatbot
//
// State, Message and Complete are left unqualified; the composer prepends
// the import that declares them before loading the file.
package chatbot

import (
	"context"
	"strings"
)

const persona = "You are a concise assistant. Answer in at most three sentences."

// Chatbot answers the conversation so far.
func Chatbot(ctx context.Context, state State) (State, error) {
	messages := append([]Message{SystemMessage(persona)}, state.Messages...)
	reply, err := Complete(ctx, messages)
	if err != nil {
		return State{}, err
	}
	return State{Messages: []Message{reply}}, nil
}

// Echo repeats the last message without calling a model.
func Echo(state State) State {
	last, ok := state.LastMessage()
	if !ok {
		return State{}
	}
	return State{Messages: []Message{AIMessage(strings.TrimSpace(TextOf(last)))}}
}
