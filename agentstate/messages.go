package agentstate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ErrNoModel is returned by Complete when the context carries no chat model.
var ErrNoModel = errors.New("agentstate: no chat model in context")

type modelKey struct{}

type boundModel struct {
	model llms.Model
	opts  []llms.CallOption
}

// WithModel returns a context carrying the session's chat model and the call options
// applied to every Complete.
func WithModel(ctx context.Context, model llms.Model, opts ...llms.CallOption) context.Context {
	return context.WithValue(ctx, modelKey{}, boundModel{model: model, opts: opts})
}

// ModelFrom returns the chat model stored by WithModel, or nil.
func ModelFrom(ctx context.Context) llms.Model {
	if b, ok := ctx.Value(modelKey{}).(boundModel); ok {
		return b.model
	}
	return nil
}

// Complete sends messages to the session's chat model and returns its reply as an AI message.
func Complete(ctx context.Context, messages []Message) (Message, error) {
	b, ok := ctx.Value(modelKey{}).(boundModel)
	if !ok || b.model == nil {
		return Message{}, ErrNoModel
	}
	resp, err := b.model.GenerateContent(ctx, messages, b.opts...)
	if err != nil {
		return Message{}, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Message{}, errors.New("agentstate: model returned no choices")
	}
	return AIMessage(resp.Choices[0].Content), nil
}

// HumanMessage builds a user message.
func HumanMessage(text string) Message {
	return llms.TextParts(llms.ChatMessageTypeHuman, text)
}

// SystemMessage builds a system prompt.
func SystemMessage(text string) Message {
	return llms.TextParts(llms.ChatMessageTypeSystem, text)
}

// AIMessage builds an assistant message.
func AIMessage(text string) Message {
	return llms.TextParts(llms.ChatMessageTypeAI, text)
}

// TextOf concatenates the text parts of m.
func TextOf(m Message) string {
	var sb strings.Builder
	for _, part := range m.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			sb.WriteString(p.Text)
		default:
			fmt.Fprintf(&sb, "%v", p)
		}
	}
	return sb.String()
}
