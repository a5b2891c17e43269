// Package agentstate defines the conversation-state value threaded through a composed agent
// graph, and the helpers remote units use to talk to the session's chat model.
//
// A remote unit is a Go source file fetched at runtime. It refers to State, Message and the
// helpers below unqualified; the composer adds a dot import of this package before the file
// is evaluated, so a minimal chatbot looks like:
//
//	package chatbot
//
//	import "context"
//
//	func Chatbot(ctx context.Context, state State) (State, error) {
//		reply, err := Complete(ctx, state.Messages)
//		if err != nil {
//			return State{}, err
//		}
//		return State{Messages: []Message{reply}}, nil
//	}
//
// Inside the graph the state travels as map[string]any. Messages and IntermediateSteps are
// appended by the graph's reducers rather than overwritten, so a node returns only what it adds.
package agentstate
