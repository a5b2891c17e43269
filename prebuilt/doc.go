// Package prebuilt wires a single externally supplied node function into a
// compiled state graph and exposes it as a chat agent.
//
//	agent, err := prebuilt.NewRemoteAgent("Chatbot", node, prebuilt.WithModel(model))
//	reply, err := agent.Chat(ctx, "hello")
package prebuilt
