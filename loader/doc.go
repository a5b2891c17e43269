// Package loader evaluates a remote unit with an embedded Go interpreter and binds one of its
// functions as an agentstate.NodeFunc.
//
// The interpreter sees the standard library and the agentstate package. Everything else the
// unit imports must be found under the interpreter's GOPATH, which defaults to the directory
// holding the unit.
package loader
