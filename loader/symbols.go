package loader

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/agentcomposer/agentcomposer/agentstate"
)

// Symbols exposes the agentstate package to interpreted code.
var Symbols = interp.Exports{
	"github.com/agentcomposer/agentcomposer/agentstate/agentstate": {
		"State":    reflect.ValueOf((*agentstate.State)(nil)),
		"Message":  reflect.ValueOf((*agentstate.Message)(nil)),
		"Step":     reflect.ValueOf((*agentstate.Step)(nil)),
		"NodeFunc": reflect.ValueOf((*agentstate.NodeFunc)(nil)),

		"Complete":      reflect.ValueOf(agentstate.Complete),
		"HumanMessage":  reflect.ValueOf(agentstate.HumanMessage),
		"AIMessage":     reflect.ValueOf(agentstate.AIMessage),
		"SystemMessage": reflect.ValueOf(agentstate.SystemMessage),
		"TextOf":        reflect.ValueOf(agentstate.TextOf),
		"ModelFrom":     reflect.ValueOf(agentstate.ModelFrom),
		"ToMap":         reflect.ValueOf(agentstate.ToMap),
		"FromMap":       reflect.ValueOf(agentstate.FromMap),
		"ErrNoModel":    reflect.ValueOf(&agentstate.ErrNoModel).Elem(),

		"KeyInput":             reflect.ValueOf(agentstate.KeyInput),
		"KeyMessages":          reflect.ValueOf(agentstate.KeyMessages),
		"KeyAgentOutcome":      reflect.ValueOf(agentstate.KeyAgentOutcome),
		"KeyIntermediateSteps": reflect.ValueOf(agentstate.KeyIntermediateSteps),
		"KeyLastAgent":         reflect.ValueOf(agentstate.KeyLastAgent),
	},
}
