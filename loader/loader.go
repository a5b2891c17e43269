package loader

import (
	"context"
	"os"
	"path/filepath"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/agentcomposer/agentcomposer/agentstate"
	"github.com/agentcomposer/agentcomposer/log"
)

var (
	nodeFuncType  = reflect.TypeOf((*func(context.Context, agentstate.State) (agentstate.State, error))(nil)).Elem()
	shortFuncType = reflect.TypeOf((*func(agentstate.State) agentstate.State)(nil)).Elem()
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// Loaded is a function bound from a remote unit.
type Loaded struct {
	Package string
	Name    string
	// Node is the function adapted to the node capability.
	Node agentstate.NodeFunc
	// Type is the function's type as seen by the interpreter.
	Type reflect.Type
}

// ParamTypes returns the parameter types of the bound function, leaving out context.Context.
func (l *Loaded) ParamTypes() []reflect.Type {
	var params []reflect.Type
	for i := 0; i < l.Type.NumIn(); i++ {
		if in := l.Type.In(i); in != contextType {
			params = append(params, in)
		}
	}
	return params
}

// Loader evaluates remote units.
type Loader struct {
	goPath  string
	exports []interp.Exports
	logger  log.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithGoPath sets the interpreter's GOPATH. By default it is the unit's directory.
func WithGoPath(dir string) Option {
	return func(l *Loader) {
		l.goPath = dir
	}
}

// WithExports makes additional precompiled packages visible to interpreted code.
func WithExports(exports interp.Exports) Option {
	return func(l *Loader) {
		l.exports = append(l.exports, exports)
	}
}

// WithLogger sets the logger.
func WithLogger(lg log.Logger) Option {
	return func(l *Loader) {
		l.logger = lg
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{logger: log.NoOpLogger{}}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = log.OrNoOp(l.logger)
	return l
}

// Load evaluates the unit at path and binds pkg.function, where pkg is the unit's package
// name, as a node function.
func (l *Loader) Load(ctx context.Context, path, pkg, function string) (*Loaded, error) {
	v, err := l.Bind(ctx, path, pkg, function)
	if err != nil {
		return nil, err
	}

	node, err := adapt(function, v)
	if err != nil {
		return nil, err
	}
	l.logger.Info("loaded %s.%s (%s)", pkg, function, v.Type())

	return &Loaded{Package: pkg, Name: function, Node: node, Type: v.Type()}, nil
}

// Bind evaluates the unit at path and returns pkg.function without checking its shape.
func (l *Loader) Bind(ctx context.Context, path, pkg, function string) (reflect.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return reflect.Value{}, &ImportError{Path: path, Err: err}
	}

	goPath := l.goPath
	if goPath == "" {
		goPath = filepath.Dir(path)
	}

	i := interp.New(interp.Options{GoPath: goPath})
	for _, e := range append([]interp.Exports{stdlib.Symbols, Symbols}, l.exports...) {
		if err := i.Use(e); err != nil {
			return reflect.Value{}, &ImportError{Path: path, Err: err}
		}
	}

	if _, err := i.EvalWithContext(ctx, string(src)); err != nil {
		return reflect.Value{}, &ImportError{Path: path, Err: err}
	}
	l.logger.Debug("evaluated %s as package %s", path, pkg)

	v, err := i.EvalWithContext(ctx, pkg+"."+function)
	if err != nil {
		return reflect.Value{}, &SymbolNotFoundError{Path: path, Symbol: function, Err: err}
	}
	return v, nil
}

// adapt checks the shape of v and wraps it as a NodeFunc.
func adapt(name string, v reflect.Value) (agentstate.NodeFunc, error) {
	if !v.IsValid() || v.Kind() != reflect.Func {
		typ := "invalid"
		if v.IsValid() {
			typ = v.Type().String()
		}
		return nil, &SignatureError{Symbol: name, Type: typ}
	}

	switch {
	case v.Type().ConvertibleTo(nodeFuncType):
		fn := v.Convert(nodeFuncType).Interface().(func(context.Context, agentstate.State) (agentstate.State, error))
		return fn, nil
	case v.Type().ConvertibleTo(shortFuncType):
		fn := v.Convert(shortFuncType).Interface().(func(agentstate.State) agentstate.State)
		return func(_ context.Context, s agentstate.State) (agentstate.State, error) {
			return fn(s), nil
		}, nil
	}
	return nil, &SignatureError{Symbol: name, Type: v.Type().String()}
}
