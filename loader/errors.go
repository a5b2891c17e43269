package loader

import "fmt"

// SymbolNotFoundError reports a function missing from the evaluated unit.
type SymbolNotFoundError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol %q not found in %s: %v", e.Symbol, e.Path, e.Err)
}

func (e *SymbolNotFoundError) Unwrap() error { return e.Err }

// ImportError reports a unit that could not be evaluated, for example because a dependency
// is missing or an added import is wrong.
type ImportError struct {
	Path string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// SignatureError reports a bound symbol whose shape does not match a node function.
type SignatureError struct {
	Symbol string
	Type   string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s has type %s; want func(context.Context, State) (State, error) or func(State) State", e.Symbol, e.Type)
}
