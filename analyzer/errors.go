package analyzer

import "fmt"

// ParseError reports a file that is not valid Go source.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SymbolNotFoundError reports a function that the remote unit does not declare.
type SymbolNotFoundError struct {
	Path   string
	Symbol string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("function %q not found in %s", e.Symbol, e.Path)
}
