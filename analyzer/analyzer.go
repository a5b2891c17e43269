package analyzer

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"slices"
	"strconv"
)

// Param is a declared function parameter.
type Param struct {
	Name string
	Type string
}

// Catalog is everything discovered in one remote unit.
type Catalog struct {
	Path      string
	Package   string
	Functions []string
	Imports   []string

	funcs    map[string]*ast.FuncDecl
	declared map[string]bool
}

// Analyze parses path once and builds its Catalog.
func Analyze(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return AnalyzeSource(path, src)
}

// AnalyzeSource builds a Catalog from src; path is only used for positions and errors.
func AnalyzeSource(path string, src []byte) (*Catalog, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	c := &Catalog{
		Path:     path,
		Package:  file.Name.Name,
		funcs:    make(map[string]*ast.FuncDecl),
		declared: make(map[string]bool),
	}
	c.Functions = functionNames(file)
	c.Imports = importPaths(file)

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				c.declared[d.Name.Name] = true
				if _, seen := c.funcs[d.Name.Name]; !seen {
					c.funcs[d.Name.Name] = d
				}
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					c.declared[s.Name.Name] = true
				case *ast.ValueSpec:
					for _, n := range s.Names {
						c.declared[n.Name] = true
					}
				}
			}
		}
	}
	return c, nil
}

// ListFunctions returns the name of every function and method declared in path, in source
// order. Repeated names are kept.
func ListFunctions(path string) ([]string, error) {
	c, err := Analyze(path)
	if err != nil {
		return nil, err
	}
	return c.Functions, nil
}

// ListImports returns the import path of every import in path in first-occurrence order.
// Renamed, dot and blank imports report their origin path.
func ListImports(path string) ([]string, error) {
	c, err := Analyze(path)
	if err != nil {
		return nil, err
	}
	return c.Imports, nil
}

// Has reports whether name was discovered.
func (c *Catalog) Has(name string) bool {
	return slices.Contains(c.Functions, name)
}

// Signature returns the parameters of the package-level function name.
func (c *Catalog) Signature(name string) ([]Param, error) {
	fn, ok := c.funcs[name]
	if !ok {
		return nil, &SymbolNotFoundError{Path: c.Path, Symbol: name}
	}

	var params []Param
	for _, field := range fn.Type.Params.List {
		typ := types.ExprString(field.Type)
		if len(field.Names) == 0 {
			params = append(params, Param{Name: "_", Type: typ})
			continue
		}
		for _, n := range field.Names {
			params = append(params, Param{Name: n.Name, Type: typ})
		}
	}
	return params, nil
}

// FreeTypeNames returns the unqualified identifiers used in the parameter and result types
// of the package-level function name that are neither predeclared nor declared in the file,
// in first-occurrence order.
func (c *Catalog) FreeTypeNames(name string) ([]string, error) {
	fn, ok := c.funcs[name]
	if !ok {
		return nil, &SymbolNotFoundError{Path: c.Path, Symbol: name}
	}

	typeParams := make(map[string]bool)
	if fn.Type.TypeParams != nil {
		for _, f := range fn.Type.TypeParams.List {
			for _, n := range f.Names {
				typeParams[n.Name] = true
			}
		}
	}

	var free []string
	var visit func(n ast.Node) bool
	visit = func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.SelectorExpr:
			// package qualified, resolved by an import
			return false
		case *ast.Field:
			// names of fields and nested parameters are not references
			ast.Inspect(x.Type, visit)
			return false
		case *ast.Ident:
			id := x.Name
			if id == "_" || typeParams[id] || c.declared[id] || types.Universe.Lookup(id) != nil {
				return false
			}
			if !slices.Contains(free, id) {
				free = append(free, id)
			}
		}
		return true
	}
	collect := func(fields *ast.FieldList) {
		if fields == nil {
			return
		}
		for _, f := range fields.List {
			ast.Inspect(f.Type, visit)
		}
	}
	collect(fn.Type.Params)
	collect(fn.Type.Results)
	return free, nil
}

func functionNames(file *ast.File) []string {
	var names []string
	ast.Inspect(file, func(n ast.Node) bool {
		if fn, ok := n.(*ast.FuncDecl); ok {
			names = append(names, fn.Name.Name)
		}
		return true
	})
	return names
}

func importPaths(file *ast.File) []string {
	var paths []string
	for _, spec := range file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			p = spec.Path.Value
		}
		if !slices.Contains(paths, p) {
			paths = append(paths, p)
		}
	}
	return paths
}
