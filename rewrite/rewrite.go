// Package rewrite resolves a remote unit's free type references through an explicit manifest
// and writes the resulting imports into the unit.
package rewrite

import (
	"bytes"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"slices"
	"sort"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
)

// AgentStatePath is the import path of the package every remote unit may refer to unqualified.
const AgentStatePath = "github.com/agentcomposer/agentcomposer/agentstate"

// Import is an import declaration to add to a remote unit. Name is "." for a dot import.
type Import struct {
	Name string
	Path string
}

func (i Import) String() string {
	if i.Name == "" {
		return fmt.Sprintf("import %q", i.Path)
	}
	return fmt.Sprintf("import %s %q", i.Name, i.Path)
}

// UndeclaredTypeError reports free type names that the manifest does not declare.
type UndeclaredTypeError struct {
	Names []string
}

func (e *UndeclaredTypeError) Error() string {
	return fmt.Sprintf("undeclared types: %s", strings.Join(e.Names, ", "))
}

// Manifest maps a type name to the import path that declares it.
type Manifest map[string]string

// DefaultManifest declares the names exported by the agentstate package.
func DefaultManifest() Manifest {
	m := Manifest{}
	for _, name := range []string{
		"State", "Message", "Step", "NodeFunc",
		"Complete", "HumanMessage", "AIMessage", "SystemMessage", "TextOf", "ModelFrom",
	} {
		m[name] = AgentStatePath
	}
	return m
}

// Merge returns a manifest holding m's entries overridden by other's.
func (m Manifest) Merge(other Manifest) Manifest {
	out := make(Manifest, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ParseManifest reads "Name=import/path" entries separated by commas.
func ParseManifest(s string) (Manifest, error) {
	m := Manifest{}
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, path, ok := strings.Cut(entry, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid manifest entry %q", entry)
		}
		m[strings.TrimSpace(name)] = strings.TrimSpace(path)
	}
	return m, nil
}

// NeededImports returns the dot imports required to resolve freeNames. Paths listed in
// existing are not repeated. Names missing from the manifest yield an *UndeclaredTypeError.
func (m Manifest) NeededImports(freeNames []string, existing []string) ([]Import, error) {
	var imports []Import
	var missing []string
	for _, name := range freeNames {
		path, ok := m[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if slices.Contains(existing, path) || slices.ContainsFunc(imports, func(i Import) bool { return i.Path == path }) {
			continue
		}
		imports = append(imports, Import{Name: ".", Path: path})
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &UndeclaredTypeError{Names: missing}
	}
	return imports, nil
}

// Prepend adds imports ahead of the existing declarations of the file at path and rewrites
// it in place.
func Prepend(path string, imports []Import) error {
	if len(imports) == 0 {
		return nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, imp := range imports {
		if imp.Name == "" {
			astutil.AddImport(fset, file, imp.Path)
		} else {
			astutil.AddNamedImport(fset, file, imp.Name, imp.Path)
		}
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return fmt.Errorf("format %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), info.Mode().Perm())
}
