// Package analyzer inspects a remote unit's source without executing it.
//
// It parses the file with go/parser and reports the functions it declares, the packages it
// imports, and for a chosen function its parameters and the type names those parameters use
// that the file itself cannot resolve.
package analyzer
