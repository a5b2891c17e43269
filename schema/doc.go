// Package schema builds default-populated instances of struct types.
//
// Sample walks a struct's exported fields and fills each from a fixed table: integers 0,
// strings "", floats 0.0, booleans false, nested structs (or pointers to structs) a recursively
// sampled instance, everything else nil. The assembled values are decoded into the struct with
// mapstructure and then checked against its `validate` tags, so a struct whose constraints the
// defaults cannot satisfy is reported as a *ValidationError.
package schema
