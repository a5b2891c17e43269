// Package fetch downloads a remote unit and stores it on local disk.
//
// A download either succeeds completely or leaves the destination untouched: the body is
// written to a temporary file next to the destination and renamed into place only after the
// status check, the optional checksum verification and the write all succeed.
package fetch
