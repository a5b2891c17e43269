package fetch

import "fmt"

// TransferError reports a non-2xx response.
type TransferError struct {
	URL        string
	StatusCode int
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// ChecksumError reports a body whose SHA-256 differs from the expected digest.
type ChecksumError struct {
	URL      string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("fetch %s: checksum mismatch: expected %s, got %s", e.URL, e.Expected, e.Actual)
}
