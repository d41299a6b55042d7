package core

import (
	"fmt"
	"os"
)

// DefaultMaxFileSize bounds per-file memory use during analysis.
const DefaultMaxFileSize = 5 * 1024 * 1024 // 5MB

// Reader loads source files with existence, type and size checks.
type Reader struct {
	maxBytes int64
}

// NewReader creates a reader with the given file-size ceiling. A zero or
// negative ceiling falls back to DefaultMaxFileSize.
func NewReader(maxBytes int64) *Reader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileSize
	}
	return &Reader{maxBytes: maxBytes}
}

// MaxBytes returns the configured file-size ceiling.
func (r *Reader) MaxBytes() int64 { return r.maxBytes }

// Read returns the file's contents. Missing files, permission failures,
// non-regular files and oversized files all surface as *DiscoveryError.
func (r *Reader) Read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &DiscoveryError{Path: path, Op: "stat", Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &DiscoveryError{Path: path, Op: "read", Err: fmt.Errorf("not a regular file")}
	}
	if info.Size() > r.maxBytes {
		return nil, &DiscoveryError{
			Path: path,
			Op:   "read",
			Err:  fmt.Errorf("file size %d exceeds limit %d", info.Size(), r.maxBytes),
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DiscoveryError{Path: path, Op: "read", Err: err}
	}
	return data, nil
}
