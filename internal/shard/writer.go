// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package shard

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// Encode writes records to w as compact JSON, one object per line. HTML
// characters and non-ASCII text are written as-is.
func Encode(w io.Writer, records []types.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	return nil
}

// Write stores records at path as a single gzip stream of JSON lines. The
// data goes to a temporary file in the same directory, which is renamed
// over path once complete, so path never holds a truncated shard. An empty
// slice produces a valid gzip file with an empty body.
func Write(path string, records []types.Record) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".shard-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	gz := gzip.NewWriter(tmpFile)
	encErr := Encode(gz, records)
	gzErr := gz.Close()
	// CreateTemp uses 0600; shards get the usual 0644.
	modeErr := tmpFile.Chmod(0o644)
	closeErr := tmpFile.Close()
	for _, err := range []error{encErr, gzErr, modeErr, closeErr} {
		if err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
