// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package shard reads snapshot shard files and writes compressed
// line-delimited JSON output shards.
//
// An input shard holds a JSON array of records, a Crossref snapshot envelope
// ({"items": [...]}), or newline-delimited JSON objects. Any of these may be
// gzip-compressed; compression is detected from the first two bytes.
package shard

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

const envelopeKey = "items"

// Records yields the records of the shard at path in file order. Numbers
// are decoded as json.Number so integers survive untouched. Iteration
// stops at the first error, which is yielded with a nil record. A
// top-level value that is not a JSON object is an error.
func Records(path string) iter.Seq2[types.RawRecord, error] {
	return func(yield func(types.RawRecord, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(nil, fmt.Errorf("opening shard: %w", err))
			return
		}
		defer f.Close()

		r, err := decompress(bufio.NewReader(f))
		if err != nil {
			yield(nil, fmt.Errorf("reading %s: %w", path, err))
			return
		}
		if c, ok := r.(io.Closer); ok {
			defer c.Close()
		}

		if err := decode(r, yield); err != nil {
			yield(nil, fmt.Errorf("decoding %s: %w", path, err))
		}
	}
}

// ReadAll collects every record of the shard at path.
func ReadAll(path string) ([]types.RawRecord, error) {
	var out []types.RawRecord
	for rec, err := range Records(path) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// errStop is returned by decode helpers when the consumer stopped early.
var errStop = errors.New("iteration stopped")

func decompress(br *bufio.Reader) (io.Reader, error) {
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return gz, nil
	}
	return br, nil
}

func decode(r io.Reader, yield func(types.RawRecord, error) bool) error {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	switch first {
	case '[':
		err = decodeArray(dec, yield)
	case '{':
		err = decodeObjects(dec, yield)
	default:
		err = fmt.Errorf("unexpected %q at start of shard: want JSON array or object", first)
	}
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func decodeArray(dec *json.Decoder, yield func(types.RawRecord, error) bool) error {
	if _, err := dec.Token(); err != nil {
		return err
	}
	for i := 0; dec.More(); i++ {
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if err := emit(v, i, yield); err != nil {
			return err
		}
	}
	_, err := dec.Token()
	return err
}

func decodeObjects(dec *json.Decoder, yield func(types.RawRecord, error) bool) error {
	for i := 0; ; i++ {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if items, ok := envelopeItems(v); ok {
			for j, item := range items {
				if err := emit(item, j, yield); err != nil {
					return err
				}
			}
			continue
		}
		if err := emit(v, i, yield); err != nil {
			return err
		}
	}
}

// envelopeItems unwraps a Crossref snapshot file, whose only key is "items".
func envelopeItems(v any) ([]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return nil, false
	}
	items, ok := m[envelopeKey].([]any)
	return items, ok
}

func emit(v any, i int, yield func(types.RawRecord, error) bool) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("record %d is %s, want JSON object", i, types.KindOf(v))
	}
	if !yield(types.RawRecord(m), nil) {
		return errStop
	}
	return nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
