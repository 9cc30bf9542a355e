package batch

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

// gzipMagic is the two leading bytes of every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// EncodeAndCompress canonically JSON-encodes v, gzipping the result
// only when it exceeds thresholdBytes. The returned bool reports
// whether compression was applied, so the remote store call can set
// the appropriate Content-Encoding.
func EncodeAndCompress(v any, thresholdBytes int) ([]byte, bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false, fmt.Errorf("batch: encoding payload: %w", err)
	}
	if len(raw) <= thresholdBytes {
		return raw, false, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, false, fmt.Errorf("batch: compressing payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, false, fmt.Errorf("batch: closing gzip writer: %w", err)
	}
	return buf.Bytes(), true, nil
}

// Decompress reverses EncodeAndCompress: if b starts with the gzip
// magic bytes it is inflated, otherwise it is returned unchanged.
func Decompress(b []byte) ([]byte, error) {
	if len(b) < 2 || b[0] != gzipMagic[0] || b[1] != gzipMagic[1] {
		return b, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("batch: opening gzip reader: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("batch: decompressing payload: %w", err)
	}
	return out, nil
}
