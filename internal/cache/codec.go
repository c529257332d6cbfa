package cache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// compress gzips a response body before it goes to the entry store. Cached
// assets are mostly text (documents, scripts, styles) where this is a large
// saving against the storage quota.
func compress(body []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		// bytes.Buffer writes cannot fail; keep the close path honest anyway.
		_ = w.Close()
		return body
	}
	if err := w.Close(); err != nil {
		return body
	}
	return buf.Bytes()
}

// decompress reverses compress.
func decompress(stored []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(stored))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gzip body: %w", err)
	}
	return body, nil
}
