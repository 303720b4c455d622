package network

import (
	"bytes"

	"github.com/klauspost/compress/flate"
)

// CompressBoard deflates a rendered board into the binary snapshot
// payload. The stream is raw deflate at the default level; the client
// inflates it unchanged.
func CompressBoard(rendered []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(rendered); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
