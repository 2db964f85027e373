package api

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// acceptedEncodings is advertised on every request; the transport's transparent
// gzip is disabled so decoding stays in one place.
const acceptedEncodings = "gzip, br, zstd"

// readBody drains and decodes the response body according to its
// Content-Encoding header. Read failures are transport failures; decode
// failures are decoding failures.
func readBody(resp *http.Response) ([]byte, *Error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyTransportError(err)
	}
	data, err := decompress(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return nil, &Error{Kind: KindDecoding, Message: "decode response body", cause: err}
	}
	return data, nil
}

func decompress(encoding string, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return data, nil
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer func() { _ = reader.Close() }()
		return io.ReadAll(reader)
	case "deflate":
		reader := flate.NewReader(bytes.NewReader(data))
		defer func() { _ = reader.Close() }()
		return io.ReadAll(reader)
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	case "zstd":
		reader, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer reader.Close()
		return io.ReadAll(reader)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
