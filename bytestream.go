package nifti

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
)

/*
===============================================================================
    ByteStreamCodec
===============================================================================
*/

// Inflater decompresses a complete deflate-framed byte stream.
type Inflater interface {
	Inflate(src []byte) ([]byte, error)
}

// Deflater compresses a complete byte stream into a deflate frame.
type Deflater interface {
	Deflate(src []byte) ([]byte, error)
}

// ZlibCodec satisfies `Inflater` and `Deflater` with zlib framing, which is
// how the surface format wraps its compressed payloads.
type ZlibCodec struct{}

// Inflate decompresses `src` in bounded chunks until the stream reports no
// further output. A zero-length read is treated as transient and retried,
// not as end-of-stream.
func (ZlibCodec) Inflate(src []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := []byte{}
	chunk := make([]byte, GetConfig().ReadBufferSize)
	for {
		n, err := zr.Read(chunk)
		if n > 0 {
			out = append(out, chunk[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Deflate compresses `src` into a zlib frame.
func (ZlibCodec) Deflate(src []byte) ([]byte, error) {
	buf := bytes.Buffer{}
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ByteStreamCodec translates between base64 text framing and raw bytes,
// passing the payload through a compression transform on either direction.
type ByteStreamCodec struct {
	Inflater Inflater
	Deflater Deflater
}

// NewByteStreamCodec returns a fresh ByteStreamCodec backed by zlib.
func NewByteStreamCodec() ByteStreamCodec {
	return ByteStreamCodec{Inflater: ZlibCodec{}, Deflater: ZlibCodec{}}
}

// Decode base64-decodes `text` and inflates the result.
func (c ByteStreamCodec) Decode(text string) ([]byte, error) {
	compressed, err := decodeBase64Text(text)
	if err != nil {
		return nil, UnrecognizedEncodingError("Decode(): %v", err)
	}
	out, err := c.Inflater.Inflate(compressed)
	if err != nil {
		return nil, TruncatedPayloadError("Decode(): %v", err)
	}
	return out, nil
}

// Encode deflates `data` and base64-encodes the result.
// It is the exact inverse of `Decode`.
func (c ByteStreamCodec) Encode(data []byte) (string, error) {
	compressed, err := c.Deflater.Deflate(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// decodeBase64Text strips insignificant whitespace from `text` and decodes
// the remainder as standard base64. Serialisers are free to wrap the
// payload text across lines.
func decodeBase64Text(text string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, text)
	return base64.StdEncoding.DecodeString(cleaned)
}
