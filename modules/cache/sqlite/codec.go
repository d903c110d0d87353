package sqlite

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names the compression of a stored response. The name is stored
// with each row, so rows written under one setting stay readable after the
// setting changes.
type Codec string

// Codecs.
const (
	CodecNone Codec = "none"
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
)

// ParseCodec parses a compression name.
func ParseCodec(name string) (Codec, error) {
	switch c := Codec(name); c {
	case CodecNone, CodecZstd, CodecLZ4:
		return c, nil
	}
	return "", fmt.Errorf("unknown compression %q", name)
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use with
// EncodeAll and DecodeAll.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// compress returns the encoded data and the codec actually used. Data that
// does not shrink is stored as is.
func compress(c Codec, data []byte) ([]byte, Codec) {
	switch c {
	case CodecZstd:
		if out := zstdEncoder.EncodeAll(data, nil); len(out) < len(data) {
			return out, CodecZstd
		}
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err == nil && n > 0 && n < len(data) {
			return buf[:n], CodecLZ4
		}
	}
	return data, CodecNone
}

func decompress(c Codec, data []byte, size int) ([]byte, error) {
	switch c {
	case CodecNone:
		if len(data) != size {
			return nil, fmt.Errorf("stored size %d, expected %d", len(data), size)
		}
		return data, nil
	case CodecZstd:
		out, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("zstd: got %d bytes, expected %d", len(out), size)
		}
		return out, nil
	case CodecLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("lz4: got %d bytes, expected %d", n, size)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown compression %q", c)
}
