// Package codec implements the block format used to store image payloads
// compressed at rest.
//
// A block is [uncompressed uint32][compressed uint32][payload], little endian.
// A compressed length of 0 means the payload is stored raw, which is the
// common case for already-compressed formats such as WebP.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm selects the compression algorithm.
type Algorithm uint8

const (
	// None stores payloads raw (still framed with a header).
	None Algorithm = 0
	// LZ4 is fast block compression, suited to hot data.
	LZ4 Algorithm = 1
	// ZSTD gives a better ratio at a higher CPU cost.
	ZSTD Algorithm = 2
)

// HeaderSize is the size of the block header in bytes.
const HeaderSize = 8

// maxRatio is the compressed/raw ratio above which a payload is stored raw.
const maxRatio = 0.9

var (
	// ErrCorrupt is returned when a block cannot be decoded.
	ErrCorrupt = errors.New("codec: corrupt block")
	// ErrUnknownAlgorithm is returned for unsupported algorithm names.
	ErrUnknownAlgorithm = errors.New("codec: unknown algorithm")
	// ErrTooLarge is returned for payloads that do not fit the header.
	ErrTooLarge = errors.New("codec: payload too large")
)

// String returns the stable name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm parses a name as produced by Algorithm.String.
// The empty string selects None.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Encode frames data as a block, compressing it with a when that helps.
func Encode(data []byte, a Algorithm) ([]byte, error) {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return nil, ErrTooLarge
	}

	var compressed []byte
	var err error

	switch a {
	case None:
	case LZ4:
		compressed, err = compressLZ4(data)
	case ZSTD:
		compressed = compressZSTD(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, a)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*maxRatio {
		return frame(data, 0), nil
	}
	return frame(compressed, uint32(len(data))), nil
}

// frame prepends the header. rawSize 0 marks payload as stored raw.
func frame(payload []byte, rawSize uint32) []byte {
	out := make([]byte, HeaderSize+len(payload))
	if rawSize == 0 {
		binary.LittleEndian.PutUint32(out[0:], uint32(len(payload)))
		binary.LittleEndian.PutUint32(out[4:], 0)
	} else {
		binary.LittleEndian.PutUint32(out[0:], rawSize)
		binary.LittleEndian.PutUint32(out[4:], uint32(len(payload)))
	}
	copy(out[HeaderSize:], payload)
	return out
}

func compressLZ4(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return compressed[:n], nil
}

func compressZSTD(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)
	return enc.EncodeAll(data, nil)
}

// Decode reverses Encode. Raw blocks are returned as a subslice of block.
func Decode(block []byte, a Algorithm) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}

	rawSize := binary.LittleEndian.Uint32(block[0:])
	compressedSize := binary.LittleEndian.Uint32(block[4:])
	body := block[HeaderSize:]

	if compressedSize == 0 {
		if uint64(len(body)) < uint64(rawSize) {
			return nil, fmt.Errorf("%w: truncated payload", ErrCorrupt)
		}
		return body[:rawSize], nil
	}
	if uint64(len(body)) < uint64(compressedSize) {
		return nil, fmt.Errorf("%w: truncated payload", ErrCorrupt)
	}
	body = body[:compressedSize]

	switch a {
	case LZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint32(n) != rawSize {
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint32(len(out)) != rawSize {
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: compressed block for %s", ErrCorrupt, a)
	}
}
