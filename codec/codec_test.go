package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgcache/testutil"
)

func TestEncodeDecode(t *testing.T) {
	compressible := bytes.Repeat([]byte("layer pixels "), 1000)
	random := testutil.NewRNG(1).Image(4096)

	for _, a := range []Algorithm{None, LZ4, ZSTD} {
		t.Run(a.String(), func(t *testing.T) {
			for _, data := range [][]byte{compressible, random, {}, []byte("x")} {
				block, err := Encode(data, a)
				require.NoError(t, err)

				got, err := Decode(block, a)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(data, got))
			}
		})
	}
}

func TestEncode_Compresses(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 64*1024)

	for _, a := range []Algorithm{LZ4, ZSTD} {
		block, err := Encode(data, a)
		require.NoError(t, err)
		assert.Less(t, len(block), len(data)/10, a.String())
		assert.NotZero(t, binary.LittleEndian.Uint32(block[4:]), "stored compressed")
	}
}

func TestEncode_IncompressibleStoredRaw(t *testing.T) {
	data := testutil.NewRNG(7).Image(8192)

	block, err := Encode(data, ZSTD)
	require.NoError(t, err)
	assert.Equal(t, HeaderSize+len(data), len(block))
	assert.Zero(t, binary.LittleEndian.Uint32(block[4:]))
	assert.Equal(t, uint32(len(data)), binary.LittleEndian.Uint32(block[0:]))
}

func TestDecode_Corrupt(t *testing.T) {
	block, err := Encode(bytes.Repeat([]byte("a"), 4096), LZ4)
	require.NoError(t, err)

	tests := []struct {
		name  string
		block []byte
		alg   Algorithm
	}{
		{"short header", []byte{1, 2, 3}, LZ4},
		{"truncated", block[:len(block)-4], LZ4},
		{"wrong algorithm", block, None},
		{"raw truncated", append(binary.LittleEndian.AppendUint32(nil, 10), 0, 0, 0, 0, 'x'), None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.block, tt.alg)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, a := range []Algorithm{None, LZ4, ZSTD} {
		got, err := ParseAlgorithm(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	got, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, None, got)

	_, err = ParseAlgorithm("brotli")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.Equal(t, "algorithm(9)", Algorithm(9).String())
}

func BenchmarkEncode(b *testing.B) {
	data := bytes.Repeat([]byte("layer pixels "), 10000)
	for _, a := range []Algorithm{LZ4, ZSTD} {
		b.Run(a.String(), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := Encode(data, a); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
