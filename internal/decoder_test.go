package internal

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDecodeFooterTail(t *testing.T) {
	n, err := decodeFooterTail([]byte{0x10, 0x02, 0x00, 0x00, 'P', 'A', 'R', '1'})
	require.NoError(t, err)
	assert.Equal(t, int64(0x210), n)

	_, err = decodeFooterTail([]byte{0x10, 0x02, 0x00, 0x00, 'P', 'A', 'R', '2'})
	assert.ErrorContains(t, err, "invalid magic number")

	_, err = decodeFooterTail([]byte{0x00, 0x00, 0x00, 0x00, 'P', 'A', 'R', '1'})
	assert.ErrorContains(t, err, "invalid footer length")
}

func TestDecodeLevels(t *testing.T) {
	levels, rest, err := decodeLevels([]byte{0x02, 0x00, 0x00, 0x00, 0xaa, 0xbb, 0xcc})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb}, levels)
	assert.Equal(t, []byte{0xcc}, rest)

	_, _, err = decodeLevels([]byte{0x05, 0x00, 0x00, 0x00, 0xaa})
	assert.Error(t, err)
}

type run struct {
	value    uint32
	repeated uint64
}

func collectRLE(t *testing.T, data []byte, bitWidth uint32, limit int64) []run {
	t.Helper()
	var runs []run
	require.NoError(t, readRLE(data, bitWidth, limit, func(v uint32, n uint64) {
		runs = append(runs, run{v, n})
	}))
	return runs
}

func TestReadRLE_Run(t *testing.T) {
	// 値1が5回、値0が3回
	data := []byte{5 << 1, 0x01, 3 << 1, 0x00}

	assert.Equal(t, []run{{1, 5}, {0, 3}}, collectRLE(t, data, 1, 100))
	assert.Equal(t, []run{{1, 5}, {0, 1}}, collectRLE(t, data, 1, 6))
}

func TestReadRLE_BitPacked(t *testing.T) {
	// 1グループ(8個): 1,0,1,1,0,0,0,1 を下位ビットから詰める
	data := []byte{1<<1 | 1, 0x8d}

	got := collectRLE(t, data, 1, 5)
	assert.Equal(t, []run{{1, 1}, {0, 1}, {1, 1}, {1, 1}, {0, 1}}, got)
}

func TestReadRLE_Errors(t *testing.T) {
	noop := func(uint32, uint64) {}

	assert.Error(t, readRLE([]byte{0x02}, 1, 10, noop))
	assert.Error(t, readRLE([]byte{0x03}, 1, 10, noop))
	assert.Error(t, readRLE([]byte{0x80}, 1, 10, noop))
	assert.Error(t, readRLE([]byte{0x02, 0x01}, 0, 10, noop))
}

func TestEnumNames(t *testing.T) {
	assert.Equal(t, "FIXED_LEN_BYTE_ARRAY", TypeFixedLenByteArray.String())
	assert.Equal(t, "LZ4_RAW", CodecLZ4Raw.String())
	assert.Equal(t, "DATA_PAGE_V2", PageDataV2.String())
	assert.Equal(t, "RLE_DICTIONARY", EncodingRLEDictionary.String())
	assert.Equal(t, "REPEATED", Repeated.String())
	assert.Equal(t, "CompressionCodec(42)", CompressionCodec(42).String())

	text, err := TypeDouble.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DOUBLE", string(text))
}
