package internal

import "fmt"

// Parquet のフッターに現れる列挙型
type (
	Type                int32
	FieldRepetitionType int32
	CompressionCodec    int32
	PageType            int32
	Encoding            int32
)

const (
	TypeBoolean Type = iota
	TypeInt32
	TypeInt64
	TypeInt96
	TypeFloat
	TypeDouble
	TypeByteArray
	TypeFixedLenByteArray
)

const (
	Required FieldRepetitionType = iota
	Optional
	Repeated
)

const (
	CodecUncompressed CompressionCodec = iota
	CodecSnappy
	CodecGzip
	CodecLZO
	CodecBrotli
	CodecLZ4
	CodecZstd
	CodecLZ4Raw
)

const (
	PageData PageType = iota
	PageIndex
	PageDictionary
	PageDataV2
)

const (
	EncodingPlain              Encoding = 0
	EncodingPlainDictionary    Encoding = 2
	EncodingRLE                Encoding = 3
	EncodingBitPacked          Encoding = 4
	EncodingDeltaBinaryPacked  Encoding = 5
	EncodingDeltaLengthByteArr Encoding = 6
	EncodingDeltaByteArray     Encoding = 7
	EncodingRLEDictionary      Encoding = 8
	EncodingByteStreamSplit    Encoding = 9
)

var typeNames = []string{
	"BOOLEAN", "INT32", "INT64", "INT96", "FLOAT", "DOUBLE", "BYTE_ARRAY", "FIXED_LEN_BYTE_ARRAY",
}

var repetitionNames = []string{"REQUIRED", "OPTIONAL", "REPEATED"}

var codecNames = []string{
	"UNCOMPRESSED", "SNAPPY", "GZIP", "LZO", "BROTLI", "LZ4", "ZSTD", "LZ4_RAW",
}

var pageTypeNames = []string{"DATA_PAGE", "INDEX_PAGE", "DICTIONARY_PAGE", "DATA_PAGE_V2"}

var encodingNames = []string{
	"PLAIN", "GROUP_VAR_INT", "PLAIN_DICTIONARY", "RLE", "BIT_PACKED",
	"DELTA_BINARY_PACKED", "DELTA_LENGTH_BYTE_ARRAY", "DELTA_BYTE_ARRAY", "RLE_DICTIONARY", "BYTE_STREAM_SPLIT",
}

func enumName(names []string, kind string, v int32) string {
	if v >= 0 && int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", kind, v)
}

func (t Type) String() string {
	return enumName(typeNames, "Type", int32(t))
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (r FieldRepetitionType) String() string {
	return enumName(repetitionNames, "FieldRepetitionType", int32(r))
}

func (r FieldRepetitionType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (c CompressionCodec) String() string {
	return enumName(codecNames, "CompressionCodec", int32(c))
}

func (c CompressionCodec) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (t PageType) String() string {
	return enumName(pageTypeNames, "PageType", int32(t))
}

func (t PageType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (e Encoding) String() string {
	return enumName(encodingNames, "Encoding", int32(e))
}

func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}
