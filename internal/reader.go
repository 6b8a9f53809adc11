package internal

import (
	"bytes"
	"context"
	"fmt"
	"github.com/DataDog/zstd"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
	"io"
	"math/bits"
)

type (
	Reader struct {
		par  *Parquet
		meta *MetaData
	}

	// 列の全ページを展開して集計した結果
	ColumnStats struct {
		Path              string `json:"path"`
		Pages             int    `json:"pages"`
		Values            int64  `json:"values"`
		Nulls             int64  `json:"nulls"`
		CompressedBytes   int64  `json:"compressed_bytes"`
		UncompressedBytes int64  `json:"uncompressed_bytes"`
	}
)

func NewReader(ctx context.Context, par *Parquet) (*Reader, error) {
	meta, err := par.Inspect(ctx)
	if err != nil {
		return nil, err
	}

	return &Reader{par: par, meta: meta}, nil
}

func (r *Reader) MetaData() *MetaData {
	return r.meta
}

// 列の全ページを読み、値と null の数を数える
// ページの展開結果がヘッダーの非圧縮サイズと一致しない場合はエラーとする
func (r *Reader) ColumnStats(ctx context.Context, path ...string) (*ColumnStats, error) {
	schema := r.meta.FindSchema(path...)
	if schema == nil || !schema.IsLeaf() {
		return nil, fmt.Errorf("'%s' column does not exist", joinPath(path))
	}

	stats := &ColumnStats{Path: joinPath(path)}
	for _, col := range r.meta.FindColumnChunk(path...) {
		if err := r.par.Seek(col.PageHeadOffset()); err != nil {
			return nil, err
		}

		for {
			offset, err := r.par.CurrentOffset()
			if err != nil {
				return nil, err
			}

			if offset >= col.PageTailOffset() {
				break
			}

			if err := r.readPage(ctx, schema, col.Codec, stats); err != nil {
				return nil, fmt.Errorf("failed to read page(%d): %w", offset, err)
			}
		}
	}

	return stats, nil
}

func (r *Reader) readPage(ctx context.Context, schema *Schema, codec CompressionCodec, stats *ColumnStats) error {
	page, header, data, err := r.readCurrentPage(ctx, codec)
	if err != nil {
		return err
	}

	stats.Pages++
	stats.CompressedBytes += int64(page.CompressedSize)
	stats.UncompressedBytes += int64(len(data))

	switch {
	case page.Data != nil:
		nulls, err := countNulls(data, schema, int64(page.NumValues), page.Data)
		if err != nil {
			return err
		}
		stats.Values += int64(page.NumValues)
		stats.Nulls += nulls

	case page.DataV2 != nil:
		stats.Values += int64(page.NumValues)
		stats.Nulls += int64(header.DataPageHeaderV2.NumNulls)

	default:
		// 辞書ページ等は値として数えない
	}

	return nil
}

func (r *Reader) readCurrentPage(ctx context.Context, codec CompressionCodec) (*Page, *pageHeader, []byte, error) {
	page, header, err := r.par.nextPage(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	data, err := r.par.Read(int64(page.CompressedSize))
	if err != nil {
		return nil, nil, nil, err
	}

	// v2 のデータページではレベルは圧縮されずに値の前に置かれる
	if page.DataV2 != nil {
		levels := int(page.DataV2.DefinitionLevelsByteLength + page.DataV2.RepetitionLevelsByteLength)
		if levels < 0 || levels > len(data) {
			return nil, nil, nil, fmt.Errorf("invalid levels length %d", levels)
		}

		if page.DataV2.IsCompressed && len(data) > levels {
			values, err := decompress(codec, data[levels:], int(page.UncompressedSize)-levels)
			if err != nil {
				return nil, nil, nil, err
			}
			data = append(data[:levels:levels], values...)
		}
	} else if len(data) > 0 {
		if data, err = decompress(codec, data, int(page.UncompressedSize)); err != nil {
			return nil, nil, nil, err
		}
	}

	if len(data) != int(page.UncompressedSize) {
		return nil, nil, nil, fmt.Errorf("page size mismatch: header says %d bytes, got %d", page.UncompressedSize, len(data))
	}

	return page, header, data, nil
}

func decompress(codec CompressionCodec, data []byte, size int) ([]byte, error) {
	var (
		out []byte
		err error
	)

	switch codec {
	case CodecUncompressed:
		return data, nil

	case CodecZstd:
		out, err = zstd.Decompress(nil, data)

	// s2 は Snappy のブロック形式も展開できる
	case CodecSnappy:
		out, err = s2.Decode(nil, data)

	case CodecGzip:
		var gr *gzip.Reader
		if gr, err = gzip.NewReader(bytes.NewReader(data)); err == nil {
			out, err = io.ReadAll(gr)
		}

	case CodecLZ4Raw:
		out = make([]byte, size)
		var n int
		n, err = lz4.UncompressBlock(data, out)
		out = out[:max(n, 0)]

	default:
		return nil, fmt.Errorf("unsupported compression codec %s", codec)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s page: %w", codec, err)
	}
	return out, nil
}

// データページ v1 の定義レベルから、最大値に満たない(= null)の数を数える
func countNulls(data []byte, schema *Schema, numValues int64, header *DataPage) (int64, error) {
	if !schema.HasDefinitionLevels() {
		return 0, nil
	}

	if header.RepetitionLevelEncoding != EncodingRLE && schema.HasRepetitionLevels() {
		return 0, fmt.Errorf("unsupported repetition level encoding: %s", header.RepetitionLevelEncoding)
	}
	if header.DefinitionLevelEncoding != EncodingRLE {
		return 0, fmt.Errorf("unsupported definition level encoding: %s", header.DefinitionLevelEncoding)
	}

	var err error
	if schema.HasRepetitionLevels() {
		if _, data, err = decodeLevels(data); err != nil {
			return 0, err
		}
	}

	levels, _, err := decodeLevels(data)
	if err != nil {
		return 0, err
	}

	maxDef := uint32(schema.MaxDefinitionLevel)
	var nulls int64
	err = readRLE(levels, uint32(bits.Len32(maxDef)), numValues, func(level uint32, repeated uint64) {
		if level < maxDef {
			nulls += int64(repeated)
		}
	})
	return nulls, err
}
