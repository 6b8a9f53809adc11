package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/murakmii/toolpath/internal/table"
	"github.com/murakmii/toolpath/internal/testutil"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func writeTable(t *testing.T, tbl *table.Table, opts ...table.ParquetOption) *bytes.Reader {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, table.WriteParquet(buf, tbl, opts...))
	return bytes.NewReader(buf.Bytes())
}

func inspect(t *testing.T, r *bytes.Reader) *MetaData {
	t.Helper()
	meta, err := NewParquet(r).Inspect(context.Background())
	require.NoError(t, err)
	return meta
}

func TestInspect_ScalarTable(t *testing.T) {
	tbl := table.Flattener{}.Flatten(testutil.TwoLayers())
	meta := inspect(t, writeTable(t, tbl, table.WithMetadata("ada3dp.parameters", "{}")))

	assert.Equal(t, int64(5), meta.TotalRows)
	assert.Equal(t, "{}", meta.KeyValues["ada3dp.parameters"])
	assert.Len(t, meta.SchemaTree.Children, 22)
	require.NotEmpty(t, meta.RowGroups)

	layer := meta.FindSchema("layerIndex")
	require.NotNil(t, layer)
	assert.True(t, layer.IsLeaf())
	assert.Equal(t, TypeInt32, *layer.Type)
	assert.Equal(t, Required, *layer.RepetitionType)
	assert.Equal(t, 1, layer.Depth)
	assert.False(t, layer.HasDefinitionLevels())
	assert.False(t, layer.HasRepetitionLevels())

	// 列名に含まれる "." はパスの区切りではない
	pos := meta.FindSchema("position.x")
	require.NotNil(t, pos)
	assert.Equal(t, TypeDouble, *pos.Type)
	assert.Nil(t, meta.FindSchema("position", "x"))
	assert.Nil(t, meta.FindSchema("nope"))

	chunks := meta.FindColumnChunk("speed")
	require.Len(t, chunks, len(meta.RowGroups))
	assert.Equal(t, CodecZstd, chunks[0].Codec)
	assert.Equal(t, TypeDouble, chunks[0].Type)
	assert.Equal(t, int64(5), chunks[0].NumValues)
	require.NotEmpty(t, chunks[0].Pages)
	assert.Contains(t, []PageType{PageData, PageDataV2}, chunks[0].Pages[0].Type)

	leaves := meta.Leaves()
	require.Len(t, leaves, 22)
	assert.Contains(t, leaves, []string{"position.x"})
	assert.Contains(t, leaves, []string{"segmentID"})
}

func TestInspect_ListColumns(t *testing.T) {
	tbl := table.Flattener{IncludeLists: true}.Flatten(testutil.WithLists())
	meta := inspect(t, writeTable(t, tbl))

	assert.Len(t, meta.SchemaTree.Children, 26)

	group := meta.FindSchema("fans.num")
	require.NotNil(t, group)
	assert.False(t, group.IsLeaf())

	elem := meta.FindSchema("fans.num", "list", "element")
	require.NotNil(t, elem)
	assert.Equal(t, TypeInt32, *elem.Type)
	assert.Equal(t, 3, elem.Depth)
	assert.Equal(t, 1, elem.MaxRepetitionLevel)
	assert.True(t, elem.HasDefinitionLevels())

	chunks := meta.FindColumnChunk("fans.num", "list", "element")
	require.NotEmpty(t, chunks)
	assert.Equal(t, "fans.num.list.element", chunks[0].Path)
}

func TestInspect_MarshalJSON(t *testing.T) {
	tbl := table.Flattener{}.Flatten(testutil.TwoLayers())
	meta := inspect(t, writeTable(t, tbl, table.WithCompression("snappy")))

	j, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.Contains(t, string(j), `"type":"DOUBLE"`)
	assert.Contains(t, string(j), `"codec":"SNAPPY"`)
	assert.Contains(t, string(j), `"repetition_type":"REQUIRED"`)
}

func TestInspect_NotParquet(t *testing.T) {
	_, err := NewParquet(bytes.NewReader([]byte("0123456789abcdef"))).Inspect(context.Background())
	assert.ErrorContains(t, err, "not a parquet file")

	_, err = NewParquet(bytes.NewReader([]byte("PAR1"))).Inspect(context.Background())
	assert.ErrorContains(t, err, "failed to seek to footer length")
}

func TestColumnStats(t *testing.T) {
	tbl := table.Flattener{}.Flatten(testutil.TwoLayers())

	for _, codec := range []string{"none", "snappy", "gzip", "lz4", "zstd"} {
		t.Run(codec, func(t *testing.T) {
			r, err := NewReader(context.Background(), NewParquet(writeTable(t, tbl, table.WithCompression(codec))))
			require.NoError(t, err)

			stats, err := r.ColumnStats(context.Background(), "speed")
			require.NoError(t, err)
			assert.Equal(t, "speed", stats.Path)
			assert.Equal(t, int64(5), stats.Values)
			assert.Equal(t, int64(0), stats.Nulls)
			assert.GreaterOrEqual(t, stats.Pages, 1)
			assert.Positive(t, stats.UncompressedBytes)

			_, err = r.ColumnStats(context.Background(), "missing")
			assert.ErrorContains(t, err, "'missing' column does not exist")
		})
	}
}

func TestColumnStats_OptionalColumn(t *testing.T) {
	type row struct {
		Speed *float64 `parquet:"speed,optional"`
	}
	v := 1.5

	buf := new(bytes.Buffer)
	w := parquet.NewGenericWriter[row](buf)
	_, err := w.Write([]row{{Speed: &v}, {}, {Speed: &v}, {}})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(context.Background(), NewParquet(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, 1, r.MetaData().FindSchema("speed").MaxDefinitionLevel)

	stats, err := r.ColumnStats(context.Background(), "speed")
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Values)
	assert.Equal(t, int64(2), stats.Nulls)
}
