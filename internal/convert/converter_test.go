package convert

import (
	"bytes"
	"context"
	"errors"
	"github.com/murakmii/toolpath/internal/ada3dp"
	"github.com/murakmii/toolpath/internal/blob"
	"github.com/murakmii/toolpath/internal/table"
	"github.com/murakmii/toolpath/internal/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"os"
	"path/filepath"
	"testing"
)

func newMemoryConverter(t *testing.T, docs map[string]*ada3dp.ToolPathData, opts ...Option) (*Converter, *blob.MemoryStore) {
	t.Helper()
	mem := blob.NewMemoryStore()
	for name, doc := range docs {
		data, err := ada3dp.Marshal(doc)
		require.NoError(t, err)
		require.NoError(t, mem.Put(context.Background(), name, data))
	}
	return New(append([]Option{WithStore(mem)}, opts...)...), mem
}

func readDoc(t *testing.T, s blob.Store, name string) *ada3dp.ToolPathData {
	t.Helper()
	data, err := s.Get(context.Background(), name)
	require.NoError(t, err)

	doc := &ada3dp.ToolPathData{}
	require.NoError(t, ada3dp.Unmarshal(data, doc))
	return doc
}

func counter(m *Metrics, direction, result string) float64 {
	return promtestutil.ToFloat64(m.Conversions.WithLabelValues(direction, result))
}

func TestDecodeToTable(t *testing.T) {
	c, _ := newMemoryConverter(t, map[string]*ada3dp.ToolPathData{"in.ada3dp": testutil.TwoLayers()})

	tbl, err := c.DecodeToTable(context.Background(), "in.ada3dp")
	require.NoError(t, err)

	assert.Equal(t, 5, tbl.Len())
	assert.Equal(t, []int32{0, 0, 1, 1, 1}, tbl.SegmentID)
	assert.Equal(t, []int32{0, 0, 1, 1, 1}, tbl.LayerIndex)
	assert.False(t, tbl.HasLists())

	assert.Equal(t, 1.0, counter(c.Metrics(), DirectionDecode, "ok"))
	assert.Equal(t, 5.0, promtestutil.ToFloat64(c.Metrics().Rows.WithLabelValues(DirectionDecode)))
}

func TestTableToFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mem := newMemoryConverter(t, map[string]*ada3dp.ToolPathData{"in.ada3dp": testutil.TwoLayers()})

	tbl, err := c.DecodeToTable(ctx, "in.ada3dp")
	require.NoError(t, err)
	require.NoError(t, c.TableToFile(ctx, tbl, "out.ada3dp"))

	doc := readDoc(t, mem, "out.ada3dp")
	require.Len(t, doc.ToolPathGroups, 2)
	assert.Equal(t, int32(0), doc.ToolPathGroups[0].LayerIndex)
	assert.Len(t, doc.ToolPathGroups[0].PathSegments[0].Points, 2)
	assert.Equal(t, int32(1), doc.ToolPathGroups[1].LayerIndex)
	assert.Len(t, doc.ToolPathGroups[1].PathSegments[0].Points, 3)
	assert.Equal(t, &ada3dp.Parameters{}, doc.Parameters)

	encoded, err := c.TableToEncoded(ctx, tbl)
	require.NoError(t, err)
	written, err := mem.Get(ctx, "out.ada3dp")
	require.NoError(t, err)
	assert.Equal(t, written, encoded)

	// 再度展開しても同じテーブルになる
	again, err := c.DecodeToTable(ctx, "out.ada3dp")
	require.NoError(t, err)
	assert.Equal(t, tbl, again)

	assert.Equal(t, 2.0, counter(c.Metrics(), DirectionEncode, "ok"))
	assert.Equal(t, float64(len(encoded)*2), promtestutil.ToFloat64(c.Metrics().Bytes.WithLabelValues(DirectionEncode)))
}

func TestWriteToolpath_KeepsParameters(t *testing.T) {
	ctx := context.Background()
	src := testutil.TwoLayers()
	src.Parameters.PathPlanningStrategy = ada3dp.Radial360
	c, mem := newMemoryConverter(t, map[string]*ada3dp.ToolPathData{"in.ada3dp": src})

	tp, err := c.ReadToolpath(ctx, "in.ada3dp")
	require.NoError(t, err)
	assert.Equal(t, src.Parameters, tp.Parameters)

	require.NoError(t, c.WriteToolpath(ctx, tp, "out.ada3dp"))
	assert.Equal(t, src.Parameters, readDoc(t, mem, "out.ada3dp").Parameters)
}

func TestReadToolpath_MissingParameters(t *testing.T) {
	doc := testutil.TwoLayers()
	doc.Parameters = nil
	c, _ := newMemoryConverter(t, map[string]*ada3dp.ToolPathData{"in.ada3dp": doc})

	tp, err := c.ReadToolpath(context.Background(), "in.ada3dp")
	require.NoError(t, err)
	assert.Equal(t, &ada3dp.Parameters{}, tp.Parameters)
}

func TestDecodeToTable_NotFound(t *testing.T) {
	c, _ := newMemoryConverter(t, nil)

	_, err := c.DecodeToTable(context.Background(), "missing.ada3dp")

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "read", ioErr.Op)
	assert.Equal(t, "missing.ada3dp", ioErr.Path)
	assert.ErrorIs(t, err, blob.ErrNotFound)
	assert.Equal(t, 1.0, counter(c.Metrics(), DirectionDecode, "error"))
}

func TestDecodeToTable_Malformed(t *testing.T) {
	ctx := context.Background()
	c, mem := newMemoryConverter(t, nil)
	require.NoError(t, mem.Put(ctx, "bad.ada3dp", []byte{0x0a, 0x10, 0x01}))

	_, err := c.DecodeToTable(ctx, "bad.ada3dp")

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "bad.ada3dp", decodeErr.Path)
}

func TestTableToFile_MissingLayerIndex(t *testing.T) {
	ctx := context.Background()
	c, mem := newMemoryConverter(t, map[string]*ada3dp.ToolPathData{"in.ada3dp": testutil.TwoLayers()})

	tbl, err := c.DecodeToTable(ctx, "in.ada3dp")
	require.NoError(t, err)
	tbl.Drop(table.ColLayerIndex)

	err = c.TableToFile(ctx, tbl, "out.ada3dp")

	var schemaErr *table.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "layerIndex", schemaErr.Column)
	assert.Equal(t, []string{"in.ada3dp"}, mem.Names())
	assert.Equal(t, 1.0, counter(c.Metrics(), DirectionEncode, "error"))
}

func TestTableToFile_NilTable(t *testing.T) {
	c, mem := newMemoryConverter(t, nil)

	assert.Error(t, c.TableToFile(context.Background(), nil, "out.ada3dp"))
	assert.Empty(t, mem.Names())
}

func TestTableToFile_WarnsWithoutSegmentID(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	c, mem := newMemoryConverter(t,
		map[string]*ada3dp.ToolPathData{"in.ada3dp": testutil.TwoLayers()},
		WithLogger(zap.New(core)),
	)

	tbl, err := c.DecodeToTable(ctx, "in.ada3dp")
	require.NoError(t, err)
	tbl.Drop(table.ColSegmentID)

	require.NoError(t, c.TableToFile(ctx, tbl, "out.ada3dp"))

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "segmentID column is missing")
	assert.Len(t, readDoc(t, mem, "out.ada3dp").ToolPathGroups, 2)
}

func TestLocalFiles_NoOutputOnFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "in.ada3dp")
	dst := filepath.Join(dir, "out.ada3dp")

	data, err := ada3dp.Marshal(testutil.TwoLayers())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o644))

	c := New()
	tbl, err := c.DecodeToTable(ctx, src)
	require.NoError(t, err)
	tbl.Drop(table.ColSpeed)

	var schemaErr *table.SchemaError
	require.True(t, errors.As(c.TableToFile(ctx, tbl, dst), &schemaErr))

	_, err = os.Stat(dst)
	assert.ErrorIs(t, err, os.ErrNotExist)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalFiles_WriteIntoMissingDirectory(t *testing.T) {
	ctx := context.Background()
	c := New()
	tbl := table.Flattener{}.Flatten(testutil.TwoLayers())
	dst := filepath.Join(t.TempDir(), "missing", "out.ada3dp")

	err := c.TableToFile(ctx, tbl, dst)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Op)
	assert.Equal(t, dst, ioErr.Path)
}

func TestLocalFiles_Compressed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := New()
	tbl := table.Flattener{}.Flatten(testutil.TwoLayers())

	for _, name := range []string{"out.ada3dp.zst", "out.ada3dp.gz", "out.ada3dp.lz4"} {
		t.Run(name, func(t *testing.T) {
			dst := filepath.Join(dir, name)
			require.NoError(t, c.TableToFile(ctx, tbl, dst))

			raw, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, blob.CodecFor(name), blob.Detect(raw))

			got, err := c.DecodeToTable(ctx, dst)
			require.NoError(t, err)
			assert.Equal(t, tbl, got)
		})
	}
}

func TestDecodeToTable_CorruptFrame(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemoryStore()
	c := New(WithStore(blob.CompressedStore{Store: mem}))

	compressed, err := blob.Compress(blob.CodecZstd, bytes.Repeat([]byte{0x0a, 0x00}, 100))
	require.NoError(t, err)
	require.NoError(t, mem.Put(ctx, "in.ada3dp.zst", compressed[:len(compressed)/2]))

	_, err = c.DecodeToTable(ctx, "in.ada3dp.zst")

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	var corrupt *blob.CorruptError
	assert.True(t, errors.As(err, &corrupt))
}
