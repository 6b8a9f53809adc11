package table

import (
	"errors"
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestCatalog(t *testing.T) {
	assert.Len(t, AllColumns(), 26)
	assert.Len(t, ScalarColumns(), 22)
	assert.Len(t, ListColumns(), 4)

	for _, c := range AllColumns() {
		got, ok := ColumnByName(c.Name())
		require.True(t, ok, c.Name())
		assert.Equal(t, c, got)
	}

	_, ok := ColumnByName("position")
	assert.False(t, ok)

	assert.Equal(t, "orientation.w", ColOrientationW.String())
	assert.Equal(t, "Column(99)", Column(99).String())
	assert.Equal(t, Float32, ColStartDelay.Kind())
	assert.Equal(t, "list<float32>", ColFansSpeed.Kind().String())
	assert.True(t, ColExternalAxes.IsList())
	assert.False(t, ColSegmentID.IsList())
}

func TestTable_NewTableAndDrop(t *testing.T) {
	tbl := NewTable(ColPositionX, ColLayerIndex, ColFansNum)

	assert.Equal(t, []Column{ColPositionX, ColLayerIndex, ColFansNum}, tbl.Columns())
	assert.NotNil(t, tbl.PositionX)
	assert.NotNil(t, tbl.FansNum)
	assert.Nil(t, tbl.Speed)
	assert.Equal(t, 0, tbl.Len())

	tbl.PositionX = append(tbl.PositionX, 1, 2)
	tbl.LayerIndex = append(tbl.LayerIndex, 0, 0)
	tbl.FansNum = append(tbl.FansNum, nil, nil)
	assert.Equal(t, 2, tbl.Len())

	tbl.Drop(ColPositionX)
	assert.False(t, tbl.Has(ColPositionX))
	assert.Nil(t, tbl.PositionX)
	assert.Equal(t, 2, tbl.Len())

	assert.Equal(t, 0, NewTable().Len())
}

func TestTable_Validate(t *testing.T) {
	tbl := NewTable(ColPositionX, ColDeposition, ColSegmentID)
	tbl.PositionX = []float64{1, 2}
	tbl.Deposition = []float64{1, 2}
	tbl.SegmentID = []int32{0}

	err := tbl.Validate()

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "segmentID", schemaErr.Column)
	assert.Equal(t, "schema error: column 'segmentID': has 1 rows, but 'position.x' has 2", err.Error())

	tbl.SegmentID = append(tbl.SegmentID, 0)
	assert.NoError(t, tbl.Validate())
}

func TestTable_Take(t *testing.T) {
	tbl := NewTable(ColSpeed, ColProcessOnDelay, ColLayerIndex, ColExternalAxes)
	tbl.Speed = []float64{10, 20, 30}
	tbl.ProcessOnDelay = []float32{0.1, 0.2, 0.3}
	tbl.LayerIndex = []int32{0, 1, 2}
	tbl.ExternalAxes = [][]float64{{1}, {}, {3, 4}}

	got := tbl.Take([]int{2, 0, 2})

	assert.Equal(t, tbl.Columns(), got.Columns())
	assert.Equal(t, []float64{30, 10, 30}, got.Speed)
	assert.Equal(t, []float32{0.3, 0.1, 0.3}, got.ProcessOnDelay)
	assert.Equal(t, []int32{2, 0, 2}, got.LayerIndex)
	assert.Equal(t, [][]float64{{3, 4}, {1}, {3, 4}}, got.ExternalAxes)
	assert.Nil(t, got.Deposition)

	// 元のテーブルは変更されない
	got.Speed[0] = 99
	assert.Equal(t, 30.0, tbl.Speed[2])
}

func TestStablePartition(t *testing.T) {
	keys := []int32{4, 4, 2, 4, 9, 2}
	all, err := allRows(len(keys))
	require.NoError(t, err)

	parts := stablePartition(keys, all)

	require.Len(t, parts, 3)
	assert.Equal(t, int32(4), parts[0].key)
	assert.Equal(t, []uint32{0, 1, 3}, parts[0].rows.ToArray())
	assert.Equal(t, int32(2), parts[1].key)
	assert.Equal(t, []uint32{2, 5}, parts[1].rows.ToArray())
	assert.Equal(t, int32(9), parts[2].key)
	assert.Equal(t, []uint32{4}, parts[2].rows.ToArray())
}

func TestStablePartition_Subset(t *testing.T) {
	keys := []int32{1, 2, 1, 2, 3}
	rows := roaring.BitmapOf(1, 2, 4)

	parts := stablePartition(keys, rows)

	require.Len(t, parts, 3)
	assert.Equal(t, []int32{2, 1, 3}, []int32{parts[0].key, parts[1].key, parts[2].key})
}

func TestWholePartition(t *testing.T) {
	assert.Nil(t, wholePartition(roaring.New()))

	parts := wholePartition(roaring.BitmapOf(3, 5))
	require.Len(t, parts, 1)
	assert.Equal(t, uint64(2), parts[0].rows.GetCardinality())
}
