// Package table はツールパスを1行1点の列指向テーブルとして扱う。
//
// Flattener がツールパスをテーブルに展開し、Rebuilder がキー列(layerIndex, segmentID)から
// レイヤーとセグメントの境界を復元してツールパスに戻す。
package table

import "fmt"

// 列ごとに型付きのスライスを持つテーブル。どの列が存在するかは present で管理する
type Table struct {
	PositionX    []float64
	PositionY    []float64
	PositionZ    []float64
	DirectionX   []float64
	DirectionY   []float64
	DirectionZ   []float64
	OrientationX []float64
	OrientationY []float64
	OrientationZ []float64
	OrientationW []float64
	Deposition   []float64
	Speed        []float64

	SpeedTCP        []int32
	Type            []int32
	LayerIndex      []int32
	ProcessOnDelay  []float32
	ProcessOffDelay []float32
	StartDelay      []float32
	EquipmentID     []int32
	ToolID          []int32
	MaterialID      []int32
	SegmentID       []int32

	FansNum       [][]int32
	FansSpeed     [][]float32
	UserEventsNum [][]int32
	ExternalAxes  [][]float64

	present columnSet
}

// 指定した列を持つ空のテーブル
func NewTable(cols ...Column) *Table {
	t := &Table{present: setOf(cols...)}
	for _, c := range cols {
		switch ref := t.ref(c).(type) {
		case *[]float64:
			*ref = []float64{}
		case *[]float32:
			*ref = []float32{}
		case *[]int32:
			*ref = []int32{}
		case *[][]int32:
			*ref = [][]int32{}
		case *[][]float32:
			*ref = [][]float32{}
		case *[][]float64:
			*ref = [][]float64{}
		}
	}
	return t
}

func (t *Table) Has(c Column) bool {
	return t.present.has(c)
}

// 存在する列をカタログ順で返す
func (t *Table) Columns() []Column {
	cols := make([]Column, 0, numColumns)
	for c := Column(0); c < numColumns; c++ {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// リスト列が4つとも揃っているか
func (t *Table) HasLists() bool {
	for _, c := range ListColumns() {
		if !t.Has(c) {
			return false
		}
	}
	return true
}

// 列を取り除く
func (t *Table) Drop(c Column) {
	t.present = t.present.without(c)
	switch ref := t.ref(c).(type) {
	case *[]float64:
		*ref = nil
	case *[]float32:
		*ref = nil
	case *[]int32:
		*ref = nil
	case *[][]int32:
		*ref = nil
	case *[][]float32:
		*ref = nil
	case *[][]float64:
		*ref = nil
	}
}

// 行数。存在する最初の列の長さを返す
func (t *Table) Len() int {
	cols := t.Columns()
	if len(cols) == 0 {
		return 0
	}
	return t.columnLen(cols[0])
}

// 全ての列の長さが揃っているか検証する
func (t *Table) Validate() error {
	cols := t.Columns()
	if len(cols) == 0 {
		return nil
	}

	want := t.columnLen(cols[0])
	for _, c := range cols[1:] {
		if n := t.columnLen(c); n != want {
			return &SchemaError{
				Column: c.Name(),
				Reason: fmt.Sprintf("has %d rows, but '%s' has %d", n, cols[0].Name(), want),
			}
		}
	}
	return nil
}

// rows で指定した行をその順番で取り出した新しいテーブルを返す
func (t *Table) Take(rows []int) *Table {
	dst := &Table{present: t.present}
	for _, c := range t.Columns() {
		switch src := t.ref(c).(type) {
		case *[]float64:
			*dst.ref(c).(*[]float64) = take(*src, rows)
		case *[]float32:
			*dst.ref(c).(*[]float32) = take(*src, rows)
		case *[]int32:
			*dst.ref(c).(*[]int32) = take(*src, rows)
		case *[][]int32:
			*dst.ref(c).(*[][]int32) = take(*src, rows)
		case *[][]float32:
			*dst.ref(c).(*[][]float32) = take(*src, rows)
		case *[][]float64:
			*dst.ref(c).(*[][]float64) = take(*src, rows)
		}
	}
	return dst
}

func take[T any](src []T, rows []int) []T {
	dst := make([]T, len(rows))
	for i, r := range rows {
		dst[i] = src[r]
	}
	return dst
}

func (t *Table) columnLen(c Column) int {
	switch ref := t.ref(c).(type) {
	case *[]float64:
		return len(*ref)
	case *[]float32:
		return len(*ref)
	case *[]int32:
		return len(*ref)
	case *[][]int32:
		return len(*ref)
	case *[][]float32:
		return len(*ref)
	case *[][]float64:
		return len(*ref)
	default:
		return 0
	}
}

// 列に対応するフィールドへのポインタ。型はカタログの Kind と一致する
func (t *Table) ref(c Column) any {
	switch c {
	case ColPositionX:
		return &t.PositionX
	case ColPositionY:
		return &t.PositionY
	case ColPositionZ:
		return &t.PositionZ
	case ColDirectionX:
		return &t.DirectionX
	case ColDirectionY:
		return &t.DirectionY
	case ColDirectionZ:
		return &t.DirectionZ
	case ColOrientationX:
		return &t.OrientationX
	case ColOrientationY:
		return &t.OrientationY
	case ColOrientationZ:
		return &t.OrientationZ
	case ColOrientationW:
		return &t.OrientationW
	case ColDeposition:
		return &t.Deposition
	case ColSpeed:
		return &t.Speed
	case ColSpeedTCP:
		return &t.SpeedTCP
	case ColType:
		return &t.Type
	case ColLayerIndex:
		return &t.LayerIndex
	case ColProcessOnDelay:
		return &t.ProcessOnDelay
	case ColProcessOffDelay:
		return &t.ProcessOffDelay
	case ColStartDelay:
		return &t.StartDelay
	case ColEquipmentID:
		return &t.EquipmentID
	case ColToolID:
		return &t.ToolID
	case ColMaterialID:
		return &t.MaterialID
	case ColSegmentID:
		return &t.SegmentID
	case ColFansNum:
		return &t.FansNum
	case ColFansSpeed:
		return &t.FansSpeed
	case ColUserEventsNum:
		return &t.UserEventsNum
	case ColExternalAxes:
		return &t.ExternalAxes
	default:
		panic(fmt.Sprintf("unknown column %d", int(c)))
	}
}
