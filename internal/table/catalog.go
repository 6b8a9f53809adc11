package table

import "fmt"

type (
	// テーブルの列。列名と型はこのカタログが唯一の定義元
	Column int

	// 列の値の型
	Kind int

	columnDef struct {
		name string
		kind Kind
	}
)

const (
	Float64 Kind = iota
	Float32
	Int32
	ListInt32
	ListFloat32
	ListFloat64
)

const (
	ColPositionX Column = iota
	ColPositionY
	ColPositionZ
	ColDirectionX
	ColDirectionY
	ColDirectionZ
	ColOrientationX
	ColOrientationY
	ColOrientationZ
	ColOrientationW
	ColDeposition
	ColSpeed
	ColSpeedTCP
	ColType
	ColLayerIndex
	ColProcessOnDelay
	ColProcessOffDelay
	ColStartDelay
	ColEquipmentID
	ColToolID
	ColMaterialID
	ColSegmentID
	ColFansNum
	ColFansSpeed
	ColUserEventsNum
	ColExternalAxes

	numColumns
)

var catalog = [numColumns]columnDef{
	ColPositionX:       {"position.x", Float64},
	ColPositionY:       {"position.y", Float64},
	ColPositionZ:       {"position.z", Float64},
	ColDirectionX:      {"direction.x", Float64},
	ColDirectionY:      {"direction.y", Float64},
	ColDirectionZ:      {"direction.z", Float64},
	ColOrientationX:    {"orientation.x", Float64},
	ColOrientationY:    {"orientation.y", Float64},
	ColOrientationZ:    {"orientation.z", Float64},
	ColOrientationW:    {"orientation.w", Float64},
	ColDeposition:      {"deposition", Float64},
	ColSpeed:           {"speed", Float64},
	ColSpeedTCP:        {"speedTCP", Int32},
	ColType:            {"type", Int32},
	ColLayerIndex:      {"layerIndex", Int32},
	ColProcessOnDelay:  {"processOnDelay", Float32},
	ColProcessOffDelay: {"processOffDelay", Float32},
	ColStartDelay:      {"startDelay", Float32},
	ColEquipmentID:     {"equipmentID", Int32},
	ColToolID:          {"toolID", Int32},
	ColMaterialID:      {"materialID", Int32},
	ColSegmentID:       {"segmentID", Int32},
	ColFansNum:         {"fans.num", ListInt32},
	ColFansSpeed:       {"fans.speed", ListFloat32},
	ColUserEventsNum:   {"userEvents.num", ListInt32},
	ColExternalAxes:    {"externalAxes", ListFloat64},
}

var columnsByName = func() map[string]Column {
	m := make(map[string]Column, numColumns)
	for c := Column(0); c < numColumns; c++ {
		m[catalog[c].name] = c
	}
	return m
}()

func (c Column) Name() string {
	return catalog[c].name
}

func (c Column) Kind() Kind {
	return catalog[c].kind
}

func (c Column) IsList() bool {
	return c.Kind() >= ListInt32
}

func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return c.Name()
}

func (k Kind) String() string {
	switch k {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	case ListInt32:
		return "list<int32>"
	case ListFloat32:
		return "list<float32>"
	case ListFloat64:
		return "list<float64>"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// 列名から列を引く
func ColumnByName(name string) (Column, bool) {
	c, ok := columnsByName[name]
	return c, ok
}

// カタログ順の全列
func AllColumns() []Column {
	cols := make([]Column, numColumns)
	for i := range cols {
		cols[i] = Column(i)
	}
	return cols
}

func ScalarColumns() []Column {
	return AllColumns()[:ColFansNum]
}

// 完全版(リスト列あり)でのみ出力される列
func ListColumns() []Column {
	return AllColumns()[ColFansNum:]
}

// 点ごとに値が変わる列
func PointColumns() []Column {
	return []Column{
		ColPositionX, ColPositionY, ColPositionZ,
		ColDirectionX, ColDirectionY, ColDirectionZ,
		ColOrientationX, ColOrientationY, ColOrientationZ, ColOrientationW,
		ColDeposition, ColSpeed,
	}
}

// セグメント内で一定とみなす列。再構築時はパーティションの先頭行から読む
func SegmentColumns() []Column {
	return []Column{
		ColSpeedTCP, ColType,
		ColProcessOnDelay, ColProcessOffDelay, ColStartDelay,
		ColEquipmentID, ColToolID, ColMaterialID,
	}
}

// 列の集合
type columnSet uint32

func setOf(cols ...Column) columnSet {
	var s columnSet
	for _, c := range cols {
		s = s.with(c)
	}
	return s
}

func (s columnSet) has(c Column) bool {
	return s&(1<<uint(c)) != 0
}

func (s columnSet) with(c Column) columnSet {
	return s | 1<<uint(c)
}

func (s columnSet) without(c Column) columnSet {
	return s &^ (1 << uint(c))
}
