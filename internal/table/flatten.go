package table

import (
	"github.com/murakmii/toolpath/internal/ada3dp"
	"math"
)

// ツールパスを1行1点のテーブルに展開する
type Flattener struct {
	// true ならファン・ユーザーイベント・外部軸をリスト列として出力する
	IncludeLists bool
}

// グループ→セグメント→点の順に1回だけ走査し、走査順のまま行を積む
func (f Flattener) Flatten(doc *ada3dp.ToolPathData) *Table {
	cols := ScalarColumns()
	if f.IncludeLists {
		cols = AllColumns()
	}
	t := NewTable(cols...)

	// segmentID はレイヤーを跨いでリセットしない通し番号
	var nextSegmentID int32
	for _, g := range doc.ToolPathGroups {
		nextSegmentID = f.appendGroup(t, g, nextSegmentID)
	}

	return t
}

func (f Flattener) appendGroup(t *Table, g *ada3dp.ToolPathGroup, segmentID int32) int32 {
	for _, s := range g.PathSegments {
		// 点を持たないセグメントは行を生まないので番号も消費しない
		if len(s.Points) == 0 {
			continue
		}
		f.appendSegment(t, g.LayerIndex, segmentID, s)
		segmentID++
	}
	return segmentID
}

func (f Flattener) appendSegment(t *Table, layerIndex, segmentID int32, s *ada3dp.PathSegment) {
	for _, p := range s.Points {
		x, y, z := vector(p.Position)
		t.PositionX = append(t.PositionX, x)
		t.PositionY = append(t.PositionY, y)
		t.PositionZ = append(t.PositionZ, z)

		x, y, z = vector(p.Direction)
		t.DirectionX = append(t.DirectionX, x)
		t.DirectionY = append(t.DirectionY, y)
		t.DirectionZ = append(t.DirectionZ, z)

		x, y, z, w := quaternion(p.Orientation)
		t.OrientationX = append(t.OrientationX, x)
		t.OrientationY = append(t.OrientationY, y)
		t.OrientationZ = append(t.OrientationZ, z)
		t.OrientationW = append(t.OrientationW, w)

		t.Deposition = append(t.Deposition, p.Deposition)
		t.Speed = append(t.Speed, p.Speed)

		// セグメントとレイヤーの値は全ての点に複製する
		t.SpeedTCP = append(t.SpeedTCP, s.SpeedTCP)
		t.Type = append(t.Type, s.Type)
		t.LayerIndex = append(t.LayerIndex, layerIndex)
		t.ProcessOnDelay = append(t.ProcessOnDelay, s.ProcessOnDelay)
		t.ProcessOffDelay = append(t.ProcessOffDelay, s.ProcessOffDelay)
		t.StartDelay = append(t.StartDelay, s.StartDelay)
		t.EquipmentID = append(t.EquipmentID, s.EquipmentID)
		t.ToolID = append(t.ToolID, s.ToolID)
		t.MaterialID = append(t.MaterialID, s.MaterialID)
		t.SegmentID = append(t.SegmentID, segmentID)

		if f.IncludeLists {
			appendLists(t, p)
		}
	}
}

func appendLists(t *Table, p *ada3dp.Point) {
	nums := make([]int32, len(p.Fans))
	speeds := make([]float32, len(p.Fans))
	for i, fan := range p.Fans {
		nums[i] = fan.Num
		speeds[i] = fan.Speed
	}
	t.FansNum = append(t.FansNum, nums)
	t.FansSpeed = append(t.FansSpeed, speeds)

	events := make([]int32, len(p.UserEvents))
	for i, e := range p.UserEvents {
		events[i] = e.Num
	}
	t.UserEventsNum = append(t.UserEventsNum, events)

	axes := make([]float64, len(p.ExternalAxes))
	copy(axes, p.ExternalAxes)
	t.ExternalAxes = append(t.ExternalAxes, axes)
}

// 省略されたベクトルは全成分 NaN とする
func vector(v *ada3dp.Vector3D) (float64, float64, float64) {
	if v == nil {
		return math.NaN(), math.NaN(), math.NaN()
	}
	return v.X, v.Y, v.Z
}

func quaternion(q *ada3dp.Quaternion) (float64, float64, float64, float64) {
	if q == nil {
		return math.NaN(), math.NaN(), math.NaN(), math.NaN()
	}
	return q.X, q.Y, q.Z, q.W
}
