package ada3dp

import (
	"errors"
	"google.golang.org/protobuf/encoding/protowire"
	"math"
)

// ツールパスを proto3 のワイヤーフォーマットにエンコードする
// ゼロ値のスカラーは省略し、存在するサブメッセージは空でも書き出す
func Marshal(m *ToolPathData) ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil ToolPathData")
	}

	return m.appendTo(nil), nil
}

func (m *ToolPathData) appendTo(b []byte) []byte {
	for _, g := range m.ToolPathGroups {
		b = appendMessage(b, 1, g.appendTo)
	}
	if m.Parameters != nil {
		b = appendMessage(b, 2, m.Parameters.appendTo)
	}
	return b
}

func (m *Parameters) appendTo(b []byte) []byte {
	b = appendDouble(b, 1, m.DepositionWidth)
	b = appendDouble(b, 2, m.LayerHeight)
	b = appendInt32(b, 3, int32(m.PathPlanningStrategy))
	b = appendDouble(b, 4, m.PosiAxis1Val)
	b = appendDouble(b, 5, m.PosiAxis2Val)
	b = appendBool(b, 6, m.PosiAxis1Dynamic)
	b = appendBool(b, 7, m.PosiAxis2Dynamic)
	return b
}

func (m *ToolPathGroup) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, m.LayerIndex)
	for _, s := range m.PathSegments {
		b = appendMessage(b, 2, s.appendTo)
	}
	return b
}

func (m *PathSegment) appendTo(b []byte) []byte {
	for _, p := range m.Points {
		b = appendMessage(b, 1, p.appendTo)
	}
	b = appendBool(b, 2, m.ProcessOn)
	b = appendInt32(b, 3, m.Type)
	b = appendFloat(b, 4, m.ProcessOnDelay)
	b = appendFloat(b, 5, m.ProcessOffDelay)
	b = appendFloat(b, 6, m.StartDelay)
	b = appendFloat(b, 7, m.EndDelay)
	b = appendInt32(b, 8, m.SpeedTCP)
	b = appendInt32(b, 9, m.EquipmentID)
	b = appendInt32(b, 10, m.ToolID)
	b = appendInt32(b, 11, m.MaterialID)
	return b
}

func (m *Point) appendTo(b []byte) []byte {
	if m.Position != nil {
		b = appendMessage(b, 1, m.Position.appendTo)
	}
	if m.Direction != nil {
		b = appendMessage(b, 2, m.Direction.appendTo)
	}
	if m.Orientation != nil {
		b = appendMessage(b, 3, m.Orientation.appendTo)
	}

	// repeated double は packed で書き出す
	if len(m.ExternalAxes) > 0 {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(8*len(m.ExternalAxes)))
		for _, v := range m.ExternalAxes {
			b = protowire.AppendFixed64(b, math.Float64bits(v))
		}
	}

	b = appendDouble(b, 5, m.Deposition)
	b = appendDouble(b, 6, m.Speed)
	for _, f := range m.Fans {
		b = appendMessage(b, 7, f.appendTo)
	}
	for _, e := range m.UserEvents {
		b = appendMessage(b, 8, e.appendTo)
	}
	return b
}

func (m *Vector3D) appendTo(b []byte) []byte {
	b = appendDouble(b, 1, m.X)
	b = appendDouble(b, 2, m.Y)
	b = appendDouble(b, 3, m.Z)
	return b
}

func (m *Quaternion) appendTo(b []byte) []byte {
	b = appendDouble(b, 1, m.X)
	b = appendDouble(b, 2, m.Y)
	b = appendDouble(b, 3, m.Z)
	b = appendDouble(b, 4, m.W)
	return b
}

func (m *FanData) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, m.Num)
	b = appendFloat(b, 2, m.Speed)
	return b
}

func (m *EventData) appendTo(b []byte) []byte {
	return appendInt32(b, 1, m.Num)
}

// サブメッセージは長さが先に必要なので、一旦別バッファにエンコードしてから付け足す
func appendMessage(b []byte, num protowire.Number, appendTo func([]byte) []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, appendTo(nil))
}

// NaN や -0.0 を落とさないよう、ビット列がゼロかどうかで省略を判断する
func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	bits := math.Float64bits(v)
	if bits == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, bits)
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	bits := math.Float32bits(v)
	if bits == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, bits)
}

// int32 は符号拡張した64bitの varint として書き出す
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}
