package ada3dp

import (
	"fmt"
	"google.golang.org/protobuf/encoding/protowire"
	"math"
)

// ワイヤーフォーマットのバイト列をデコードして m を上書きする
// 未知のフィールドは読み飛ばし、単数のサブメッセージが複数回現れた場合はマージする
func Unmarshal(b []byte, m *ToolPathData) error {
	*m = ToolPathData{}
	if err := m.unmarshal(b); err != nil {
		return fmt.Errorf("failed to decode ToolPathData: %w", err)
	}
	return nil
}

func (m *ToolPathData) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			g := &ToolPathGroup{}
			m.ToolPathGroups = append(m.ToolPathGroups, g)
			return consumeMessage(typ, b, g.unmarshal)
		case 2:
			if m.Parameters == nil {
				m.Parameters = &Parameters{}
			}
			return consumeMessage(typ, b, m.Parameters.unmarshal)
		default:
			return skipField(num, typ, b)
		}
	})
}

func (m *Parameters) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeDouble(typ, b, &m.DepositionWidth)
		case 2:
			return consumeDouble(typ, b, &m.LayerHeight)
		case 3:
			var v int32
			n, err := consumeInt32(typ, b, &v)
			m.PathPlanningStrategy = PathPlanningStrategy(v)
			return n, err
		case 4:
			return consumeDouble(typ, b, &m.PosiAxis1Val)
		case 5:
			return consumeDouble(typ, b, &m.PosiAxis2Val)
		case 6:
			return consumeBool(typ, b, &m.PosiAxis1Dynamic)
		case 7:
			return consumeBool(typ, b, &m.PosiAxis2Dynamic)
		default:
			return skipField(num, typ, b)
		}
	})
}

func (m *ToolPathGroup) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt32(typ, b, &m.LayerIndex)
		case 2:
			s := &PathSegment{}
			m.PathSegments = append(m.PathSegments, s)
			return consumeMessage(typ, b, s.unmarshal)
		default:
			return skipField(num, typ, b)
		}
	})
}

func (m *PathSegment) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			p := &Point{}
			m.Points = append(m.Points, p)
			return consumeMessage(typ, b, p.unmarshal)
		case 2:
			return consumeBool(typ, b, &m.ProcessOn)
		case 3:
			return consumeInt32(typ, b, &m.Type)
		case 4:
			return consumeFloat(typ, b, &m.ProcessOnDelay)
		case 5:
			return consumeFloat(typ, b, &m.ProcessOffDelay)
		case 6:
			return consumeFloat(typ, b, &m.StartDelay)
		case 7:
			return consumeFloat(typ, b, &m.EndDelay)
		case 8:
			return consumeInt32(typ, b, &m.SpeedTCP)
		case 9:
			return consumeInt32(typ, b, &m.EquipmentID)
		case 10:
			return consumeInt32(typ, b, &m.ToolID)
		case 11:
			return consumeInt32(typ, b, &m.MaterialID)
		default:
			return skipField(num, typ, b)
		}
	})
}

func (m *Point) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			if m.Position == nil {
				m.Position = &Vector3D{}
			}
			return consumeMessage(typ, b, m.Position.unmarshal)
		case 2:
			if m.Direction == nil {
				m.Direction = &Vector3D{}
			}
			return consumeMessage(typ, b, m.Direction.unmarshal)
		case 3:
			if m.Orientation == nil {
				m.Orientation = &Quaternion{}
			}
			return consumeMessage(typ, b, m.Orientation.unmarshal)
		case 4:
			return consumeDoubles(typ, b, &m.ExternalAxes)
		case 5:
			return consumeDouble(typ, b, &m.Deposition)
		case 6:
			return consumeDouble(typ, b, &m.Speed)
		case 7:
			f := &FanData{}
			m.Fans = append(m.Fans, f)
			return consumeMessage(typ, b, f.unmarshal)
		case 8:
			e := &EventData{}
			m.UserEvents = append(m.UserEvents, e)
			return consumeMessage(typ, b, e.unmarshal)
		default:
			return skipField(num, typ, b)
		}
	})
}

func (m *Vector3D) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeDouble(typ, b, &m.X)
		case 2:
			return consumeDouble(typ, b, &m.Y)
		case 3:
			return consumeDouble(typ, b, &m.Z)
		default:
			return skipField(num, typ, b)
		}
	})
}

func (m *Quaternion) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeDouble(typ, b, &m.X)
		case 2:
			return consumeDouble(typ, b, &m.Y)
		case 3:
			return consumeDouble(typ, b, &m.Z)
		case 4:
			return consumeDouble(typ, b, &m.W)
		default:
			return skipField(num, typ, b)
		}
	})
}

func (m *FanData) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt32(typ, b, &m.Num)
		case 2:
			return consumeFloat(typ, b, &m.Speed)
		default:
			return skipField(num, typ, b)
		}
	})
}

func (m *EventData) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeInt32(typ, b, &m.Num)
		}
		return skipField(num, typ, b)
	})
}

// タグを1つずつ読み取り、値の部分を fn に渡す。fn は消費したバイト数を返す
func decodeFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		b = b[n:]
	}
	return nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

func wireTypeError(got, want protowire.Type) error {
	return fmt.Errorf("unexpected wire type %d (want %d)", got, want)
}

func consumeMessage(typ protowire.Type, b []byte, unmarshal func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(typ, protowire.BytesType)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	if err := unmarshal(v); err != nil {
		return 0, err
	}
	return n, nil
}

func consumeDouble(typ protowire.Type, b []byte, dst *float64) (int, error) {
	if typ != protowire.Fixed64Type {
		return 0, wireTypeError(typ, protowire.Fixed64Type)
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = math.Float64frombits(v)
	return n, nil
}

func consumeFloat(typ protowire.Type, b []byte, dst *float32) (int, error) {
	if typ != protowire.Fixed32Type {
		return 0, wireTypeError(typ, protowire.Fixed32Type)
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = math.Float32frombits(v)
	return n, nil
}

func consumeInt32(typ protowire.Type, b []byte, dst *int32) (int, error) {
	if typ != protowire.VarintType {
		return 0, wireTypeError(typ, protowire.VarintType)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = int32(v)
	return n, nil
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) (int, error) {
	if typ != protowire.VarintType {
		return 0, wireTypeError(typ, protowire.VarintType)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = protowire.DecodeBool(v)
	return n, nil
}

// packed(BytesType) と非packed(Fixed64Type) の両方を受け付ける
func consumeDoubles(typ protowire.Type, b []byte, dst *[]float64) (int, error) {
	switch typ {
	case protowire.Fixed64Type:
		var v float64
		n, err := consumeDouble(typ, b, &v)
		if err != nil {
			return 0, err
		}
		*dst = append(*dst, v)
		return n, nil

	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if len(packed)%8 != 0 {
			return 0, fmt.Errorf("packed double length %d is not a multiple of 8", len(packed))
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeFixed64(packed)
			*dst = append(*dst, math.Float64frombits(v))
			packed = packed[m:]
		}
		return n, nil

	default:
		return 0, wireTypeError(typ, protowire.BytesType)
	}
}
