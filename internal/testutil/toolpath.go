// Package testutil はテスト用のツールパスを組み立てるヘルパーを提供する
package testutil

import (
	"github.com/murakmii/toolpath/internal/ada3dp"
	"math"
)

// 位置・方向・姿勢をすべて持つ点
func Point(x, y, z float64) *ada3dp.Point {
	return &ada3dp.Point{
		Position:    &ada3dp.Vector3D{X: x, Y: y, Z: z},
		Direction:   &ada3dp.Vector3D{X: 0, Y: 0, Z: -1},
		Orientation: &ada3dp.Quaternion{X: 0, Y: 0, Z: 0, W: 1},
		Deposition:  1.5,
		Speed:       20,
	}
}

func Segment(segType int32, points ...*ada3dp.Point) *ada3dp.PathSegment {
	return &ada3dp.PathSegment{
		Points:          points,
		ProcessOn:       true,
		Type:            segType,
		ProcessOnDelay:  0.25,
		ProcessOffDelay: 0.5,
		StartDelay:      0.1,
		EndDelay:        0.2,
		SpeedTCP:        30,
		EquipmentID:     1,
		ToolID:          2,
		MaterialID:      3,
	}
}

func Group(layerIndex int32, segments ...*ada3dp.PathSegment) *ada3dp.ToolPathGroup {
	return &ada3dp.ToolPathGroup{LayerIndex: layerIndex, PathSegments: segments}
}

// レイヤー0に2点のセグメント、レイヤー1に3点のセグメントを持つツールパス
func TwoLayers() *ada3dp.ToolPathData {
	return &ada3dp.ToolPathData{
		ToolPathGroups: []*ada3dp.ToolPathGroup{
			Group(0, Segment(1, Point(0, 0, 0), Point(1, 0, 0))),
			Group(1, Segment(2, Point(0, 0, 1), Point(1, 0, 1), Point(2, 0, 1))),
		},
		Parameters: &ada3dp.Parameters{
			DepositionWidth:      4,
			LayerHeight:          1,
			PathPlanningStrategy: ada3dp.PlanarHorizontal,
		},
	}
}

// 可変長のサブレコード(ファン・イベント・外部軸)を持つ点を含むツールパス
func WithLists() *ada3dp.ToolPathData {
	p0 := Point(0, 0, 0)
	p0.ExternalAxes = []float64{10, 20.5}
	p0.Fans = []*ada3dp.FanData{{Num: 1, Speed: 50}, {Num: 2, Speed: 75.5}}
	p0.UserEvents = []*ada3dp.EventData{{Num: 7}}

	p1 := Point(1, 0, 0)

	p2 := Point(2, 0, 0)
	p2.Orientation = nil
	p2.Fans = []*ada3dp.FanData{{Num: 3, Speed: 100}}

	return &ada3dp.ToolPathData{
		ToolPathGroups: []*ada3dp.ToolPathGroup{
			Group(5, Segment(1, p0, p1), Segment(3, p2)),
		},
	}
}

// NaN を同値とみなして比較する
func SameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}
