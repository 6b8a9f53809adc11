// Package ada3dp は ada3dp 形式(protobuf)のツールパスを表す型と、そのワイヤーフォーマットのエンコード/デコードを提供する
package ada3dp

import "fmt"

// ツールパス全体を表す一連の構造体
type (
	ToolPathData struct {
		ToolPathGroups []*ToolPathGroup
		Parameters     *Parameters
	}

	// 造形プロセスの設定値。テーブルには射影されない
	Parameters struct {
		DepositionWidth      float64              `json:"depositionWidth"`
		LayerHeight          float64              `json:"layerHeight"`
		PathPlanningStrategy PathPlanningStrategy `json:"pathPlanningStrategy"`
		PosiAxis1Val         float64              `json:"posiAxis1Val"`
		PosiAxis2Val         float64              `json:"posiAxis2Val"`
		PosiAxis1Dynamic     bool                 `json:"posiAxis1Dynamic"`
		PosiAxis2Dynamic     bool                 `json:"posiAxis2Dynamic"`
	}

	// 1レイヤー分のセグメント群
	ToolPathGroup struct {
		LayerIndex   int32
		PathSegments []*PathSegment
	}

	PathSegment struct {
		Points          []*Point
		ProcessOn       bool
		Type            int32
		ProcessOnDelay  float32
		ProcessOffDelay float32
		StartDelay      float32
		EndDelay        float32
		SpeedTCP        int32
		EquipmentID     int32
		ToolID          int32
		MaterialID      int32
	}

	// Position, Direction, Orientation は省略されうる
	Point struct {
		Position     *Vector3D
		Direction    *Vector3D
		Orientation  *Quaternion
		ExternalAxes []float64
		Deposition   float64
		Speed        float64
		Fans         []*FanData
		UserEvents   []*EventData
	}

	Vector3D struct {
		X, Y, Z float64
	}

	Quaternion struct {
		X, Y, Z, W float64
	}

	FanData struct {
		Num   int32
		Speed float32
	}

	EventData struct {
		Num int32
	}

	PathPlanningStrategy int32
)

const (
	PlanarHorizontal PathPlanningStrategy = iota
	PlanarAngled
	PlanarAlongGuideCurve
	RevolvedSurface
	Radial
	NonPlanarSurface
	Geodesic
	ConicalFields
	Radial360
	Cladding
)

var pathPlanningStrategyNames = [...]string{
	"PLANAR_HORIZONTAL",
	"PLANAR_ANGLED",
	"PLANAR_ALONG_GUIDE_CURVE",
	"REVOLVED_SURFACE",
	"RADIAL",
	"NON_PLANAR_SURFACE",
	"GEODESIC",
	"CONICAL_FIELDS",
	"RADIAL_360",
	"CLADDING",
}

func (s PathPlanningStrategy) String() string {
	if s >= 0 && int(s) < len(pathPlanningStrategyNames) {
		return pathPlanningStrategyNames[s]
	}
	return fmt.Sprintf("PathPlanningStrategy(%d)", int32(s))
}

// 全レイヤーの点の総数
func (m *ToolPathData) NumPoints() int {
	n := 0
	for _, g := range m.ToolPathGroups {
		for _, s := range g.PathSegments {
			n += len(s.Points)
		}
	}
	return n
}
