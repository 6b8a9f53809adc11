package table

import (
	"context"
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/murakmii/toolpath/internal/ada3dp"
	"golang.org/x/sync/errgroup"
	"runtime"
)

// テーブルからツールパスを組み立て直す
//
// layerIndex で安定分割してレイヤーを、各レイヤー内を segmentID で安定分割してセグメントを復元する。
// segmentID 列が無い場合は、レイヤーごとに1つのセグメントとして扱う。
// processOn と endDelay は列が無いため常に false / 0 になり、リスト列と Parameters は復元しない。
type Rebuilder struct {
	// 点の組み立てを同時に行うセグメント数の上限。0以下なら GOMAXPROCS
	Parallelism int
}

type segmentJob struct {
	segment *ada3dp.PathSegment
	rows    *roaring.Bitmap
}

func (r Rebuilder) Rebuild(ctx context.Context, t *Table) (*ada3dp.ToolPathData, error) {
	if err := CheckRebuildable(t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	all, err := allRows(t.Len())
	if err != nil {
		return nil, err
	}

	doc := &ada3dp.ToolPathData{Parameters: &ada3dp.Parameters{}}
	jobs := make([]segmentJob, 0)

	// 境界の決定は元の行順に依存するので逐次で行う
	for _, layer := range stablePartition(t.LayerIndex, all) {
		group := &ada3dp.ToolPathGroup{LayerIndex: t.LayerIndex[layer.rows.Minimum()]}

		var segments []partition
		if t.Has(ColSegmentID) {
			segments = stablePartition(t.SegmentID, layer.rows)
		} else {
			segments = wholePartition(layer.rows)
		}

		for _, part := range segments {
			segment := t.segmentAt(int(part.rows.Minimum()))
			segment.Points = make([]*ada3dp.Point, part.rows.GetCardinality())
			group.PathSegments = append(group.PathSegments, segment)
			jobs = append(jobs, segmentJob{segment: segment, rows: part.rows})
		}

		doc.ToolPathGroups = append(doc.ToolPathGroups, group)
	}

	// 境界が決まれば各セグメントの点は独立に組み立てられる
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.parallelism())
	for _, job := range jobs {
		job := job
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t.fillPoints(job.segment.Points, job.rows)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return doc, nil
}

func (r Rebuilder) parallelism() int {
	if r.Parallelism <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return r.Parallelism
}

// 再構築に必要な列が揃っているか検証する。segmentID とリスト列は必須ではない
func CheckRebuildable(t *Table) error {
	if !t.Has(ColLayerIndex) {
		return missingColumn(ColLayerIndex)
	}
	for _, cols := range [][]Column{SegmentColumns(), PointColumns()} {
		for _, c := range cols {
			if !t.Has(c) {
				return missingColumn(c)
			}
		}
	}
	return nil
}

// セグメントの値は先頭行から読み、残りの行とは照合しない
func (t *Table) segmentAt(row int) *ada3dp.PathSegment {
	return &ada3dp.PathSegment{
		ProcessOn:       false,
		Type:            t.Type[row],
		ProcessOnDelay:  t.ProcessOnDelay[row],
		ProcessOffDelay: t.ProcessOffDelay[row],
		StartDelay:      t.StartDelay[row],
		EndDelay:        0,
		SpeedTCP:        t.SpeedTCP[row],
		EquipmentID:     t.EquipmentID[row],
		ToolID:          t.ToolID[row],
		MaterialID:      t.MaterialID[row],
	}
}

func (t *Table) fillPoints(dst []*ada3dp.Point, rows *roaring.Bitmap) {
	i := 0
	it := rows.Iterator()
	for it.HasNext() {
		dst[i] = t.pointAt(int(it.Next()))
		i++
	}
}

// ベクトルと姿勢は常に存在するものとして復元する。NaN はそのまま残る
func (t *Table) pointAt(row int) *ada3dp.Point {
	return &ada3dp.Point{
		Position: &ada3dp.Vector3D{
			X: t.PositionX[row],
			Y: t.PositionY[row],
			Z: t.PositionZ[row],
		},
		Direction: &ada3dp.Vector3D{
			X: t.DirectionX[row],
			Y: t.DirectionY[row],
			Z: t.DirectionZ[row],
		},
		Orientation: &ada3dp.Quaternion{
			X: t.OrientationX[row],
			Y: t.OrientationY[row],
			Z: t.OrientationZ[row],
			W: t.OrientationW[row],
		},
		Deposition: t.Deposition[row],
		Speed:      t.Speed[row],
	}
}
