package table

import "math"

type (
	Aggregator[T any] interface {
		Aggregate(T, uint64)
	}

	SumAggregator[T int32 | float32 | float64] struct {
		sum T
		n   uint64
	}

	DistinctAggregator[T comparable] struct {
		seen map[T]struct{}
	}

	// レイヤーごとの集計結果
	LayerSummary struct {
		LayerIndex int32   `json:"layer_index"`
		Points     int     `json:"points"`
		Segments   int     `json:"segments"`
		Deposition float64 `json:"deposition"`
		MeanSpeed  float64 `json:"mean_speed"`
	}
)

func NewSumAggregator[T int32 | float32 | float64]() *SumAggregator[T] {
	return &SumAggregator[T]{}
}

func (agg *SumAggregator[T]) Aggregate(v T, repeated uint64) {
	agg.sum += v * T(repeated)
	agg.n += repeated
}

func (agg *SumAggregator[T]) Result() T {
	return agg.sum
}

func (agg *SumAggregator[T]) Mean() float64 {
	if agg.n == 0 {
		return 0
	}
	return float64(agg.sum) / float64(agg.n)
}

func NewDistinctAggregator[T comparable]() *DistinctAggregator[T] {
	return &DistinctAggregator[T]{seen: make(map[T]struct{})}
}

func (agg *DistinctAggregator[T]) Aggregate(v T, _ uint64) {
	agg.seen[v] = struct{}{}
}

func (agg *DistinctAggregator[T]) Result() int {
	return len(agg.seen)
}

// レイヤーを最初に現れた順に並べ、点数・セグメント数・堆積量の合計・平均速度を求める
// NaN の値は集計から除外する
func Summarize(t *Table) ([]LayerSummary, error) {
	for _, c := range []Column{ColLayerIndex, ColDeposition, ColSpeed} {
		if !t.Has(c) {
			return nil, missingColumn(c)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	all, err := allRows(t.Len())
	if err != nil {
		return nil, err
	}

	layers := stablePartition(t.LayerIndex, all)
	summaries := make([]LayerSummary, len(layers))

	for i, layer := range layers {
		deposition := NewSumAggregator[float64]()
		speed := NewSumAggregator[float64]()
		segments := NewDistinctAggregator[int32]()

		it := layer.rows.Iterator()
		for it.HasNext() {
			row := it.Next()
			aggregateFloat(deposition, t.Deposition[row])
			aggregateFloat(speed, t.Speed[row])
			if t.Has(ColSegmentID) {
				segments.Aggregate(t.SegmentID[row], 1)
			} else {
				segments.Aggregate(0, 1)
			}
		}

		summaries[i] = LayerSummary{
			LayerIndex: layer.key,
			Points:     int(layer.rows.GetCardinality()),
			Segments:   segments.Result(),
			Deposition: deposition.Result(),
			MeanSpeed:  speed.Mean(),
		}
	}

	return summaries, nil
}

func aggregateFloat(agg Aggregator[float64], v float64) {
	if !math.IsNaN(v) {
		agg.Aggregate(v, 1)
	}
}
