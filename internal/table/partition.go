package table

import (
	"fmt"
	"github.com/RoaringBitmap/roaring/v2"
	"math"
)

// キーの値が同じ行の集合。行番号は元のテーブルのもの
type partition struct {
	key  int32
	rows *roaring.Bitmap
}

// 全行を含むビットマップ
func allRows(n int) (*roaring.Bitmap, error) {
	if uint64(n) > math.MaxUint32 {
		return nil, fmt.Errorf("table has too many rows to partition: %d", n)
	}

	rows := roaring.New()
	rows.AddRange(0, uint64(n))
	return rows, nil
}

// rows を keys の値で安定に分割する
// キーは最初に現れた順に並び、隣接していない同じキーの行は1つにまとめられる
// ビットマップは昇順に走査されるので、各パーティション内の行も元の順序を保つ
func stablePartition(keys []int32, rows *roaring.Bitmap) []partition {
	index := make(map[int32]int)
	parts := make([]partition, 0)

	it := rows.Iterator()
	for it.HasNext() {
		row := it.Next()
		key := keys[row]

		i, ok := index[key]
		if !ok {
			i = len(parts)
			index[key] = i
			parts = append(parts, partition{key: key, rows: roaring.New()})
		}
		parts[i].rows.Add(row)
	}

	return parts
}

// キー列が無い場合は rows 全体を1つのパーティションとして扱う
func wholePartition(rows *roaring.Bitmap) []partition {
	if rows.IsEmpty() {
		return nil
	}
	return []partition{{key: 0, rows: rows}}
}
