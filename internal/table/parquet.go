package table

import (
	"errors"
	"fmt"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"io"
	"math"
	"sort"
)

const parquetBatchSize = 4096

type (
	// Parquet に書き出す1行分。リスト列を持たない縮小版
	ScalarRow struct {
		PositionX       float64 `parquet:"position.x"`
		PositionY       float64 `parquet:"position.y"`
		PositionZ       float64 `parquet:"position.z"`
		DirectionX      float64 `parquet:"direction.x"`
		DirectionY      float64 `parquet:"direction.y"`
		DirectionZ      float64 `parquet:"direction.z"`
		OrientationX    float64 `parquet:"orientation.x"`
		OrientationY    float64 `parquet:"orientation.y"`
		OrientationZ    float64 `parquet:"orientation.z"`
		OrientationW    float64 `parquet:"orientation.w"`
		Deposition      float64 `parquet:"deposition"`
		Speed           float64 `parquet:"speed"`
		SpeedTCP        int32   `parquet:"speedTCP"`
		Type            int32   `parquet:"type"`
		LayerIndex      int32   `parquet:"layerIndex"`
		ProcessOnDelay  float32 `parquet:"processOnDelay"`
		ProcessOffDelay float32 `parquet:"processOffDelay"`
		StartDelay      float32 `parquet:"startDelay"`
		EquipmentID     int32   `parquet:"equipmentID"`
		ToolID          int32   `parquet:"toolID"`
		MaterialID      int32   `parquet:"materialID"`
		SegmentID       int32   `parquet:"segmentID"`
	}

	// リスト列を含む完全版の1行
	Row struct {
		ScalarRow
		FansNum       []int32   `parquet:"fans.num,list"`
		FansSpeed     []float32 `parquet:"fans.speed,list"`
		UserEventsNum []int32   `parquet:"userEvents.num,list"`
		ExternalAxes  []float64 `parquet:"externalAxes,list"`
	}

	ParquetOption func(*parquetConfig)

	parquetConfig struct {
		compression string
		metadata    map[string]string
	}
)

var parquetCodecs = map[string]compress.Codec{
	"none":   &parquet.Uncompressed,
	"snappy": &parquet.Snappy,
	"gzip":   &parquet.Gzip,
	"lz4":    &parquet.Lz4Raw,
	"zstd":   &parquet.Zstd,
}

// 圧縮方式の名前 (none, snappy, gzip, lz4, zstd)。既定は zstd
func WithCompression(name string) ParquetOption {
	return func(c *parquetConfig) {
		c.compression = name
	}
}

// ファイルのフッターに key/value のメタデータを付ける
func WithMetadata(key, value string) ParquetOption {
	return func(c *parquetConfig) {
		c.metadata[key] = value
	}
}

// テーブルを Parquet 形式で書き出す
// スカラー列は全て必須。リスト列は4つとも揃っている場合のみ書き出す
func WriteParquet(w io.Writer, t *Table, opts ...ParquetOption) error {
	cfg := &parquetConfig{compression: "zstd", metadata: make(map[string]string)}
	for _, opt := range opts {
		opt(cfg)
	}

	codec, ok := parquetCodecs[cfg.compression]
	if !ok {
		return fmt.Errorf("unsupported parquet compression '%s'", cfg.compression)
	}

	for _, c := range ScalarColumns() {
		if !t.Has(c) {
			return missingColumn(c)
		}
	}
	if err := t.Validate(); err != nil {
		return err
	}

	options := []parquet.WriterOption{parquet.Compression(codec)}
	keys := make([]string, 0, len(cfg.metadata))
	for k := range cfg.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		options = append(options, parquet.KeyValueMetadata(k, cfg.metadata[k]))
	}

	if t.HasLists() {
		return writeRows(w, t.Len(), t.row, options...)
	}
	return writeRows(w, t.Len(), t.scalarRow, options...)
}

func writeRows[T any](w io.Writer, n int, row func(int) T, options ...parquet.WriterOption) error {
	pw := parquet.NewGenericWriter[T](w, options...)
	batch := make([]T, 0, parquetBatchSize)

	for i := 0; i < n; i++ {
		batch = append(batch, row(i))
		if len(batch) == cap(batch) {
			if _, err := pw.Write(batch); err != nil {
				return fmt.Errorf("failed to write parquet rows: %w", err)
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if _, err := pw.Write(batch); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}

	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func (t *Table) scalarRow(i int) ScalarRow {
	return ScalarRow{
		PositionX:       t.PositionX[i],
		PositionY:       t.PositionY[i],
		PositionZ:       t.PositionZ[i],
		DirectionX:      t.DirectionX[i],
		DirectionY:      t.DirectionY[i],
		DirectionZ:      t.DirectionZ[i],
		OrientationX:    t.OrientationX[i],
		OrientationY:    t.OrientationY[i],
		OrientationZ:    t.OrientationZ[i],
		OrientationW:    t.OrientationW[i],
		Deposition:      t.Deposition[i],
		Speed:           t.Speed[i],
		SpeedTCP:        t.SpeedTCP[i],
		Type:            t.Type[i],
		LayerIndex:      t.LayerIndex[i],
		ProcessOnDelay:  t.ProcessOnDelay[i],
		ProcessOffDelay: t.ProcessOffDelay[i],
		StartDelay:      t.StartDelay[i],
		EquipmentID:     t.EquipmentID[i],
		ToolID:          t.ToolID[i],
		MaterialID:      t.MaterialID[i],
		SegmentID:       t.SegmentID[i],
	}
}

func (t *Table) row(i int) Row {
	return Row{
		ScalarRow:     t.scalarRow(i),
		FansNum:       t.FansNum[i],
		FansSpeed:     t.FansSpeed[i],
		UserEventsNum: t.UserEventsNum[i],
		ExternalAxes:  t.ExternalAxes[i],
	}
}

// Parquet ファイルをテーブルとして読み込む。フッターの key/value メタデータも返す
//
// カタログにある列のうちファイルに存在するものだけを読み、それ以外の列は無視する。
// 物理型がカタログと合わない列は SchemaError とする。null の値は浮動小数点なら NaN、整数なら 0 になる
func ReadParquet(r io.ReaderAt, size int64) (*Table, map[string]string, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	schema := pf.Schema()
	leaves := make([]Column, len(schema.Columns()))
	for i := range leaves {
		leaves[i] = -1
	}

	present := make([]Column, 0, numColumns)
	for _, c := range AllColumns() {
		leaf, ok := lookupLeaf(schema, c)
		if !ok {
			continue
		}
		if err := checkLeaf(c, leaf); err != nil {
			return nil, nil, err
		}
		leaves[leaf.ColumnIndex] = c
		present = append(present, c)
	}

	t := NewTable(present...)
	buf := make([]parquet.Row, parquetBatchSize)

	for _, rg := range pf.RowGroups() {
		if err := t.readRowGroup(rg, leaves, buf); err != nil {
			return nil, nil, err
		}
	}

	metadata := make(map[string]string)
	for _, kv := range pf.Metadata().KeyValueMetadata {
		metadata[kv.Key] = kv.Value
	}

	return t, metadata, nil
}

func (t *Table) readRowGroup(rg parquet.RowGroup, leaves []Column, buf []parquet.Row) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			t.appendParquetRow(row, leaves)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
}

// 1行分の値を各列に追加する
// リスト列の値は繰り返しレベル0で新しいリストを始め、null は空リストを表す
func (t *Table) appendParquetRow(row parquet.Row, leaves []Column) {
	for _, v := range row {
		c := leaves[v.Column()]
		if c < 0 {
			continue
		}

		switch ref := t.ref(c).(type) {
		case *[]float64:
			*ref = append(*ref, float64Value(v))
		case *[]float32:
			*ref = append(*ref, float32Value(v))
		case *[]int32:
			*ref = append(*ref, v.Int32())
		case *[][]int32:
			appendListValue(ref, v, parquet.Value.Int32)
		case *[][]float32:
			appendListValue(ref, v, parquet.Value.Float)
		case *[][]float64:
			appendListValue(ref, v, parquet.Value.Double)
		}
	}
}

func appendListValue[T any](ref *[][]T, v parquet.Value, get func(parquet.Value) T) {
	if v.RepetitionLevel() == 0 {
		*ref = append(*ref, []T{})
	}
	if v.IsNull() {
		return
	}
	last := len(*ref) - 1
	(*ref)[last] = append((*ref)[last], get(v))
}

func float64Value(v parquet.Value) float64 {
	if v.IsNull() {
		return math.NaN()
	}
	return v.Double()
}

func float32Value(v parquet.Value) float32 {
	if v.IsNull() {
		return float32(math.NaN())
	}
	return v.Float()
}

// リスト列は LIST 論理型(3階層)と単純な repeated の両方を受け付ける
func lookupLeaf(schema *parquet.Schema, c Column) (parquet.LeafColumn, bool) {
	if c.IsList() {
		if leaf, ok := schema.Lookup(c.Name(), "list", "element"); ok {
			return leaf, true
		}
	}
	return schema.Lookup(c.Name())
}

func checkLeaf(c Column, leaf parquet.LeafColumn) error {
	var want parquet.Kind
	switch c.Kind() {
	case Float64, ListFloat64:
		want = parquet.Double
	case Float32, ListFloat32:
		want = parquet.Float
	default:
		want = parquet.Int32
	}

	if got := leaf.Node.Type().Kind(); got != want {
		return &SchemaError{
			Column: c.Name(),
			Reason: fmt.Sprintf("expected %s but stored as %s", c.Kind(), got),
		}
	}

	if repeated := leaf.MaxRepetitionLevel > 0; repeated != c.IsList() {
		return &SchemaError{
			Column: c.Name(),
			Reason: fmt.Sprintf("expected %s but repetition level is %d", c.Kind(), leaf.MaxRepetitionLevel),
		}
	}
	return nil
}
