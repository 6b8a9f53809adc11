// Package convert は ada3dp ファイルとテーブル、Parquet ファイルの相互変換を行う。
//
// どの変換も入力を全て読み込んでから処理し、出力は全体を組み立ててから1回で書き込む。
// 失敗した場合は呼び出し全体が失敗し、出力ファイルは作られない。
package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/murakmii/toolpath/internal/ada3dp"
	"github.com/murakmii/toolpath/internal/blob"
	"github.com/murakmii/toolpath/internal/table"
	"go.uber.org/zap"
	"path/filepath"
	"strings"
)

// Parquet のフッターに Parameters を JSON で保存する際のキー
const ParametersKey = "ada3dp.parameters"

type (
	Converter struct {
		store              blob.Store
		logger             *zap.Logger
		metrics            *Metrics
		flattener          table.Flattener
		rebuilder          table.Rebuilder
		parquetCompression string
	}

	// テーブルと、テーブルには射影されない造形パラメーターの組
	Toolpath struct {
		Table      *table.Table
		Parameters *ada3dp.Parameters
	}
)

func New(opts ...Option) *Converter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Converter{
		store:              o.store,
		logger:             o.logger,
		metrics:            NewMetrics(o.registerer),
		flattener:          table.Flattener{IncludeLists: o.includeLists},
		rebuilder:          table.Rebuilder{Parallelism: o.parallelism},
		parquetCompression: o.parquetCompression,
	}
}

func (c *Converter) Metrics() *Metrics {
	return c.metrics
}

// ada3dp ファイルを読み込んでテーブルに展開する
func (c *Converter) DecodeToTable(ctx context.Context, src string) (*table.Table, error) {
	tp, err := c.ReadToolpath(ctx, src)
	if err != nil {
		return nil, err
	}
	return tp.Table, nil
}

// テーブルを ada3dp のバイト列にする。Parameters は空になる
func (c *Converter) TableToEncoded(ctx context.Context, t *table.Table) ([]byte, error) {
	return c.encode(ctx, &Toolpath{Table: t})
}

// テーブルを ada3dp ファイルとして書き出す
func (c *Converter) TableToFile(ctx context.Context, t *table.Table, dst string) error {
	return c.WriteToolpath(ctx, &Toolpath{Table: t}, dst)
}

// ada3dp ファイルを読み込み、テーブルと Parameters を返す
func (c *Converter) ReadToolpath(ctx context.Context, src string) (tp *Toolpath, err error) {
	var rows, size int
	defer func() { c.metrics.observe(DirectionDecode, rows, size, err) }()

	data, err := c.get(ctx, src)
	if err != nil {
		return nil, err
	}
	size = len(data)

	doc := &ada3dp.ToolPathData{}
	if err := ada3dp.Unmarshal(data, doc); err != nil {
		return nil, &DecodeError{Path: src, Err: err}
	}

	t := c.flattener.Flatten(doc)
	rows = t.Len()

	c.logger.Info("decoded toolpath",
		zap.String("path", src),
		zap.Int("layers", len(doc.ToolPathGroups)),
		zap.Int("rows", rows),
		zap.Int("bytes", size),
	)

	return &Toolpath{Table: t, Parameters: parametersOf(doc)}, nil
}

// テーブルからツールパスを組み立て直し、Parameters を付けて ada3dp ファイルとして書き出す
func (c *Converter) WriteToolpath(ctx context.Context, tp *Toolpath, dst string) error {
	data, err := c.encode(ctx, tp)
	if err != nil {
		return err
	}

	if err := c.put(ctx, dst, data); err != nil {
		return err
	}

	c.logger.Info("wrote toolpath", zap.String("path", dst), zap.Int("bytes", len(data)))
	return nil
}

func (c *Converter) encode(ctx context.Context, tp *Toolpath) (data []byte, err error) {
	var rows int
	defer func() { c.metrics.observe(DirectionEncode, rows, len(data), err) }()

	if tp == nil || tp.Table == nil {
		return nil, errors.New("no table to encode")
	}
	rows = tp.Table.Len()

	if !tp.Table.Has(table.ColSegmentID) {
		c.logger.Warn("segmentID column is missing, each layer becomes a single segment", zap.Int("rows", rows))
	}

	doc, err := c.rebuilder.Rebuild(ctx, tp.Table)
	if err != nil {
		return nil, err
	}
	if tp.Parameters != nil {
		params := *tp.Parameters
		doc.Parameters = &params
	}

	data, err = ada3dp.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode toolpath: %w", err)
	}

	c.logger.Debug("rebuilt toolpath",
		zap.Int("layers", len(doc.ToolPathGroups)),
		zap.Int("rows", rows),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

// テーブルを Parquet ファイルとして書き出す。Parameters はフッターのメタデータに保存する
func (c *Converter) TableToParquet(ctx context.Context, tp *Toolpath, dst string) (err error) {
	var rows, size int
	defer func() { c.metrics.observe(DirectionParquetWrite, rows, size, err) }()

	if tp == nil || tp.Table == nil {
		return errors.New("no table to write")
	}

	params := tp.Parameters
	if params == nil {
		params = &ada3dp.Parameters{}
	}
	meta, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	buf := new(bytes.Buffer)
	err = table.WriteParquet(buf, tp.Table,
		table.WithCompression(c.parquetCompression),
		table.WithMetadata(ParametersKey, string(meta)),
	)
	if err != nil {
		return err
	}

	if err := c.put(ctx, dst, buf.Bytes()); err != nil {
		return err
	}
	rows, size = tp.Table.Len(), buf.Len()

	c.logger.Info("wrote parquet",
		zap.String("path", dst),
		zap.Int("rows", rows),
		zap.Int("bytes", size),
		zap.Bool("lists", tp.Table.HasLists()),
	)
	return nil
}

// Parquet ファイルを読み込む。Parameters がメタデータに無ければ空の Parameters を返す
func (c *Converter) ParquetToToolpath(ctx context.Context, src string) (tp *Toolpath, err error) {
	var rows, size int
	defer func() { c.metrics.observe(DirectionParquetRead, rows, size, err) }()

	data, err := c.get(ctx, src)
	if err != nil {
		return nil, err
	}
	size = len(data)

	t, metadata, err := table.ReadParquet(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		var schemaErr *table.SchemaError
		if errors.As(err, &schemaErr) {
			return nil, err
		}
		return nil, &DecodeError{Path: src, Err: err}
	}
	rows = t.Len()

	params := &ada3dp.Parameters{}
	if raw, ok := metadata[ParametersKey]; ok {
		if err := json.Unmarshal([]byte(raw), params); err != nil {
			return nil, &DecodeError{Path: src, Err: fmt.Errorf("failed to unmarshal parameters: %w", err)}
		}
	}

	c.logger.Info("read parquet",
		zap.String("path", src),
		zap.Int("rows", rows),
		zap.Int("columns", len(t.Columns())),
	)
	return &Toolpath{Table: t, Parameters: params}, nil
}

// 拡張子から形式を判断して読み込む
func (c *Converter) Load(ctx context.Context, src string) (*Toolpath, error) {
	if IsParquet(src) {
		return c.ParquetToToolpath(ctx, src)
	}
	return c.ReadToolpath(ctx, src)
}

// 拡張子から形式を判断して書き出す
func (c *Converter) Save(ctx context.Context, tp *Toolpath, dst string) error {
	if IsParquet(dst) {
		return c.TableToParquet(ctx, tp, dst)
	}
	return c.WriteToolpath(ctx, tp, dst)
}

// レイヤーごとの集計
func (c *Converter) Stats(ctx context.Context, src string) ([]table.LayerSummary, error) {
	tp, err := c.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return table.Summarize(tp.Table)
}

func IsParquet(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".parquet")
}

func (c *Converter) get(ctx context.Context, src string) ([]byte, error) {
	data, err := c.store.Get(ctx, src)
	if err != nil {
		var corrupt *blob.CorruptError
		if errors.As(err, &corrupt) {
			return nil, &DecodeError{Path: src, Err: err}
		}
		return nil, &IOError{Op: "read", Path: src, Err: err}
	}
	return data, nil
}

func (c *Converter) put(ctx context.Context, dst string, data []byte) error {
	if err := c.store.Put(ctx, dst, data); err != nil {
		return &IOError{Op: "write", Path: dst, Err: err}
	}
	return nil
}

func parametersOf(doc *ada3dp.ToolPathData) *ada3dp.Parameters {
	if doc.Parameters == nil {
		return &ada3dp.Parameters{}
	}
	return doc.Parameters
}
