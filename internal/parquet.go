// Package internal は Parquet ファイルのフッターとページヘッダーを直接読み、ファイルの構造を調べる。
package internal

import (
	"context"
	"fmt"
	"github.com/apache/thrift/lib/go/thrift"
	"io"
)

// Parquetファイルをデコードしていくための構造体
type Parquet struct {
	r     io.ReadSeeker // TProtocolだけではシーク等ができないので元の ReadSeeker も保持
	proto thrift.TProtocol
}

func NewParquet(r io.ReadSeeker) *Parquet {
	return &Parquet{
		r: r,
		proto: thrift.NewTCompactProtocolConf(
			&thrift.StreamTransport{Reader: r},
			nil,
		),
	}
}

// Parquetファイルを解析し、スキーマ等の構造を返す
func (par *Parquet) Inspect(ctx context.Context) (*MetaData, error) {
	// ファイル末尾から8バイト戻った位置にある、フッター長とマジックナンバーを取得する
	if _, err := par.r.Seek(-8, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("failed to seek to footer length: %w", err)
	}

	tail := make([]byte, 8)
	if _, err := io.ReadFull(par.r, tail); err != nil {
		return nil, fmt.Errorf("failed to read footer length: %w", err)
	}

	footerLen, err := decodeFooterTail(tail)
	if err != nil {
		return nil, fmt.Errorf("not a parquet file: %w", err)
	}

	// フッター、フッター長、マジックナンバー分だけ末尾から先頭、つまりフッターの先頭にシークする
	if _, err := par.r.Seek(-footerLen-8, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("failed to seek to footer: %w", err)
	}

	// フッターを読み取り、専用の構造体に変換していく
	footer := &fileMetaData{}
	if err := footer.read(ctx, par.proto); err != nil {
		return nil, fmt.Errorf("failed to read footer: %w", err)
	}

	return par.inspectFooter(ctx, footer)
}

func (par *Parquet) inspectFooter(ctx context.Context, footer *fileMetaData) (*MetaData, error) {
	if len(footer.Schema) == 0 {
		return nil, fmt.Errorf("footer has no schema")
	}

	metaData := &MetaData{
		TotalRows: footer.NumRows,
		KeyValues: make(map[string]string, len(footer.KeyValueMetadata)),
		RowGroups: make([]*RowGroup, len(footer.RowGroups)),
	}
	if footer.CreatedBy != nil {
		metaData.CreatedBy = *footer.CreatedBy
	}
	for _, kv := range footer.KeyValueMetadata {
		if kv.Value != nil {
			metaData.KeyValues[kv.Key] = *kv.Value
		}
	}

	// スキーマ情報を変換
	var err error
	if metaData.SchemaTree, _, err = inspectSchema(footer.Schema, 0, 0, 0); err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}

	// 行グループ毎に変換
	for i := 0; i < len(footer.RowGroups); i++ {
		metaData.RowGroups[i] = &RowGroup{
			NumRows:       footer.RowGroups[i].NumRows,
			TotalByteSize: footer.RowGroups[i].TotalByteSize,
			Columns:       make([]*ColumnChunk, len(footer.RowGroups[i].Columns)),
		}

		// 列チャンク毎に変換
		for j := 0; j < len(footer.RowGroups[i].Columns); j++ {
			meta := footer.RowGroups[i].Columns[j].MetaData
			if meta == nil {
				return nil, fmt.Errorf("column chunk of row=%d, col=%d has no metadata", i, j)
			}

			col := &ColumnChunk{
				Path:                  joinPath(meta.PathInSchema),
				PathInSchema:          meta.PathInSchema,
				Type:                  meta.Type,
				Codec:                 meta.Codec,
				Encodings:             meta.Encodings,
				NumValues:             meta.NumValues,
				TotalUncompressedSize: meta.TotalUncompressedSize,
				TotalCompressedSize:   meta.TotalCompressedSize,
				DataPageOffset:        meta.DataPageOffset,
				DictPageOffset:        meta.DictionaryPageOffset,
			}

			// ページを変換
			if col.Pages, err = par.inspectPages(ctx, col); err != nil {
				return nil, fmt.Errorf("failed to inspect page of row=%d, col=%d: %w", i, j, err)
			}

			metaData.RowGroups[i].Columns[j] = col
		}
	}

	return metaData, nil
}

// スキーマ情報の変換
// 定義レベル・繰り返しレベルの最大値は、祖先から自身までの OPTIONAL / REPEATED の数になる
func inspectSchema(elements []*schemaElement, depth, defLevel, repLevel int) (*Schema, []*schemaElement, error) {
	if len(elements) == 0 {
		return nil, nil, fmt.Errorf("schema ended unexpectedly at depth %d", depth)
	}

	if depth > 0 && elements[0].RepetitionType != nil {
		switch *elements[0].RepetitionType {
		case Optional:
			defLevel++
		case Repeated:
			defLevel++
			repLevel++
		}
	}

	s := &Schema{
		Name:               elements[0].Name,
		Type:               elements[0].Type,
		TypeLength:         elements[0].TypeLength,
		RepetitionType:     elements[0].RepetitionType,
		Depth:              depth,
		MaxDefinitionLevel: defLevel,
		MaxRepetitionLevel: repLevel,
	}

	// NumChildren を持つフィールドは、後続の NumChildren 個のフィールドをネストしたフィールドとして扱う
	// NumChildren を持たないならネストしたフィールドは存在しないので、この時点で処理を返す
	if elements[0].NumChildren == nil {
		return s, elements[1:], nil
	}

	numChildren := *elements[0].NumChildren
	s.Children = make(map[string]*Schema, numChildren)
	elements = elements[1:]

	// ネストしたフィールドがさらにネストしていることもあるので、
	// それぞれについて再帰的に処理する
	var (
		child *Schema
		err   error
	)
	for i := int32(0); i < numChildren; i++ {
		if child, elements, err = inspectSchema(elements, depth+1, defLevel, repLevel); err != nil {
			return nil, nil, err
		}
		s.Children[child.Name] = child
	}

	return s, elements, nil
}

// ページ情報の変換
func (par *Parquet) inspectPages(ctx context.Context, col *ColumnChunk) ([]*Page, error) {
	// ページ群の先頭オフセットを求めシークする
	// 辞書ページがあるならそのオフセット、辞書ページを持たないならデータページのオフセットが先頭になる
	offset := col.PageHeadOffset()
	if err := par.Seek(offset); err != nil {
		return nil, err
	}

	endOfPages := col.PageTailOffset()
	pages := make([]*Page, 0)
	var page *Page
	var err error

	// 1ページずつ読み取り、ページ群の終端に移動した時点で終了
	for offset < endOfPages {
		page, _, err = par.nextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect page(%d): %w", offset, err)
		}

		// この時点ではページ内容をデコードしなくても良いのでシークして読み飛ばす
		offset = page.Offset + int64(page.CompressedSize)
		if err := par.Seek(offset); err != nil {
			return nil, err
		}

		pages = append(pages, page)
	}

	return pages, nil
}

// 現在位置のページヘッダーを読む。ページ内容の先頭に位置した状態で返る
func (par *Parquet) nextPage(ctx context.Context) (*Page, *pageHeader, error) {
	header := &pageHeader{}
	if err := header.read(ctx, par.proto); err != nil {
		return nil, nil, fmt.Errorf("failed to read page header: %w", err)
	}

	// 後からページ内容に簡単にアクセスできるよう、ページヘッダー読み取り後のオフセットを記録しておく
	offset, err := par.CurrentOffset()
	if err != nil {
		return nil, nil, err
	}

	page := &Page{
		Type:             header.Type,
		Offset:           offset,
		CompressedSize:   header.CompressedPageSize,
		UncompressedSize: header.UncompressedPageSize,
	}

	switch {
	case header.Type == PageData && header.DataPageHeader != nil:
		page.NumValues = header.DataPageHeader.NumValues
		page.Encoding = header.DataPageHeader.Encoding
		page.Data = &DataPage{
			RepetitionLevelEncoding: header.DataPageHeader.RepetitionLevelEncoding,
			DefinitionLevelEncoding: header.DataPageHeader.DefinitionLevelEncoding,
		}

	case header.Type == PageDataV2 && header.DataPageHeaderV2 != nil:
		v2 := header.DataPageHeaderV2
		page.NumValues = v2.NumValues
		page.Encoding = v2.Encoding
		page.DataV2 = &DataPageV2{
			NumNulls:                   v2.NumNulls,
			NumRows:                    v2.NumRows,
			DefinitionLevelsByteLength: v2.DefinitionLevelsByteLength,
			RepetitionLevelsByteLength: v2.RepetitionLevelsByteLength,
			IsCompressed:               v2.compressed(),
		}

	case header.Type == PageDictionary && header.DictionaryPageHeader != nil:
		page.NumValues = header.DictionaryPageHeader.NumValues
		page.Encoding = header.DictionaryPageHeader.Encoding

	default:
		// nop
	}

	if page.CompressedSize < 0 || page.UncompressedSize < 0 {
		return nil, nil, fmt.Errorf("invalid page size at %d", offset)
	}

	return page, header, nil
}

func (par *Parquet) Seek(offset int64) error {
	if _, err := par.r.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek parquet file(offset: %d): %w", offset, err)
	}
	return nil
}

func (par *Parquet) CurrentOffset() (int64, error) {
	offset, err := par.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("failed to get current offset: %w", err)
	}
	return offset, nil
}

// 現在位置から size バイト読む
func (par *Parquet) Read(size int64) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(par.r, buf); err != nil {
		return nil, fmt.Errorf("failed to read parquet file(size: %d): %w", size, err)
	}

	return buf, nil
}
