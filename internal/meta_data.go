package internal

import (
	"slices"
	"strings"
)

// Parquetファイルの構造を表すための一連の構造体
type (
	MetaData struct {
		SchemaTree *Schema           `json:"schema_tree"`
		TotalRows  int64             `json:"total_rows"`
		CreatedBy  string            `json:"created_by,omitempty"`
		KeyValues  map[string]string `json:"key_values,omitempty"`
		RowGroups  []*RowGroup       `json:"row_groups"`
	}

	Schema struct {
		Name               string               `json:"name"`
		Type               *Type                `json:"type,omitempty"`
		TypeLength         *int32               `json:"type_length,omitempty"`
		RepetitionType     *FieldRepetitionType `json:"repetition_type,omitempty"`
		Children           map[string]*Schema   `json:"children,omitempty"`
		Depth              int                  `json:"depth"`
		MaxDefinitionLevel int                  `json:"max_definition_level"`
		MaxRepetitionLevel int                  `json:"max_repetition_level"`
	}

	RowGroup struct {
		NumRows       int64          `json:"num_rows"`
		TotalByteSize int64          `json:"total_byte_size"`
		Columns       []*ColumnChunk `json:"columns"`
	}

	ColumnChunk struct {
		Path                  string           `json:"path"`
		PathInSchema          []string         `json:"-"`
		Type                  Type             `json:"type"`
		Codec                 CompressionCodec `json:"codec"`
		Encodings             []Encoding       `json:"encodings"`
		NumValues             int64            `json:"num_values"`
		TotalUncompressedSize int64            `json:"total_uncompressed_size"`
		TotalCompressedSize   int64            `json:"total_compressed_size"`
		DataPageOffset        int64            `json:"data_page_offset"`
		DictPageOffset        *int64           `json:"dict_page_offset,omitempty"`
		Pages                 []*Page          `json:"pages,omitempty"`
	}

	Page struct {
		Type             PageType    `json:"type"`
		Offset           int64       `json:"offset"`
		CompressedSize   int32       `json:"compressed_size"`
		UncompressedSize int32       `json:"uncompressed_size"`
		NumValues        int32       `json:"num_values"`
		Encoding         Encoding    `json:"encoding"`
		Data             *DataPage   `json:"data,omitempty"`
		DataV2           *DataPageV2 `json:"data_v2,omitempty"`
	}

	DataPage struct {
		RepetitionLevelEncoding Encoding `json:"repetition_level_encoding"`
		DefinitionLevelEncoding Encoding `json:"definition_level_encoding"`
	}

	DataPageV2 struct {
		NumNulls                   int32 `json:"num_nulls"`
		NumRows                    int32 `json:"num_rows"`
		DefinitionLevelsByteLength int32 `json:"definition_levels_byte_length"`
		RepetitionLevelsByteLength int32 `json:"repetition_levels_byte_length"`
		IsCompressed               bool  `json:"is_compressed"`
	}
)

// スキーマ上のパスを指定してスキーマ情報を取得
// 列名自体に "." を含みうるので、パスは要素ごとに渡す
func (s *MetaData) FindSchema(path ...string) *Schema {
	schema := s.SchemaTree
	var ok bool

	for _, p := range path {
		if schema.Children == nil {
			return nil
		}
		if schema, ok = schema.Children[p]; !ok {
			return nil
		}
	}

	return schema
}

// スキーマ上のパスを指定して、全行グループから列チャンクを取得
func (s *MetaData) FindColumnChunk(path ...string) []*ColumnChunk {
	columns := make([]*ColumnChunk, 0)

	for _, row := range s.RowGroups {
		for _, col := range row.Columns {
			if slices.Equal(col.PathInSchema, path) {
				columns = append(columns, col)
			}
		}
	}

	return columns
}

// 全ての葉の列を、スキーマ上の出現順に返す
func (s *MetaData) Leaves() [][]string {
	if len(s.RowGroups) == 0 {
		return nil
	}

	leaves := make([][]string, 0, len(s.RowGroups[0].Columns))
	for _, col := range s.RowGroups[0].Columns {
		leaves = append(leaves, col.PathInSchema)
	}
	return leaves
}

func (schema *Schema) IsLeaf() bool {
	return schema.Type != nil
}

func (col *ColumnChunk) HasDict() bool {
	return col.DictPageOffset != nil
}

func (col *ColumnChunk) PageHeadOffset() int64 {
	if col.HasDict() {
		return *col.DictPageOffset
	} else {
		return col.DataPageOffset
	}
}

// total_compressed_size はファイル上のバイト数なので、非圧縮でも同じ値になる
func (col *ColumnChunk) PageTailOffset() int64 {
	return col.PageHeadOffset() + col.TotalCompressedSize
}

func (schema *Schema) HasRepetitionLevels() bool {
	return schema.MaxRepetitionLevel > 0
}

func (schema *Schema) HasDefinitionLevels() bool {
	return schema.MaxDefinitionLevel > 0
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}
