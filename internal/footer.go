package internal

import (
	"context"
	"fmt"
	"github.com/apache/thrift/lib/go/thrift"
)

// フッターとページヘッダーの Thrift 構造体。使うフィールドだけを読み、残りは読み飛ばす
type (
	fileMetaData struct {
		Version          int32
		Schema           []*schemaElement
		NumRows          int64
		RowGroups        []*rowGroup
		KeyValueMetadata []*keyValue
		CreatedBy        *string
	}

	schemaElement struct {
		Type           *Type
		TypeLength     *int32
		RepetitionType *FieldRepetitionType
		Name           string
		NumChildren    *int32
	}

	rowGroup struct {
		Columns       []*columnChunk
		TotalByteSize int64
		NumRows       int64
	}

	columnChunk struct {
		FilePath   *string
		FileOffset int64
		MetaData   *columnMetaData
	}

	columnMetaData struct {
		Type                  Type
		Encodings             []Encoding
		PathInSchema          []string
		Codec                 CompressionCodec
		NumValues             int64
		TotalUncompressedSize int64
		TotalCompressedSize   int64
		DataPageOffset        int64
		DictionaryPageOffset  *int64
	}

	keyValue struct {
		Key   string
		Value *string
	}

	pageHeader struct {
		Type                 PageType
		UncompressedPageSize int32
		CompressedPageSize   int32
		DataPageHeader       *dataPageHeader
		DictionaryPageHeader *dictionaryPageHeader
		DataPageHeaderV2     *dataPageHeaderV2
	}

	dataPageHeader struct {
		NumValues               int32
		Encoding                Encoding
		DefinitionLevelEncoding Encoding
		RepetitionLevelEncoding Encoding
	}

	dictionaryPageHeader struct {
		NumValues int32
		Encoding  Encoding
	}

	dataPageHeaderV2 struct {
		NumValues                  int32
		NumNulls                   int32
		NumRows                    int32
		Encoding                   Encoding
		DefinitionLevelsByteLength int32
		RepetitionLevelsByteLength int32
		IsCompressed               *bool
	}
)

func (m *fileMetaData) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && t == thrift.I32:
			m.Version, err = p.ReadI32(ctx)
		case id == 2 && t == thrift.LIST:
			err = readList(ctx, p, func() error {
				e := &schemaElement{}
				m.Schema = append(m.Schema, e)
				return e.read(ctx, p)
			})
		case id == 3 && t == thrift.I64:
			m.NumRows, err = p.ReadI64(ctx)
		case id == 4 && t == thrift.LIST:
			err = readList(ctx, p, func() error {
				rg := &rowGroup{}
				m.RowGroups = append(m.RowGroups, rg)
				return rg.read(ctx, p)
			})
		case id == 5 && t == thrift.LIST:
			err = readList(ctx, p, func() error {
				kv := &keyValue{}
				m.KeyValueMetadata = append(m.KeyValueMetadata, kv)
				return kv.read(ctx, p)
			})
		case id == 6 && t == thrift.STRING:
			m.CreatedBy, err = readOptionalString(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

func (e *schemaElement) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var (
			v   int32
			err error
		)
		switch {
		case id == 1 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			typ := Type(v)
			e.Type = &typ
		case id == 2 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			e.TypeLength = &v
		case id == 3 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			rep := FieldRepetitionType(v)
			e.RepetitionType = &rep
		case id == 4 && t == thrift.STRING:
			e.Name, err = p.ReadString(ctx)
		case id == 5 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			e.NumChildren = &v
		default:
			return false, nil
		}
		return true, err
	})
}

func (rg *rowGroup) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && t == thrift.LIST:
			err = readList(ctx, p, func() error {
				col := &columnChunk{}
				rg.Columns = append(rg.Columns, col)
				return col.read(ctx, p)
			})
		case id == 2 && t == thrift.I64:
			rg.TotalByteSize, err = p.ReadI64(ctx)
		case id == 3 && t == thrift.I64:
			rg.NumRows, err = p.ReadI64(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

func (col *columnChunk) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && t == thrift.STRING:
			col.FilePath, err = readOptionalString(ctx, p)
		case id == 2 && t == thrift.I64:
			col.FileOffset, err = p.ReadI64(ctx)
		case id == 3 && t == thrift.STRUCT:
			col.MetaData = &columnMetaData{}
			err = col.MetaData.read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

func (m *columnMetaData) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var (
			v   int32
			err error
		)
		switch {
		case id == 1 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			m.Type = Type(v)
		case id == 2 && t == thrift.LIST:
			err = readList(ctx, p, func() error {
				enc, err := p.ReadI32(ctx)
				m.Encodings = append(m.Encodings, Encoding(enc))
				return err
			})
		case id == 3 && t == thrift.LIST:
			err = readList(ctx, p, func() error {
				name, err := p.ReadString(ctx)
				m.PathInSchema = append(m.PathInSchema, name)
				return err
			})
		case id == 4 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			m.Codec = CompressionCodec(v)
		case id == 5 && t == thrift.I64:
			m.NumValues, err = p.ReadI64(ctx)
		case id == 6 && t == thrift.I64:
			m.TotalUncompressedSize, err = p.ReadI64(ctx)
		case id == 7 && t == thrift.I64:
			m.TotalCompressedSize, err = p.ReadI64(ctx)
		case id == 9 && t == thrift.I64:
			m.DataPageOffset, err = p.ReadI64(ctx)
		case id == 11 && t == thrift.I64:
			var offset int64
			offset, err = p.ReadI64(ctx)
			m.DictionaryPageOffset = &offset
		default:
			return false, nil
		}
		return true, err
	})
}

func (kv *keyValue) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && t == thrift.STRING:
			kv.Key, err = p.ReadString(ctx)
		case id == 2 && t == thrift.STRING:
			kv.Value, err = readOptionalString(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

func (h *pageHeader) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var (
			v   int32
			err error
		)
		switch {
		case id == 1 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			h.Type = PageType(v)
		case id == 2 && t == thrift.I32:
			h.UncompressedPageSize, err = p.ReadI32(ctx)
		case id == 3 && t == thrift.I32:
			h.CompressedPageSize, err = p.ReadI32(ctx)
		case id == 5 && t == thrift.STRUCT:
			h.DataPageHeader = &dataPageHeader{}
			err = h.DataPageHeader.read(ctx, p)
		case id == 7 && t == thrift.STRUCT:
			h.DictionaryPageHeader = &dictionaryPageHeader{}
			err = h.DictionaryPageHeader.read(ctx, p)
		case id == 8 && t == thrift.STRUCT:
			h.DataPageHeaderV2 = &dataPageHeaderV2{}
			err = h.DataPageHeaderV2.read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

func (h *dataPageHeader) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var (
			v   int32
			err error
		)
		switch {
		case id == 1 && t == thrift.I32:
			h.NumValues, err = p.ReadI32(ctx)
		case id == 2 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			h.Encoding = Encoding(v)
		case id == 3 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			h.DefinitionLevelEncoding = Encoding(v)
		case id == 4 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			h.RepetitionLevelEncoding = Encoding(v)
		default:
			return false, nil
		}
		return true, err
	})
}

func (h *dictionaryPageHeader) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var (
			v   int32
			err error
		)
		switch {
		case id == 1 && t == thrift.I32:
			h.NumValues, err = p.ReadI32(ctx)
		case id == 2 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			h.Encoding = Encoding(v)
		default:
			return false, nil
		}
		return true, err
	})
}

func (h *dataPageHeaderV2) read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, t thrift.TType) (bool, error) {
		var (
			v   int32
			err error
		)
		switch {
		case id == 1 && t == thrift.I32:
			h.NumValues, err = p.ReadI32(ctx)
		case id == 2 && t == thrift.I32:
			h.NumNulls, err = p.ReadI32(ctx)
		case id == 3 && t == thrift.I32:
			h.NumRows, err = p.ReadI32(ctx)
		case id == 4 && t == thrift.I32:
			v, err = p.ReadI32(ctx)
			h.Encoding = Encoding(v)
		case id == 5 && t == thrift.I32:
			h.DefinitionLevelsByteLength, err = p.ReadI32(ctx)
		case id == 6 && t == thrift.I32:
			h.RepetitionLevelsByteLength, err = p.ReadI32(ctx)
		case id == 7 && t == thrift.BOOL:
			var compressed bool
			compressed, err = p.ReadBool(ctx)
			h.IsCompressed = &compressed
		default:
			return false, nil
		}
		return true, err
	})
}

// 省略時は圧縮されているものとして扱う
func (h *dataPageHeaderV2) compressed() bool {
	return h.IsCompressed == nil || *h.IsCompressed
}

// 構造体のフィールドを STOP まで読む。field が false を返したフィールドは読み飛ばす
func readStruct(ctx context.Context, p thrift.TProtocol, field func(id int16, t thrift.TType) (bool, error)) error {
	if _, err := p.ReadStructBegin(ctx); err != nil {
		return err
	}

	for {
		_, t, id, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if t == thrift.STOP {
			break
		}

		handled, err := field(id, t)
		if err != nil {
			return fmt.Errorf("failed to read field %d: %w", id, err)
		}
		if !handled {
			if err := p.Skip(ctx, t); err != nil {
				return fmt.Errorf("failed to skip field %d: %w", id, err)
			}
		}

		if err := p.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}

	return p.ReadStructEnd(ctx)
}

func readList(ctx context.Context, p thrift.TProtocol, elem func() error) error {
	_, size, err := p.ReadListBegin(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < size; i++ {
		if err := elem(); err != nil {
			return err
		}
	}

	return p.ReadListEnd(ctx)
}

func readOptionalString(ctx context.Context, p thrift.TProtocol) (*string, error) {
	s, err := p.ReadString(ctx)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
