package blob

import (
	"bytes"
	"context"
	"fmt"
	"github.com/DataDog/zstd"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	"io"
	"path/filepath"
	"strings"
)

type (
	Codec int

	// 圧縮フレームが壊れている場合のエラー
	CorruptError struct {
		Codec Codec
		Err   error
	}

	// 読み込み時に展開し、書き込み時に拡張子に応じて圧縮する Store
	CompressedStore struct {
		Store
	}
)

const (
	CodecNone Codec = iota
	CodecZstd
	CodecGzip
	CodecLZ4
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecGzip:
		return "gzip"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Codec(%d)", int(c))
	}
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt %s frame: %s", e.Codec, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// 拡張子から圧縮方式を決める
func CodecFor(name string) Codec {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zst", ".zstd":
		return CodecZstd
	case ".gz":
		return CodecGzip
	case ".lz4":
		return CodecLZ4
	default:
		return CodecNone
	}
}

// 先頭のマジックナンバーから圧縮方式を判定する
func Detect(data []byte) Codec {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CodecZstd
	case bytes.HasPrefix(data, gzipMagic):
		return CodecGzip
	case bytes.HasPrefix(data, lz4Magic):
		return CodecLZ4
	default:
		return CodecNone
	}
}

func Compress(c Codec, data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return data, nil

	case CodecZstd:
		compressed, err := zstd.Compress(nil, data)
		if err != nil {
			return nil, fmt.Errorf("failed to compress zstd: %w", err)
		}
		return compressed, nil

	case CodecGzip:
		buf := new(bytes.Buffer)
		w := gzip.NewWriter(buf)
		return finishWriter(c, buf, w, data)

	case CodecLZ4:
		buf := new(bytes.Buffer)
		w := lz4.NewWriter(buf)
		return finishWriter(c, buf, w, data)

	default:
		return nil, fmt.Errorf("unsupported codec: %s", c)
	}
}

func finishWriter(c Codec, buf *bytes.Buffer, w io.WriteCloser, data []byte) ([]byte, error) {
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", c, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", c, err)
	}
	return buf.Bytes(), nil
}

// 圧縮されていればマジックナンバーで判定して展開する。それ以外はそのまま返す
func Decompress(data []byte) ([]byte, error) {
	c := Detect(data)

	var (
		plain []byte
		err   error
	)
	switch c {
	case CodecNone:
		return data, nil

	case CodecZstd:
		plain, err = zstd.Decompress(nil, data)

	case CodecGzip:
		var r *gzip.Reader
		if r, err = gzip.NewReader(bytes.NewReader(data)); err == nil {
			plain, err = io.ReadAll(r)
		}

	case CodecLZ4:
		plain, err = io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	}

	if err != nil {
		return nil, &CorruptError{Codec: c, Err: err}
	}
	return plain, nil
}

func (s CompressedStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return Decompress(data)
}

func (s CompressedStore) Put(ctx context.Context, name string, data []byte) error {
	compressed, err := Compress(CodecFor(name), data)
	if err != nil {
		return err
	}
	return s.Store.Put(ctx, name, compressed)
}
