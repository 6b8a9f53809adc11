package convert

import (
	"github.com/murakmii/toolpath/internal/blob"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type (
	Option func(*options)

	options struct {
		store              blob.Store
		logger             *zap.Logger
		registerer         prometheus.Registerer
		includeLists       bool
		parallelism        int
		parquetCompression string
	}
)

func defaultOptions() *options {
	return &options{
		store:              blob.CompressedStore{Store: &blob.Router{Local: blob.NewLocalStore()}},
		logger:             zap.NewNop(),
		registerer:         prometheus.NewRegistry(),
		parquetCompression: "zstd",
	}
}

// 読み書きに使う Store。既定はローカルファイル(拡張子に応じて圧縮)
func WithStore(s blob.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// メトリクスを登録する先。既定は変換器ごとの専用レジストリ
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		if r != nil {
			o.registerer = r
		}
	}
}

// テーブルにファン・ユーザーイベント・外部軸のリスト列を含める
func WithIncludeLists(include bool) Option {
	return func(o *options) {
		o.includeLists = include
	}
}

// 再構築時に点を並列に組み立てるセグメント数の上限。0以下なら GOMAXPROCS
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

func WithParquetCompression(name string) Option {
	return func(o *options) {
		o.parquetCompression = name
	}
}
