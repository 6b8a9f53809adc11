// Package blob はツールパスやテーブルのファイルをバイト列として丸ごと読み書きする。
//
// 読み込みは最後まで読み切ってから、書き込みは全体を組み立ててから1回で行う。
// 途中で失敗した場合に部分的な出力が見えることはない。
package blob

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// 存在しないファイルを読もうとした場合のエラー。errors.Is で判定する
var ErrNotFound = os.ErrNotExist

type (
	Store interface {
		Get(ctx context.Context, name string) ([]byte, error)
		Put(ctx context.Context, name string, data []byte) error
	}

	// s3:// で始まる名前を S3 に、それ以外をローカルに振り分ける
	Router struct {
		Local Store
		S3    Store
	}
)

const s3Scheme = "s3://"

func IsS3(name string) bool {
	return strings.HasPrefix(name, s3Scheme)
}

func (r *Router) Get(ctx context.Context, name string) ([]byte, error) {
	s, err := r.route(name)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, name)
}

func (r *Router) Put(ctx context.Context, name string, data []byte) error {
	s, err := r.route(name)
	if err != nil {
		return err
	}
	return s.Put(ctx, name, data)
}

func (r *Router) route(name string) (Store, error) {
	if IsS3(name) {
		if r.S3 == nil {
			return nil, fmt.Errorf("s3 store is not configured for '%s'", name)
		}
		return r.S3, nil
	}
	if r.Local == nil {
		return nil, fmt.Errorf("local store is not configured for '%s'", name)
	}
	return r.Local, nil
}
