package convert

import "fmt"

type (
	// ファイルの読み書きに失敗した
	IOError struct {
		Op   string
		Path string
		Err  error
	}

	// 入力が ada3dp や Parquet として解釈できない、または圧縮フレームが壊れている
	DecodeError struct {
		Path string
		Err  error
	}
)

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s '%s': %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode '%s': %s", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
