package table

import "fmt"

// テーブルの列が欠けている、型が合わない、長さが揃っていない場合のエラー
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: column '%s': %s", e.Column, e.Reason)
}

func missingColumn(c Column) error {
	return &SchemaError{Column: c.Name(), Reason: "column not found"}
}
