package table

import (
	"errors"
	"sort"
	"strings"

	"joe-analytics/internal/worker/model"
	"joe-analytics/pkg/utils"

	"github.com/shopspring/decimal"
)

// 行索引名称
const (
	IndexAddress = "address"
	IndexDate    = "date"
)

// ColumnKey 两级表头 (池, 指标)
type ColumnKey struct {
	Pool model.PoolType `json:"pool"`
	Stat string         `json:"stat"`
}

func (k ColumnKey) String() string {
	return string(k.Pool) + "." + k.Stat
}

// Row 缺失的列不在 Values 中
type Row struct {
	Key    string
	Values map[ColumnKey]decimal.Decimal
}

// Table 按 Key 升序排列的行
type Table struct {
	Index   string
	Columns []ColumnKey
	Rows    []Row
}

func (t Table) Empty() bool {
	return len(t.Columns) == 0 && len(t.Rows) == 0
}

// Value 取某行某列
func (r Row) Value(col ColumnKey) (decimal.Decimal, bool) {
	v, ok := r.Values[col]
	return v, ok
}

// Drop 去掉指定指标列
func (t Table) Drop(pool model.PoolType, stats ...string) Table {
	drop := make(map[ColumnKey]bool, len(stats))
	for _, s := range stats {
		drop[ColumnKey{Pool: pool, Stat: s}] = true
	}

	out := Table{Index: t.Index, Rows: make([]Row, len(t.Rows))}
	for _, col := range t.Columns {
		if !drop[col] {
			out.Columns = append(out.Columns, col)
		}
	}
	for i, row := range t.Rows {
		values := make(map[ColumnKey]decimal.Decimal, len(row.Values))
		for col, v := range row.Values {
			if !drop[col] {
				values[col] = v
			}
		}
		out.Rows[i] = Row{Key: row.Key, Values: values}
	}
	return out
}

// OuterJoin 按行索引全外连接，列按输入顺序拼接
func OuterJoin(tables ...Table) Table {
	if len(tables) == 0 {
		return Table{}
	}

	out := Table{Index: tables[0].Index}
	merged := make(map[string]map[ColumnKey]decimal.Decimal)
	for _, t := range tables {
		out.Columns = append(out.Columns, t.Columns...)
		for _, row := range t.Rows {
			values, ok := merged[row.Key]
			if !ok {
				values = make(map[ColumnKey]decimal.Decimal, len(row.Values))
				merged[row.Key] = values
			}
			for col, v := range row.Values {
				values[col] = v
			}
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out.Rows = append(out.Rows, Row{Key: key, Values: merged[key]})
	}
	return out
}

// Select 按 choices 选出表格，多于一个时外连接
func Select(tables []Table, choices []bool) (Table, error) {
	if len(tables) != len(choices) {
		return Table{}, errors.New("tables and choices must have the same length")
	}

	var chosen []Table
	for i, t := range tables {
		if choices[i] {
			chosen = append(chosen, t)
		}
	}
	switch len(chosen) {
	case 0:
		return Table{}, nil
	case 1:
		return chosen[0], nil
	default:
		return OuterJoin(chosen...), nil
	}
}

// FillZero 缺失值补 0
func FillZero(t Table) Table {
	out := Table{Index: t.Index, Columns: t.Columns, Rows: make([]Row, len(t.Rows))}
	for i, row := range t.Rows {
		values := make(map[ColumnKey]decimal.Decimal, len(t.Columns))
		for _, col := range t.Columns {
			values[col] = row.Values[col]
		}
		out.Rows[i] = Row{Key: row.Key, Values: values}
	}
	return out
}

// Heading 例如 "veJOE Pool"、"veJOE & sJOE Pools"、"No Pool Selected"
func Heading(labels []string, choices []bool) (string, error) {
	if len(labels) != len(choices) {
		return "", errors.New("labels and choices must have the same length")
	}

	var chosen []string
	for i, label := range labels {
		if choices[i] {
			chosen = append(chosen, label)
		}
	}
	switch len(chosen) {
	case 0:
		return "No Pool Selected", nil
	case 1:
		return chosen[0] + " Pool", nil
	default:
		return strings.Join(chosen, " & ") + " Pools", nil
	}
}

// LongRow 长表的一行，用于按池画折线
type LongRow struct {
	Date  string              `json:"date"`
	Pool  model.PoolType      `json:"pool"`
	Value decimal.NullDecimal `json:"value"`
}

// LongForm 取出所有池的同一指标，按列顺序依次展开
func LongForm(t Table, stat string) []LongRow {
	var rows []LongRow
	for _, col := range t.Columns {
		if col.Stat != stat {
			continue
		}
		for _, row := range t.Rows {
			lr := LongRow{Date: row.Key, Pool: col.Pool}
			if v, ok := row.Values[col]; ok {
				lr.Value = decimal.NewNullDecimal(v)
			}
			rows = append(rows, lr)
		}
	}
	return rows
}

// Formatted 展示用的表格，缺失值为 null
type Formatted struct {
	Heading string         `json:"heading,omitempty"`
	Index   string         `json:"index"`
	Columns []ColumnKey    `json:"columns"`
	Rows    []FormattedRow `json:"rows"`
}

type FormattedRow struct {
	Key    string    `json:"key"`
	Values []*string `json:"values"`
}

// Format 保留三位小数并去掉末尾的 0
func Format(t Table) Formatted {
	out := Formatted{Index: t.Index, Columns: t.Columns, Rows: make([]FormattedRow, len(t.Rows))}
	if out.Columns == nil {
		out.Columns = []ColumnKey{}
	}
	for i, row := range t.Rows {
		values := make([]*string, len(t.Columns))
		for j, col := range t.Columns {
			if v, ok := row.Values[col]; ok {
				text := utils.FormatDisplay(v)
				values[j] = &text
			}
		}
		out.Rows[i] = FormattedRow{Key: row.Key, Values: values}
	}
	return out
}
