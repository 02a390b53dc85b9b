package subgraph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxPageSize subgraph 单页返回上限
const MaxPageSize = 1000

// CursorType GraphQL 中游标变量的类型
type CursorType string

const (
	CursorID  CursorType = "ID"
	CursorInt CursorType = "Int"
)

// Request GraphQL 请求体
type Request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Response GraphQL 响应
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLErrors 上游返回的 errors 数组
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, item := range e {
		msgs = append(msgs, item.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// FetchError 分页拉取时的传输层失败，可在下个周期重试
type FetchError struct {
	Source string
	Entity string
	Cursor interface{}
	Err    error
}

func (e *FetchError) Error() string {
	if e.Cursor == nil {
		return fmt.Sprintf("fetch %s.%s (first page): %v", e.Source, e.Entity, e.Err)
	}
	return fmt.Sprintf("fetch %s.%s after cursor %v: %v", e.Source, e.Entity, e.Cursor, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PageQuery 描述一个按 OrderKey 升序分页的实体查询
type PageQuery struct {
	Name       string     // 操作名，例如 getUsers
	Entity     string     // 实体集合名，例如 users、daySnapshots
	Fields     string     // 选择集
	OrderKey   string     // 排序及游标字段
	CursorType CursorType // 游标变量类型
	PageSize   int        // 0 表示使用客户端默认值
}

// Build 生成查询文本，withCursor 时追加 <order_key>_gt 条件
func (q PageQuery) Build(withCursor bool) string {
	var b strings.Builder
	b.WriteString("query ")
	b.WriteString(q.Name)
	b.WriteString("($first: Int!")
	if withCursor {
		fmt.Fprintf(&b, ", $cursor: %s!", q.cursorType())
	}
	b.WriteString(") {\n  ")
	fmt.Fprintf(&b, "%s(first: $first, orderBy: %s, orderDirection: asc", q.Entity, q.OrderKey)
	if withCursor {
		fmt.Fprintf(&b, ", where: {%s_gt: $cursor}", q.OrderKey)
	}
	b.WriteString(") {\n")
	for _, line := range strings.Split(strings.TrimSpace(q.Fields), "\n") {
		b.WriteString("    ")
		b.WriteString(strings.TrimSpace(line))
		b.WriteString("\n")
	}
	b.WriteString("  }\n}")
	return b.String()
}

func (q PageQuery) cursorType() CursorType {
	if q.CursorType == "" {
		return CursorID
	}
	return q.CursorType
}
