package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/monitor"
	"joe-analytics/pkg/httpclient"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

var nullJSON = []byte("null")

// Client 单个 subgraph 数据源的 GraphQL 客户端
type Client struct {
	name       string
	url        string
	pageSize   int
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

func NewClient(cfg config.SourceConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpCfg := httpclient.HTTPClientConfig{
		Timeout:    time.Duration(cfg.Timeout) * time.Second,
		RateLimit:  cfg.RateLimit,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  "joe-analytics/" + cfg.Name,
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return &Client{
		name:       cfg.Name,
		url:        cfg.URL,
		pageSize:   pageSize,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger.With(zap.String("source", cfg.Name)),
	}
}

func (c *Client) Name() string {
	return c.name
}

// Query 发送一次 GraphQL 请求并把 data 解析到 out
func (c *Client) Query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	var resp Response
	err := c.httpClient.PostJSON(ctx, c.url, Request{Query: query, Variables: vars}, nil, &resp)
	if err != nil {
		monitor.SubgraphRequestsTotal.WithLabelValues(c.name, monitor.StatusFailure).Inc()
		return err
	}
	if len(resp.Errors) > 0 {
		monitor.SubgraphRequestsTotal.WithLabelValues(c.name, monitor.StatusFailure).Inc()
		return GraphQLErrors(resp.Errors)
	}
	monitor.SubgraphRequestsTotal.WithLabelValues(c.name, monitor.StatusSuccess).Inc()

	if out == nil {
		return nil
	}
	if len(resp.Data) == 0 || bytes.Equal(resp.Data, nullJSON) {
		return errors.New("graphql: empty data")
	}
	return sonic.Unmarshal(resp.Data, out)
}

// FetchAll 按游标翻页拉取全部记录，记录原样返回
// 某页少于 page size 条即结束；任何一页失败都不返回部分结果
func (c *Client) FetchAll(ctx context.Context, q PageQuery) ([]json.RawMessage, error) {
	pageSize := q.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = c.pageSize
	}

	var (
		cursor interface{}
		all    []json.RawMessage
		pages  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vars := map[string]interface{}{"first": pageSize}
		if cursor != nil {
			vars["cursor"] = cursor
		}

		var data map[string][]json.RawMessage
		if err := c.Query(ctx, q.Build(cursor != nil), vars, &data); err != nil {
			return nil, &FetchError{Source: c.name, Entity: q.Entity, Cursor: cursor, Err: err}
		}
		page, ok := data[q.Entity]
		if !ok {
			return nil, fmt.Errorf("%s: response has no %q field", c.name, q.Entity)
		}

		pages++
		monitor.SubgraphPagesFetched.WithLabelValues(c.name, q.Entity).Inc()
		all = append(all, page...)

		if len(page) < pageSize {
			break
		}

		next, err := cursorOf(page[len(page)-1], q.OrderKey, q.cursorType())
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", c.name, q.Entity, err)
		}
		if cursor != nil && fmt.Sprint(next) == fmt.Sprint(cursor) {
			return nil, fmt.Errorf("%s.%s: cursor did not advance past %v", c.name, q.Entity, cursor)
		}
		cursor = next
	}

	c.logger.Debug("Paginated fetch finished",
		zap.String("entity", q.Entity),
		zap.Int("pages", pages),
		zap.Int("records", len(all)),
	)
	if all == nil {
		all = []json.RawMessage{}
	}
	return all, nil
}

// QueryAtBlock 查询区块高度 block 时 entity(id) 的状态，实体不存在时返回 nil
func (c *Client) QueryAtBlock(ctx context.Context, entity, id, fields string, block uint64) (json.RawMessage, error) {
	query := fmt.Sprintf("query getAtBlock($id: ID!, $block: Int!) {\n  %s(id: $id, block: {number: $block}) {\n    %s\n  }\n}",
		entity, fields)
	vars := map[string]interface{}{"id": id, "block": block}

	var data map[string]json.RawMessage
	if err := c.Query(ctx, query, vars, &data); err != nil {
		return nil, &FetchError{Source: c.name, Entity: entity, Err: err}
	}
	raw, ok := data[entity]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), nullJSON) {
		return nil, nil
	}
	return raw, nil
}

func (c *Client) Close() error {
	return c.httpClient.Close()
}

// cursorOf 取记录中的排序字段作为下一页游标
func cursorOf(record json.RawMessage, key string, typ CursorType) (interface{}, error) {
	var fields map[string]json.RawMessage
	if err := sonic.Unmarshal(record, &fields); err != nil {
		return nil, fmt.Errorf("decode record for cursor: %w", err)
	}
	raw, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("record has no order key %q", key)
	}

	text := string(bytes.TrimSpace(raw))
	if len(text) >= 2 && text[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return nil, fmt.Errorf("order key %q: %w", key, err)
		}
		text = unquoted
	}

	if typ == CursorInt {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("order key %q is not an integer: %w", key, err)
		}
		return n, nil
	}
	return text, nil
}
