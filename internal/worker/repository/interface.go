package repository

import (
	"context"
	"encoding/json"

	"joe-analytics/internal/worker/dao"
	"joe-analytics/pkg/subgraph"
)

// SubgraphClient 单个数据源的查询能力
type SubgraphClient interface {
	Name() string
	FetchAll(ctx context.Context, q subgraph.PageQuery) ([]json.RawMessage, error)
	QueryAtBlock(ctx context.Context, entity, id, fields string, block uint64) (json.RawMessage, error)
}

type Repository interface {
	// subgraph 数据源
	GetVeJoeClient() SubgraphClient
	GetSJoeClient() SubgraphClient
	GetRJoeClient() SubgraphClient
	GetBoostedPoolsClient() SubgraphClient

	// 快照存储
	GetSnapshotDAO() dao.SnapshotDAO
	Close() error
}
