package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/dao"
	"joe-analytics/internal/worker/model"
	"joe-analytics/internal/worker/repository"
	"joe-analytics/pkg/subgraph"
	"joe-analytics/pkg/utils"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// 数据集名称，同时也是快照文件名
const (
	DatasetVeJoeUsers                = "vejoe_get_all_users"
	DatasetVeJoeBoostedPoolPositions = "vejoe_get_all_users_boosted_pool_positions"
	DatasetSJoeUsers                 = "sjoe_get_all_users"
	DatasetRJoeUsers                 = "rjoe_get_all_users"
	DatasetVeJoeDaySnapshots         = "vejoe_get_all_day_snapshots"
	DatasetSJoeDaySnapshots          = "sjoe_get_all_day_snapshots"
	DatasetRJoeDaySnapshots          = "rjoe_get_all_day_snapshots"
	DatasetVeJoeWars                 = "vejoe_wars"
)

// Dataset 需要周期刷新的数据集，Fetch 全量覆盖，Append 只用于 wars 区块序列
type Dataset struct {
	Name   string
	Fetch  func(ctx context.Context) ([]json.RawMessage, error)
	Append dao.BlockFetcher
}

// CollectorService 从各个 subgraph 拉取数据集
type CollectorService struct {
	repo repository.Repository
	tl   *zap.Logger
	wars config.WarsConfig
}

func NewCollectorService(repo repository.Repository, cfg config.Config, tl *zap.Logger) *CollectorService {
	return &CollectorService{
		repo: repo,
		tl:   tl,
		wars: cfg.Wars,
	}
}

// Datasets 固定的刷新顺序
func (s *CollectorService) Datasets() []Dataset {
	return []Dataset{
		{Name: DatasetVeJoeUsers, Fetch: s.FetchVeJoeUsers},
		{Name: DatasetVeJoeBoostedPoolPositions, Fetch: s.FetchBoostedPoolPositions},
		{Name: DatasetSJoeUsers, Fetch: s.FetchSJoeUsers},
		{Name: DatasetRJoeUsers, Fetch: s.FetchRJoeUsers},
		{Name: DatasetVeJoeDaySnapshots, Fetch: s.FetchVeJoeDaySnapshots},
		{Name: DatasetSJoeDaySnapshots, Fetch: s.FetchSJoeDaySnapshots},
		{Name: DatasetRJoeDaySnapshots, Fetch: s.FetchRJoeDaySnapshots},
		{Name: DatasetVeJoeWars, Append: func(ctx context.Context, block uint64) (interface{}, error) {
			return s.WarsAtBlock(ctx, block)
		}},
	}
}

func (s *CollectorService) FetchVeJoeUsers(ctx context.Context) ([]json.RawMessage, error) {
	return fetchValidated[model.VeJoeUser](ctx, s.repo.GetVeJoeClient(), usersQuery("getUsers", veJoeUserFields))
}

func (s *CollectorService) FetchBoostedPoolPositions(ctx context.Context) ([]json.RawMessage, error) {
	return fetchValidated[model.BoostedPoolUser](ctx, s.repo.GetBoostedPoolsClient(), usersQuery("getUsersBoostedPoolPositions", boostedPoolPositionFields))
}

func (s *CollectorService) FetchSJoeUsers(ctx context.Context) ([]json.RawMessage, error) {
	return fetchValidated[model.SJoeUser](ctx, s.repo.GetSJoeClient(), usersQuery("getUsers", sJoeUserFields))
}

func (s *CollectorService) FetchRJoeUsers(ctx context.Context) ([]json.RawMessage, error) {
	return fetchValidated[model.RJoeUser](ctx, s.repo.GetRJoeClient(), usersQuery("getUsers", rJoeUserFields))
}

func (s *CollectorService) FetchVeJoeDaySnapshots(ctx context.Context) ([]json.RawMessage, error) {
	return fetchValidated[model.VeJoeDaySnapshot](ctx, s.repo.GetVeJoeClient(), daySnapshotsQuery(veJoeDaySnapshotFields))
}

func (s *CollectorService) FetchSJoeDaySnapshots(ctx context.Context) ([]json.RawMessage, error) {
	return fetchValidated[model.SJoeDaySnapshot](ctx, s.repo.GetSJoeClient(), daySnapshotsQuery(sJoeDaySnapshotFields))
}

func (s *CollectorService) FetchRJoeDaySnapshots(ctx context.Context) ([]json.RawMessage, error) {
	return fetchValidated[model.RJoeDaySnapshot](ctx, s.repo.GetRJoeClient(), daySnapshotsQuery(rJoeDaySnapshotFields))
}

// fetchValidated 全量拉取后逐条解码校验，记录本身原样返回
func fetchValidated[T interface{ GetID() string }](ctx context.Context, client repository.SubgraphClient, q subgraph.PageQuery) ([]json.RawMessage, error) {
	records, err := client.FetchAll(ctx, q)
	if err != nil {
		return nil, err
	}
	for i, raw := range records {
		var rec T
		if err := sonic.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%s.%s record %d is malformed: %w", client.Name(), q.Entity, i, err)
		}
		if rec.GetID() == "" {
			return nil, fmt.Errorf("%s.%s record %d has no id", client.Name(), q.Entity, i)
		}
	}
	return records, nil
}

// WarsAtBlock 查询各平台钱包和池在 block 高度的质押状态
func (s *CollectorService) WarsAtBlock(ctx context.Context, block uint64) (model.WarsObservation, error) {
	client := s.repo.GetVeJoeClient()
	observation := make(model.WarsObservation, len(s.wars.Platforms)+1)

	for _, p := range s.wars.Platforms {
		address := utils.NormalizeAddress(p.Address)
		user, err := s.accountAtBlock(ctx, client, "user", address, block)
		if err != nil {
			return nil, err
		}
		observation[p.Label] = model.WarsEntry{
			BlockNumber: block,
			Platform:    p.Label,
			Address:     &address,
			User:        user,
		}
	}

	pool, err := s.accountAtBlock(ctx, client, "pool", utils.NormalizeAddress(s.wars.PoolAddress), block)
	if err != nil {
		return nil, err
	}
	observation[model.PoolLabel] = model.WarsEntry{
		BlockNumber: block,
		Platform:    model.PoolLabel,
		User:        pool,
	}
	return observation, nil
}

func (s *CollectorService) accountAtBlock(ctx context.Context, client repository.SubgraphClient, entity, id string, block uint64) (*model.WarsAccount, error) {
	raw, err := client.QueryAtBlock(ctx, entity, id, warsAccountFields, block)
	if err != nil || raw == nil {
		return nil, err
	}
	var account model.WarsAccount
	if err := sonic.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("decode %s %s at block %d: %w", entity, id, block, err)
	}
	return &account, nil
}

// WarsAtBlocks 回填 [from, to) 区间，每 step 个区块一个观测
func (s *CollectorService) WarsAtBlocks(ctx context.Context, from, to, step uint64) ([]model.WarsObservation, error) {
	if step == 0 {
		return nil, errors.New("block step must be positive")
	}

	var series []model.WarsObservation
	for block := from; block < to; block += step {
		observation, err := s.WarsAtBlock(ctx, block)
		if err != nil {
			return nil, fmt.Errorf("wars at block %d: %w", block, err)
		}
		series = append(series, observation)
	}
	s.tl.Info("wars backfill finished",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Uint64("step", step),
		zap.Int("observations", len(series)),
	)
	return series, nil
}

// SeedWarsSeries 序列文件不存在时做一次回填，已存在则跳过
func (s *CollectorService) SeedWarsSeries(ctx context.Context) (bool, error) {
	store := s.repo.GetSnapshotDAO()
	if store.Exists(DatasetVeJoeWars) {
		return false, nil
	}

	series, err := s.WarsAtBlocks(ctx, s.wars.BackfillFrom, s.wars.BackfillTo, s.wars.BackfillStep)
	if err != nil {
		return false, err
	}
	if len(series) == 0 {
		return false, errors.New("wars backfill range is empty")
	}
	if err := store.Write(DatasetVeJoeWars, series); err != nil {
		return false, err
	}
	return true, nil
}
