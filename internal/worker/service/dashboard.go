package service

import (
	"slices"

	"joe-analytics/internal/worker/cache"
	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/dao"
	"joe-analytics/internal/worker/model"
	"joe-analytics/internal/worker/table"
	"joe-analytics/internal/worker/wars"
	"joe-analytics/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Dashboard 只读快照，结果按 函数 + 参数 缓存
type Dashboard struct {
	store     dao.SnapshotDAO
	cache     *cache.ResultCache
	tl        *zap.Logger
	emission  decimal.Decimal
	platforms map[string]string
}

func NewDashboard(store dao.SnapshotDAO, resultCache *cache.ResultCache, cfg config.WarsConfig, tl *zap.Logger) (*Dashboard, error) {
	emission, err := cfg.EmissionRate()
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		store:     store,
		cache:     resultCache,
		tl:        tl,
		emission:  emission,
		platforms: cfg.PlatformLabels(),
	}, nil
}

// TitledTable 带标题的合并表格
type TitledTable struct {
	Heading string
	Table   table.Table
}

func choicesOf(pools []model.PoolType) []bool {
	choices := make([]bool, len(model.PoolTypes))
	for i, p := range model.PoolTypes {
		choices[i] = slices.Contains(pools, p)
	}
	return choices
}

func poolLabels() []string {
	labels := make([]string, len(model.PoolTypes))
	for i, p := range model.PoolTypes {
		labels[i] = string(p)
	}
	return labels
}

func readRecords[T any](store dao.SnapshotDAO, name string) ([]T, error) {
	var records []T
	if err := store.Read(name, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Dashboard) VeJoeUsers(minimal bool) (table.Table, error) {
	return cache.Load(d.cache, utils.ResultCacheKey("vejoe_users", minimal), func() (table.Table, error) {
		users, err := readRecords[model.VeJoeUser](d.store, DatasetVeJoeUsers)
		if err != nil {
			return table.Table{}, err
		}
		return table.VeJoeUsers(users, minimal), nil
	})
}

func (d *Dashboard) SJoeUsers(minimal bool) (table.Table, error) {
	return cache.Load(d.cache, utils.ResultCacheKey("sjoe_users", minimal), func() (table.Table, error) {
		users, err := readRecords[model.SJoeUser](d.store, DatasetSJoeUsers)
		if err != nil {
			return table.Table{}, err
		}
		return table.SJoeUsers(users, minimal), nil
	})
}

func (d *Dashboard) RJoeUsers(minimal bool) (table.Table, error) {
	return cache.Load(d.cache, utils.ResultCacheKey("rjoe_users", minimal), func() (table.Table, error) {
		users, err := readRecords[model.RJoeUser](d.store, DatasetRJoeUsers)
		if err != nil {
			return table.Table{}, err
		}
		return table.RJoeUsers(users, minimal), nil
	})
}

func (d *Dashboard) VeJoeDaySnapshots(minimal bool) (table.Table, error) {
	return cache.Load(d.cache, utils.ResultCacheKey("vejoe_day_snapshots", minimal), func() (table.Table, error) {
		snapshots, err := readRecords[model.VeJoeDaySnapshot](d.store, DatasetVeJoeDaySnapshots)
		if err != nil {
			return table.Table{}, err
		}
		return table.VeJoeDaySnapshots(snapshots, minimal), nil
	})
}

func (d *Dashboard) SJoeDaySnapshots(minimal bool) (table.Table, error) {
	return cache.Load(d.cache, utils.ResultCacheKey("sjoe_day_snapshots", minimal), func() (table.Table, error) {
		snapshots, err := readRecords[model.SJoeDaySnapshot](d.store, DatasetSJoeDaySnapshots)
		if err != nil {
			return table.Table{}, err
		}
		return table.SJoeDaySnapshots(snapshots, minimal), nil
	})
}

func (d *Dashboard) RJoeDaySnapshots(minimal bool) (table.Table, error) {
	return cache.Load(d.cache, utils.ResultCacheKey("rjoe_day_snapshots", minimal), func() (table.Table, error) {
		snapshots, err := readRecords[model.RJoeDaySnapshot](d.store, DatasetRJoeDaySnapshots)
		if err != nil {
			return table.Table{}, err
		}
		return table.RJoeDaySnapshots(snapshots, minimal), nil
	})
}

// selected 只读取选中的池，未选中的位置放空表
func (d *Dashboard) selected(pools []model.PoolType, loaders []func() (table.Table, error)) ([]table.Table, []bool, error) {
	choices := choicesOf(pools)
	tables := make([]table.Table, len(loaders))
	for i, load := range loaders {
		if !choices[i] {
			continue
		}
		t, err := load()
		if err != nil {
			return nil, nil, err
		}
		tables[i] = t
	}
	return tables, choices, nil
}

// Users 选中池的用户表
func (d *Dashboard) Users(pools []model.PoolType, minimal bool) (TitledTable, error) {
	tables, choices, err := d.selected(pools, []func() (table.Table, error){
		func() (table.Table, error) { return d.VeJoeUsers(minimal) },
		func() (table.Table, error) { return d.SJoeUsers(minimal) },
		func() (table.Table, error) { return d.RJoeUsers(minimal) },
	})
	if err != nil {
		return TitledTable{}, err
	}

	joined, err := table.Select(tables, choices)
	if err != nil {
		return TitledTable{}, err
	}
	heading, err := table.Heading(poolLabels(), choices)
	if err != nil {
		return TitledTable{}, err
	}
	return TitledTable{Heading: heading, Table: table.FillZero(joined)}, nil
}

// DaySnapshots 选中池的每日快照表，缺失值保留为空
func (d *Dashboard) DaySnapshots(pools []model.PoolType, minimal bool) (TitledTable, error) {
	tables, choices, err := d.selected(pools, []func() (table.Table, error){
		func() (table.Table, error) { return d.VeJoeDaySnapshots(minimal) },
		func() (table.Table, error) { return d.SJoeDaySnapshots(minimal) },
		func() (table.Table, error) { return d.RJoeDaySnapshots(minimal) },
	})
	if err != nil {
		return TitledTable{}, err
	}

	joined, err := table.Select(tables, choices)
	if err != nil {
		return TitledTable{}, err
	}
	heading, err := table.Heading(poolLabels(), choices)
	if err != nil {
		return TitledTable{}, err
	}
	return TitledTable{Heading: heading, Table: joined}, nil
}

// DaySnapshotSeries 某个指标在各池上的长表，用于折线图
func (d *Dashboard) DaySnapshotSeries(pools []model.PoolType, stat string) ([]table.LongRow, error) {
	snapshots, err := d.DaySnapshots(pools, true)
	if err != nil {
		return nil, err
	}
	return table.LongForm(snapshots.Table, stat), nil
}

// WarsRanking 各地址的质押、veJOE 与日奖励排名
func (d *Dashboard) WarsRanking() ([]wars.Result, error) {
	return cache.Load(d.cache, utils.ResultCacheKey("wars_ranking"), func() ([]wars.Result, error) {
		users, err := readRecords[model.VeJoeUser](d.store, DatasetVeJoeUsers)
		if err != nil {
			return nil, err
		}
		positions, err := readRecords[model.BoostedPoolUser](d.store, DatasetVeJoeBoostedPoolPositions)
		if err != nil {
			return nil, err
		}
		return wars.Compute(wars.Input{
			Users:          users,
			Positions:      positions,
			EmissionPerSec: d.emission,
			Platforms:      d.platforms,
		}), nil
	})
}

// WarsSeries 区块序列，platformsOnly 时去掉 Pool
func (d *Dashboard) WarsSeries(platformsOnly bool) ([]wars.SeriesRow, error) {
	rows, err := cache.Load(d.cache, utils.ResultCacheKey("wars_series"), func() ([]wars.SeriesRow, error) {
		observations, err := readRecords[model.WarsObservation](d.store, DatasetVeJoeWars)
		if err != nil {
			return nil, err
		}
		return wars.Series(observations), nil
	})
	if err != nil || !platformsOnly {
		return rows, err
	}
	return wars.PlatformsOnly(rows), nil
}
