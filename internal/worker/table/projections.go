package table

import (
	"sort"
	"time"

	"joe-analytics/internal/worker/model"
	"joe-analytics/pkg/utils"

	"github.com/shopspring/decimal"
)

// 指标名称
const (
	StatTotalJoeStake          = "total_JOE_stake"
	StatTotalJoeDepositFee     = "total_JOE_deposit_fee"
	StatVeJoeBalance           = "veJOE_balance"
	StatRJoeBalance            = "rJOE_balance"
	StatDepositCount           = "deposit_count"
	StatWithdrawCount          = "withdraw_count"
	StatClaimCount             = "claim_count"
	StatEmergencyWithdrawCount = "emergency_withdraw_count"
	StatTotalVeJoeReward       = "total_veJOE_reward"
	StatTotalRJoeReward        = "total_rJOE_reward"
	StatTotalJoeFee            = "total_JOE_fee"
	StatChangeJoeStake         = "change_JOE_stake"
	StatChangeVeJoeReward      = "change_veJOE_reward"
	StatChangeRJoeReward       = "change_rJOE_reward"
	StatChangeJoeFee           = "change_JOE_fee"
	StatTotalUserCount         = "total_user_count"
	StatActiveUserCount        = "active_user_count"

	// sJOE 多币种奖励列前缀，完整指标名为 <prefix>.<SYMBOL>
	StatTotalRewardsPrefix  = "total_rewards"
	StatChangeRewardsPrefix = "change_in_rewards"
)

const dateLayout = "2006-01-02"

// builder 逐行构建单个池的表格
type builder struct {
	pool  model.PoolType
	table Table
	known map[string]bool
}

func newBuilder(index string, pool model.PoolType, stats ...string) *builder {
	b := &builder{pool: pool, table: Table{Index: index}, known: make(map[string]bool)}
	for _, s := range stats {
		b.column(s)
	}
	return b
}

func (b *builder) column(stat string) ColumnKey {
	col := ColumnKey{Pool: b.pool, Stat: stat}
	if !b.known[stat] {
		b.known[stat] = true
		b.table.Columns = append(b.table.Columns, col)
	}
	return col
}

func (b *builder) row(key string, values map[string]decimal.Decimal) {
	row := Row{Key: key, Values: make(map[ColumnKey]decimal.Decimal, len(values))}
	for stat, v := range values {
		row.Values[b.column(stat)] = v
	}
	b.table.Rows = append(b.table.Rows, row)
}

// build 固定列在前，动态奖励列按名称排序在后，行按 key 升序
func (b *builder) build(fixed int) Table {
	dynamic := b.table.Columns[fixed:]
	sort.Slice(dynamic, func(i, j int) bool { return dynamic[i].Stat < dynamic[j].Stat })
	sort.SliceStable(b.table.Rows, func(i, j int) bool { return b.table.Rows[i].Key < b.table.Rows[j].Key })
	return b.table
}

func joe(raw decimal.Decimal) decimal.Decimal {
	return utils.AdjustDecimals(raw, model.JoeDecimals)
}

func rewardAmount(raw decimal.Decimal, token model.RewardToken) decimal.Decimal {
	return utils.AdjustDecimals(raw, int32(token.Decimals.IntPart()))
}

func dateKey(periodStartUnix int64) string {
	return time.Unix(periodStartUnix, 0).UTC().Format(dateLayout)
}

// VeJoeUsers veJOE 用户表
func VeJoeUsers(users []model.VeJoeUser, minimal bool) Table {
	stats := []string{StatTotalJoeStake, StatVeJoeBalance, StatDepositCount, StatWithdrawCount, StatClaimCount}
	b := newBuilder(IndexAddress, model.PoolVeJoe, stats...)
	for _, u := range users {
		b.row(utils.NormalizeAddress(u.ID), map[string]decimal.Decimal{
			StatTotalJoeStake: joe(u.TotalStake),
			StatVeJoeBalance:  utils.AdjustDecimals(u.TotalReward, model.VeJoeDecimals),
			StatDepositCount:  u.DepositCount,
			StatWithdrawCount: u.WithdrawCount,
			StatClaimCount:    u.ClaimCount,
		})
	}
	t := b.build(len(stats))
	if minimal {
		t = t.Drop(model.PoolVeJoe, StatDepositCount, StatWithdrawCount, StatClaimCount)
	}
	return t
}

// SJoeUsers sJOE 用户表，每个奖励币种一列，缺失补 0
func SJoeUsers(users []model.SJoeUser, minimal bool) Table {
	stats := []string{StatTotalJoeStake, StatTotalJoeDepositFee, StatDepositCount, StatWithdrawCount, StatClaimCount}
	b := newBuilder(IndexAddress, model.PoolSJoe, stats...)
	for _, u := range users {
		values := map[string]decimal.Decimal{
			StatTotalJoeStake:      joe(u.TotalStake),
			StatTotalJoeDepositFee: joe(u.TotalFee),
			StatDepositCount:       u.DepositCount,
			StatWithdrawCount:      u.WithdrawCount,
			StatClaimCount:         u.ClaimCount,
		}
		for _, r := range u.Rewards {
			values[StatTotalRewardsPrefix+"."+r.RewardToken.Symbol] = rewardAmount(r.TotalReward, r.RewardToken)
		}
		b.row(utils.NormalizeAddress(u.ID), values)
	}
	t := b.build(len(stats))

	for _, col := range t.Columns[len(stats):] {
		for _, row := range t.Rows {
			if _, ok := row.Values[col]; !ok {
				row.Values[col] = decimal.Zero
			}
		}
	}
	if minimal {
		t = t.Drop(model.PoolSJoe, StatTotalJoeDepositFee, StatDepositCount, StatWithdrawCount, StatClaimCount)
	}
	return t
}

// RJoeUsers rJOE 用户表
func RJoeUsers(users []model.RJoeUser, minimal bool) Table {
	stats := []string{StatTotalJoeStake, StatRJoeBalance, StatDepositCount, StatWithdrawCount}
	b := newBuilder(IndexAddress, model.PoolRJoe, stats...)
	for _, u := range users {
		b.row(utils.NormalizeAddress(u.ID), map[string]decimal.Decimal{
			StatTotalJoeStake: joe(u.TotalStake),
			StatRJoeBalance:   utils.AdjustDecimals(u.TotalReward, model.RJoeDecimals),
			StatDepositCount:  u.DepositCount,
			StatWithdrawCount: u.WithdrawCount,
		})
	}
	t := b.build(len(stats))
	if minimal {
		t = t.Drop(model.PoolRJoe, StatDepositCount, StatWithdrawCount, StatRJoeBalance)
	}
	return t
}

// VeJoeDaySnapshots veJOE 每日快照表
func VeJoeDaySnapshots(snapshots []model.VeJoeDaySnapshot, minimal bool) Table {
	stats := []string{
		StatTotalJoeStake, StatTotalVeJoeReward, StatChangeJoeStake, StatChangeVeJoeReward,
		StatTotalUserCount, StatActiveUserCount, StatDepositCount, StatWithdrawCount, StatClaimCount,
	}
	b := newBuilder(IndexDate, model.PoolVeJoe, stats...)
	for _, s := range snapshots {
		b.row(dateKey(s.PeriodStartUnix), map[string]decimal.Decimal{
			StatTotalJoeStake:     joe(s.TotalStake),
			StatTotalVeJoeReward:  utils.AdjustDecimals(s.TotalReward, model.VeJoeDecimals),
			StatChangeJoeStake:    joe(s.ChangeInStake),
			StatChangeVeJoeReward: utils.AdjustDecimals(s.ChangeInReward, model.VeJoeDecimals),
			StatTotalUserCount:    s.TotalUserCount,
			StatActiveUserCount:   s.ActiveUserCount,
			StatDepositCount:      s.DepositCount,
			StatWithdrawCount:     s.WithdrawCount,
			StatClaimCount:        s.ClaimCount,
		})
	}
	t := b.build(len(stats))
	if minimal {
		t = t.Drop(model.PoolVeJoe, StatDepositCount, StatWithdrawCount, StatClaimCount)
	}
	return t
}

// SJoeDaySnapshots sJOE 每日快照表，奖励按币种展开为 total_rewards.<SYMBOL> 与 change_in_rewards.<SYMBOL>
func SJoeDaySnapshots(snapshots []model.SJoeDaySnapshot, minimal bool) Table {
	stats := []string{
		StatTotalJoeStake, StatTotalJoeFee, StatChangeJoeStake, StatChangeJoeFee,
		StatTotalUserCount, StatActiveUserCount, StatDepositCount, StatWithdrawCount,
		StatEmergencyWithdrawCount, StatClaimCount,
	}
	b := newBuilder(IndexDate, model.PoolSJoe, stats...)
	for _, s := range snapshots {
		values := map[string]decimal.Decimal{
			StatTotalJoeStake:          joe(s.TotalStake),
			StatTotalJoeFee:            joe(s.TotalFee),
			StatChangeJoeStake:         joe(s.ChangeInStake),
			StatChangeJoeFee:           joe(s.ChangeInFee),
			StatTotalUserCount:         s.TotalUserCount,
			StatActiveUserCount:        s.ActiveUserCount,
			StatDepositCount:           s.DepositCount,
			StatWithdrawCount:          s.WithdrawCount,
			StatEmergencyWithdrawCount: s.EmergencyWithdrawCount,
			StatClaimCount:             s.ClaimCount,
		}
		for _, r := range s.Rewards {
			values[StatTotalRewardsPrefix+"."+r.RewardToken.Symbol] = rewardAmount(r.TotalReward, r.RewardToken)
			values[StatChangeRewardsPrefix+"."+r.RewardToken.Symbol] = rewardAmount(r.ChangeInReward, r.RewardToken)
		}
		b.row(dateKey(s.PeriodStartUnix), values)
	}
	t := b.build(len(stats))
	if minimal {
		t = t.Drop(model.PoolSJoe, StatDepositCount, StatWithdrawCount, StatClaimCount, StatEmergencyWithdrawCount)
	}
	return t
}

// RJoeDaySnapshots rJOE 每日快照表
func RJoeDaySnapshots(snapshots []model.RJoeDaySnapshot, minimal bool) Table {
	stats := []string{
		StatTotalJoeStake, StatTotalRJoeReward, StatChangeJoeStake, StatChangeRJoeReward,
		StatTotalUserCount, StatActiveUserCount, StatDepositCount, StatWithdrawCount,
	}
	b := newBuilder(IndexDate, model.PoolRJoe, stats...)
	for _, s := range snapshots {
		b.row(dateKey(s.PeriodStartUnix), map[string]decimal.Decimal{
			StatTotalJoeStake:    joe(s.TotalStake),
			StatTotalRJoeReward:  utils.AdjustDecimals(s.TotalReward, model.RJoeDecimals),
			StatChangeJoeStake:   joe(s.ChangeInStake),
			StatChangeRJoeReward: utils.AdjustDecimals(s.ChangeInReward, model.RJoeDecimals),
			StatTotalUserCount:   s.TotalUserCount,
			StatActiveUserCount:  s.ActiveUserCount,
			StatDepositCount:     s.DepositCount,
			StatWithdrawCount:    s.WithdrawCount,
		})
	}
	t := b.build(len(stats))
	if minimal {
		t = t.Drop(model.PoolRJoe, StatDepositCount, StatWithdrawCount, StatTotalRJoeReward, StatChangeRJoeReward)
	}
	return t
}
