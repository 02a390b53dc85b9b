package wars

import (
	"sort"

	"joe-analytics/internal/worker/model"
	"joe-analytics/pkg/utils"

	"github.com/shopspring/decimal"
)

const SecondsPerDay = 86400

var basisPoints = decimal.NewFromInt(10000)

// Input wars 计算输入，Platforms 为 小写地址 -> 平台名称
type Input struct {
	Users          []model.VeJoeUser
	Positions      []model.BoostedPoolUser
	EmissionPerSec decimal.Decimal
	Platforms      map[string]string
}

// PoolRow 一个 (地址, pid) 的中间结果
type PoolRow struct {
	Address        string
	PID            string
	LpToken        string
	UserLiquidity  decimal.Decimal
	TotalLiquidity decimal.Decimal
	AllocPoint     decimal.Decimal
	ShareBp        decimal.Decimal
	VeJoeBalance   decimal.Decimal
	UserFactor     decimal.Decimal
	TotalFactor    decimal.Decimal
	FactorRatio    decimal.Decimal
	LiquidityRatio decimal.Decimal
	BoostedRate    decimal.Decimal // 每秒
	BaseRate       decimal.Decimal // 每秒
}

// Metric 带排名和占比的指标
type Metric struct {
	Value      decimal.Decimal `json:"value"`
	Rank       int             `json:"rank"`
	Percentage string          `json:"percentage"`
}

// Result 每个地址一行，Address 已替换为平台名称 (如有)，Wallet 保留原地址
type Result struct {
	Address      string `json:"address"`
	Wallet       string `json:"wallet"`
	Stake        Metric `json:"joe_stake"`
	VeJoeBalance Metric `json:"vejoe_balance"`
	DailyReward  Metric `json:"daily_joe_reward"`
}

type account struct {
	stake   decimal.Decimal
	balance decimal.Decimal
}

func accounts(users []model.VeJoeUser) map[string]account {
	byAddress := make(map[string]account, len(users))
	for _, u := range users {
		byAddress[utils.NormalizeAddress(u.ID)] = account{
			stake:   utils.AdjustDecimals(u.TotalStake, model.JoeDecimals),
			balance: utils.AdjustDecimals(u.TotalReward, model.VeJoeDecimals),
		}
	}
	return byAddress
}

// Allocate 计算每个 (地址, pid) 行的 boosted / base 每秒奖励
func Allocate(in Input) []PoolRow {
	byAddress := accounts(in.Users)

	var rows []PoolRow
	for _, user := range in.Positions {
		address := utils.NormalizeAddress(user.ID)
		for _, pos := range user.BoostedPoolPositions {
			balance := byAddress[address].balance
			rows = append(rows, PoolRow{
				Address:        address,
				PID:            pos.BoostedPool.ID,
				LpToken:        pos.BoostedPool.LpToken,
				UserLiquidity:  pos.TotalAmount,
				TotalLiquidity: pos.BoostedPool.TotalAmount,
				AllocPoint:     pos.BoostedPool.AllocPoint,
				ShareBp:        pos.BoostedPool.VeJoeShareBp,
				VeJoeBalance:   balance,
				UserFactor:     utils.Sqrt(balance.Mul(pos.TotalAmount)),
			})
		}
	}

	totalFactor := make(map[string]decimal.Decimal)
	allocByPool := make(map[string]decimal.Decimal)
	for _, row := range rows {
		totalFactor[row.PID] = totalFactor[row.PID].Add(row.UserFactor)
		if _, ok := allocByPool[row.PID]; !ok {
			allocByPool[row.PID] = row.AllocPoint
		}
	}

	// 每个池只计一次
	totalAlloc := decimal.Zero
	for _, alloc := range allocByPool {
		totalAlloc = totalAlloc.Add(alloc)
	}

	for i := range rows {
		row := &rows[i]
		row.TotalFactor = totalFactor[row.PID]
		row.FactorRatio = utils.SafeDiv(row.UserFactor, row.TotalFactor)
		row.LiquidityRatio = utils.SafeDiv(row.UserLiquidity, row.TotalLiquidity)

		poolRate := in.EmissionPerSec.Mul(utils.SafeDiv(row.AllocPoint, totalAlloc))
		boostShare := utils.SafeDiv(row.ShareBp, basisPoints)
		baseShare := utils.SafeDiv(basisPoints.Sub(row.ShareBp), basisPoints)

		row.BoostedRate = poolRate.Mul(boostShare).Mul(row.FactorRatio)
		row.BaseRate = poolRate.Mul(baseShare).Mul(row.LiquidityRatio)
	}
	return rows
}

// Compute 合并为每个地址一行，附加排名、占比和平台名称
func Compute(in Input) []Result {
	byAddress := accounts(in.Users)
	rows := Allocate(in)

	perSec := make(map[string]decimal.Decimal, len(byAddress))
	for address := range byAddress {
		perSec[address] = decimal.Zero
	}
	for _, row := range rows {
		perSec[row.Address] = perSec[row.Address].Add(row.BoostedRate).Add(row.BaseRate)
	}

	addresses := make([]string, 0, len(perSec))
	for address := range perSec {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	day := decimal.NewFromInt(SecondsPerDay)
	results := make([]Result, len(addresses))
	for i, address := range addresses {
		acc := byAddress[address]
		label := address
		if platform, ok := in.Platforms[address]; ok {
			label = platform
		}
		results[i] = Result{
			Address:      label,
			Wallet:       address,
			Stake:        Metric{Value: acc.stake},
			VeJoeBalance: Metric{Value: acc.balance},
			DailyReward:  Metric{Value: perSec[address].Mul(day)},
		}
	}

	annotate(results, func(r *Result) *Metric { return &r.Stake })
	annotate(results, func(r *Result) *Metric { return &r.VeJoeBalance })
	annotate(results, func(r *Result) *Metric { return &r.DailyReward })
	return results
}

// annotate 降序排名，并列取最小名次；占比保留三位小数
func annotate(results []Result, metric func(*Result) *Metric) {
	values := make([]decimal.Decimal, len(results))
	total := decimal.Zero
	for i := range results {
		values[i] = metric(&results[i]).Value
		total = total.Add(values[i])
	}

	ranks := RankMin(values)
	for i := range results {
		m := metric(&results[i])
		m.Rank = ranks[i]
		m.Percentage = utils.FormatPercent(utils.SafeDiv(m.Value, total))
	}
}

// RankMin 降序排名，相同的值共享最小名次，例如 [100, 100, 50] -> [1, 1, 3]
func RankMin(values []decimal.Decimal) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]].GreaterThan(values[order[b]])
	})

	ranks := make([]int, len(values))
	for pos, idx := range order {
		if pos > 0 && values[idx].Equal(values[order[pos-1]]) {
			ranks[idx] = ranks[order[pos-1]]
			continue
		}
		ranks[idx] = pos + 1
	}
	return ranks
}
