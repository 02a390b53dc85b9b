package wars

import (
	"sort"

	"joe-analytics/internal/worker/model"
	"joe-analytics/pkg/utils"

	"github.com/shopspring/decimal"
)

// SeriesRow 某个区块高度下一个平台的质押量和累计 veJOE，尚无记录时为 null
type SeriesRow struct {
	BlockNumber uint64              `json:"block_number"`
	Platform    string              `json:"platform"`
	TotalStake  decimal.NullDecimal `json:"total_stake"`
	TotalReward decimal.NullDecimal `json:"total_reward"`
}

// Series 展开区块序列，按区块升序，同一区块内平台按名称排序且 Pool 排最后
func Series(observations []model.WarsObservation) []SeriesRow {
	var rows []SeriesRow
	for _, obs := range observations {
		for _, entry := range obs {
			row := SeriesRow{BlockNumber: entry.BlockNumber, Platform: entry.Platform}
			if entry.User != nil {
				row.TotalStake = decimal.NewNullDecimal(utils.AdjustDecimals(entry.User.TotalStake, model.JoeDecimals))
				row.TotalReward = decimal.NewNullDecimal(utils.AdjustDecimals(entry.User.TotalReward, model.VeJoeDecimals))
			}
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].BlockNumber != rows[j].BlockNumber {
			return rows[i].BlockNumber < rows[j].BlockNumber
		}
		pi, pj := rows[i].Platform == model.PoolLabel, rows[j].Platform == model.PoolLabel
		if pi != pj {
			return pj
		}
		return rows[i].Platform < rows[j].Platform
	})
	return rows
}

// PlatformsOnly 去掉 Pool 行
func PlatformsOnly(rows []SeriesRow) []SeriesRow {
	out := make([]SeriesRow, 0, len(rows))
	for _, row := range rows {
		if row.Platform != model.PoolLabel {
			out = append(out, row)
		}
	}
	return out
}
