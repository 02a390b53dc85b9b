package model

import "github.com/shopspring/decimal"

// PoolLabel wars 序列中保留给池整体的标签
const PoolLabel = "Pool"

// WarsAccount 某个区块高度下用户或池的质押状态
type WarsAccount struct {
	ID          string          `json:"id"`
	TotalStake  decimal.Decimal `json:"totalStake"`
	TotalReward decimal.Decimal `json:"totalReward"`
}

// WarsEntry 单个平台 (或 Pool) 在某个区块的观测，User 为 nil 表示该高度下尚无记录
type WarsEntry struct {
	BlockNumber uint64       `json:"block_number"`
	Platform    string       `json:"platform"`
	Address     *string      `json:"address"`
	User        *WarsAccount `json:"user"`
}

// WarsObservation 同一区块下 平台标签 -> 观测
type WarsObservation map[string]WarsEntry

// BlockNumber 以 Pool 条目的区块号为准
func (o WarsObservation) BlockNumber() (uint64, bool) {
	entry, ok := o[PoolLabel]
	if !ok {
		return 0, false
	}
	return entry.BlockNumber, true
}
