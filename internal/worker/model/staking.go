package model

import "github.com/shopspring/decimal"

// 链上精度
const (
	JoeDecimals   int32 = 18
	VeJoeDecimals int32 = 18
	RJoeDecimals  int32 = 18
)

// VeJoeUser veJOE 池中的用户仓位，数值为原始整数
type VeJoeUser struct {
	ID            string          `json:"id"`
	TotalStake    decimal.Decimal `json:"totalStake"`
	TotalReward   decimal.Decimal `json:"totalReward"` // 当前 veJOE 余额
	DepositCount  decimal.Decimal `json:"depositCount"`
	WithdrawCount decimal.Decimal `json:"withdrawCount"`
	ClaimCount    decimal.Decimal `json:"claimCount"`
}

type RewardToken struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Symbol   string          `json:"symbol"`
	Decimals decimal.Decimal `json:"decimals"`
}

// TokenReward sJOE 的多币种奖励，按各自 token 精度缩放
type TokenReward struct {
	RewardToken    RewardToken     `json:"rewardToken"`
	TotalReward    decimal.Decimal `json:"totalReward"`
	ChangeInReward decimal.Decimal `json:"changeInReward"`
}

type SJoeUser struct {
	ID            string          `json:"id"`
	TotalStake    decimal.Decimal `json:"totalStake"`
	TotalFee      decimal.Decimal `json:"totalFee"`
	Rewards       []TokenReward   `json:"rewards"`
	DepositCount  decimal.Decimal `json:"depositCount"`
	WithdrawCount decimal.Decimal `json:"withdrawCount"`
	ClaimCount    decimal.Decimal `json:"claimCount"`
}

type RJoeUser struct {
	ID            string          `json:"id"`
	TotalStake    decimal.Decimal `json:"totalStake"`
	TotalReward   decimal.Decimal `json:"totalReward"` // rJOE 余额
	DepositCount  decimal.Decimal `json:"depositCount"`
	WithdrawCount decimal.Decimal `json:"withdrawCount"`
}

// BoostedPool 池级别的汇总数据
type BoostedPool struct {
	ID           string          `json:"id"`
	LpToken      string          `json:"lpToken"`
	AllocPoint   decimal.Decimal `json:"allocPoint"`
	VeJoeShareBp decimal.Decimal `json:"veJoeShareBp"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
}

type BoostedPoolPosition struct {
	BoostedPool BoostedPool     `json:"boostedPool"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// BoostedPoolUser 用户在各个 boosted pool 中的流动性
type BoostedPoolUser struct {
	ID                   string                `json:"id"`
	BoostedPoolPositions []BoostedPoolPosition `json:"boostedPoolPositions"`
}

type VeJoeDaySnapshot struct {
	ID              string          `json:"id"`
	PeriodStartUnix int64           `json:"periodStartUnix"`
	TotalStake      decimal.Decimal `json:"totalStake"`
	ChangeInStake   decimal.Decimal `json:"changeInStake"`
	TotalReward     decimal.Decimal `json:"totalReward"`
	ChangeInReward  decimal.Decimal `json:"changeInReward"`
	TotalUserCount  decimal.Decimal `json:"totalUserCount"`
	ActiveUserCount decimal.Decimal `json:"activeUserCount"`
	DepositCount    decimal.Decimal `json:"depositCount"`
	WithdrawCount   decimal.Decimal `json:"withdrawCount"`
	ClaimCount      decimal.Decimal `json:"claimCount"`
}

type SJoeDaySnapshot struct {
	ID                     string          `json:"id"`
	DayIndex               decimal.Decimal `json:"dayIndex"`
	PeriodStartUnix        int64           `json:"periodStartUnix"`
	TotalStake             decimal.Decimal `json:"totalStake"`
	ChangeInStake          decimal.Decimal `json:"changeInStake"`
	TotalFee               decimal.Decimal `json:"totalFee"`
	ChangeInFee            decimal.Decimal `json:"changeInFee"`
	Rewards                []TokenReward   `json:"rewards"`
	TotalUserCount         decimal.Decimal `json:"totalUserCount"`
	ActiveUserCount        decimal.Decimal `json:"activeUserCount"`
	DepositCount           decimal.Decimal `json:"depositCount"`
	WithdrawCount          decimal.Decimal `json:"withdrawCount"`
	EmergencyWithdrawCount decimal.Decimal `json:"emergencyWithdrawCount"`
	ClaimCount             decimal.Decimal `json:"claimCount"`
}

type RJoeDaySnapshot struct {
	ID              string          `json:"id"`
	PeriodStartUnix int64           `json:"periodStartUnix"`
	TotalStake      decimal.Decimal `json:"totalStake"`
	ChangeInStake   decimal.Decimal `json:"changeInStake"`
	TotalReward     decimal.Decimal `json:"totalReward"`
	ChangeInReward  decimal.Decimal `json:"changeInReward"`
	TotalUserCount  decimal.Decimal `json:"totalUserCount"`
	ActiveUserCount decimal.Decimal `json:"activeUserCount"`
	DepositCount    decimal.Decimal `json:"depositCount"`
	WithdrawCount   decimal.Decimal `json:"withdrawCount"`
}

// GetID 记录主键
func (u VeJoeUser) GetID() string        { return u.ID }
func (u SJoeUser) GetID() string         { return u.ID }
func (u RJoeUser) GetID() string         { return u.ID }
func (u BoostedPoolUser) GetID() string  { return u.ID }
func (s VeJoeDaySnapshot) GetID() string { return s.ID }
func (s SJoeDaySnapshot) GetID() string  { return s.ID }
func (s RJoeDaySnapshot) GetID() string  { return s.ID }
