package service

import "joe-analytics/pkg/subgraph"

const (
	veJoeUserFields = `id
totalStake
totalReward
depositCount
withdrawCount
claimCount`

	sJoeUserFields = `id
totalStake
totalFee
rewards {
  rewardToken { id name symbol decimals }
  totalReward
}
depositCount
withdrawCount
claimCount`

	rJoeUserFields = `id
totalStake
totalReward
depositCount
withdrawCount`

	boostedPoolPositionFields = `id
boostedPoolPositions(first: 1000) {
  boostedPool { id lpToken allocPoint veJoeShareBp totalAmount }
  totalAmount
}`

	veJoeDaySnapshotFields = `id
periodStartUnix
totalStake
changeInStake
totalReward
changeInReward
totalUserCount
activeUserCount
depositCount
withdrawCount
claimCount`

	sJoeDaySnapshotFields = `id
dayIndex
periodStartUnix
totalStake
changeInStake
totalFee
changeInFee
rewards {
  rewardToken { id name symbol decimals }
  totalReward
  changeInReward
}
totalUserCount
activeUserCount
depositCount
withdrawCount
emergencyWithdrawCount
claimCount`

	rJoeDaySnapshotFields = `id
periodStartUnix
totalStake
changeInStake
totalReward
changeInReward
totalUserCount
activeUserCount
depositCount
withdrawCount`

	// 按区块查询 wars 观测
	warsAccountFields = "id totalStake totalReward"
)

func usersQuery(name, fields string) subgraph.PageQuery {
	return subgraph.PageQuery{
		Name:       name,
		Entity:     "users",
		Fields:     fields,
		OrderKey:   "id",
		CursorType: subgraph.CursorID,
	}
}

func daySnapshotsQuery(fields string) subgraph.PageQuery {
	return subgraph.PageQuery{
		Name:       "getDaySnapshots",
		Entity:     "daySnapshots",
		Fields:     fields,
		OrderKey:   "periodStartUnix",
		CursorType: subgraph.CursorInt,
	}
}
