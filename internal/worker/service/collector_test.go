package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"joe-analytics/internal/worker/model"
	"joe-analytics/pkg/subgraph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetsOrder(t *testing.T) {
	s := NewCollectorService(newFakeRepo(t), testConfig(), nopLogger())

	var names []string
	for _, ds := range s.Datasets() {
		names = append(names, ds.Name)
		if ds.Name == DatasetVeJoeWars {
			assert.Nil(t, ds.Fetch)
			assert.NotNil(t, ds.Append)
		} else {
			assert.NotNil(t, ds.Fetch)
		}
	}
	assert.Equal(t, []string{
		"vejoe_get_all_users",
		"vejoe_get_all_users_boosted_pool_positions",
		"sjoe_get_all_users",
		"rjoe_get_all_users",
		"vejoe_get_all_day_snapshots",
		"sjoe_get_all_day_snapshots",
		"rjoe_get_all_day_snapshots",
		"vejoe_wars",
	}, names)
}

func TestFetchVeJoeUsersKeepsRecords(t *testing.T) {
	repo := newFakeRepo(t)
	repo.vejoe.pages["users"] = []json.RawMessage{
		raw(`{"id":"0xa","totalStake":"1","totalReward":"2","depositCount":"1","withdrawCount":"0","claimCount":"0"}`),
	}
	s := NewCollectorService(repo, testConfig(), nopLogger())

	records, err := s.FetchVeJoeUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, repo.vejoe.pages["users"][0], records[0])

	q := repo.vejoe.queries[0]
	assert.Equal(t, "users", q.Entity)
	assert.Equal(t, "id", q.OrderKey)
	assert.Equal(t, subgraph.CursorID, q.CursorType)
}

func TestFetchDaySnapshotsUsesIntCursor(t *testing.T) {
	repo := newFakeRepo(t)
	repo.sjoe.pages["daySnapshots"] = []json.RawMessage{raw(`{"id":"1","periodStartUnix":1640995200,"rewards":[]}`)}
	s := NewCollectorService(repo, testConfig(), nopLogger())

	_, err := s.FetchSJoeDaySnapshots(context.Background())
	require.NoError(t, err)
	q := repo.sjoe.queries[0]
	assert.Equal(t, "periodStartUnix", q.OrderKey)
	assert.Equal(t, subgraph.CursorInt, q.CursorType)
}

func TestFetchRejectsMalformedRecords(t *testing.T) {
	repo := newFakeRepo(t)
	s := NewCollectorService(repo, testConfig(), nopLogger())

	repo.rjoe.pages["users"] = []json.RawMessage{raw(`{"id":"0xa","totalStake":"not-a-number"}`)}
	_, err := s.FetchRJoeUsers(context.Background())
	assert.ErrorContains(t, err, "malformed")

	repo.rjoe.pages["users"] = []json.RawMessage{raw(`{"totalStake":"1"}`)}
	_, err = s.FetchRJoeUsers(context.Background())
	assert.ErrorContains(t, err, "has no id")
}

func TestFetchTransportFailure(t *testing.T) {
	repo := newFakeRepo(t)
	repo.boosted.err = errUpstream
	s := NewCollectorService(repo, testConfig(), nopLogger())

	_, err := s.FetchBoostedPoolPositions(context.Background())
	var fetchErr *subgraph.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "boosted_pools", fetchErr.Source)
}

func TestWarsAtBlock(t *testing.T) {
	repo := newFakeRepo(t)
	repo.vejoe.atBlock = func(entity, id string, block uint64) json.RawMessage {
		switch {
		case entity == "pool":
			return raw(`{"id":"%s","totalStake":"900","totalReward":"10"}`, id)
		case id == "0xe7462905b79370389e8180e300f58f63d35b725f":
			return raw(`{"id":"%s","totalStake":"100","totalReward":"1"}`, id)
		default:
			return nil
		}
	}
	s := NewCollectorService(repo, testConfig(), nopLogger())

	obs, err := s.WarsAtBlock(context.Background(), 12200000)
	require.NoError(t, err)
	require.Len(t, obs, 3)

	yak := obs["YieldYak"]
	assert.Equal(t, uint64(12200000), yak.BlockNumber)
	require.NotNil(t, yak.Address)
	assert.Equal(t, "0xe7462905b79370389e8180e300f58f63d35b725f", *yak.Address)
	require.NotNil(t, yak.User)
	assert.Equal(t, "100", yak.User.TotalStake.String())

	assert.Nil(t, obs["Beefy"].User)

	pool := obs[model.PoolLabel]
	assert.Nil(t, pool.Address)
	require.NotNil(t, pool.User)
	assert.Equal(t, "0x25d85e17dd9e544f6e9f8d44f99602dbf5a97341", pool.User.ID)
}

func TestSeedWarsSeries(t *testing.T) {
	repo := newFakeRepo(t)
	s := NewCollectorService(repo, testConfig(), nopLogger())

	seeded, err := s.SeedWarsSeries(context.Background())
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, []uint64{12200000, 12210000, 12220000}, repo.vejoe.blocks)

	var series []model.WarsObservation
	require.NoError(t, repo.store.Read(DatasetVeJoeWars, &series))
	assert.Len(t, series, 3)

	seeded, err = s.SeedWarsSeries(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Len(t, repo.vejoe.blocks, 3)
}

func TestWarsAtBlocksRejectsZeroStep(t *testing.T) {
	s := NewCollectorService(newFakeRepo(t), testConfig(), nopLogger())
	_, err := s.WarsAtBlocks(context.Background(), 1, 10, 0)
	assert.Error(t, err)
}
