package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/dao"
	"joe-analytics/internal/worker/model"
	"joe-analytics/internal/worker/repository"
	"joe-analytics/internal/worker/service"
	"joe-analytics/pkg/logger"
	"joe-analytics/pkg/subgraph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubClient struct {
	name  string
	err   error
	panic bool

	mu     sync.Mutex
	blocks []uint64
}

func (c *stubClient) Name() string { return c.name }

func (c *stubClient) FetchAll(ctx context.Context, q subgraph.PageQuery) ([]json.RawMessage, error) {
	if c.panic {
		panic("unexpected payload shape")
	}
	if c.err != nil {
		return nil, &subgraph.FetchError{Source: c.name, Entity: q.Entity, Err: c.err}
	}
	return []json.RawMessage{
		json.RawMessage(fmt.Sprintf(`{"id":"%s-1","periodStartUnix":1640995200}`, c.name)),
		json.RawMessage(fmt.Sprintf(`{"id":"%s-2","periodStartUnix":1641081600}`, c.name)),
	}, nil
}

func (c *stubClient) QueryAtBlock(ctx context.Context, entity, id, fields string, block uint64) (json.RawMessage, error) {
	if c.err != nil {
		return nil, c.err
	}
	if entity == "pool" {
		c.mu.Lock()
		c.blocks = append(c.blocks, block)
		c.mu.Unlock()
	}
	return json.RawMessage(fmt.Sprintf(`{"id":"%s","totalStake":"%d","totalReward":"0"}`, id, block)), nil
}

type stubRepo struct {
	clients map[string]*stubClient
	store   dao.SnapshotDAO
}

func (r *stubRepo) GetVeJoeClient() repository.SubgraphClient { return r.clients[config.SourceVeJoe] }
func (r *stubRepo) GetSJoeClient() repository.SubgraphClient  { return r.clients[config.SourceSJoe] }
func (r *stubRepo) GetRJoeClient() repository.SubgraphClient  { return r.clients[config.SourceRJoe] }
func (r *stubRepo) GetBoostedPoolsClient() repository.SubgraphClient {
	return r.clients[config.SourceBoostedPools]
}
func (r *stubRepo) GetSnapshotDAO() dao.SnapshotDAO { return r.store }
func (r *stubRepo) Close() error                    { return nil }

func newStubRepo(t *testing.T) *stubRepo {
	t.Helper()
	clients := make(map[string]*stubClient)
	for _, name := range []string{config.SourceVeJoe, config.SourceSJoe, config.SourceRJoe, config.SourceBoostedPools} {
		clients[name] = &stubClient{name: name}
	}
	return &stubRepo{clients: clients, store: dao.NewSnapshotDAO(t.TempDir())}
}

func warsConfig() config.Config {
	return config.Config{
		Wars: config.WarsConfig{
			EmissionPerSec: "1833719582850521436",
			TokenDecimals:  18,
			PoolAddress:    "0x25D85E17dD9e544F6E9F8D44F99602dbF5a97341",
			Platforms: []config.PlatformConfig{
				{Label: "YieldYak", Address: "0xe7462905B79370389e8180E300F58f63D35B725F"},
			},
			BackfillFrom: 12200000,
			BackfillTo:   12220000,
			BackfillStep: 10000,
			AppendStep:   1000,
		},
	}
}

func newRefresh(repo *stubRepo) *SnapshotRefresh {
	cfg := warsConfig()
	collector := service.NewCollectorService(repo, cfg, zap.NewNop())
	return NewSnapshotRefresh(collector, repo.store, cfg.Wars, zap.NewNop())
}

func byDataset(results []RefreshResult) map[string]RefreshResult {
	out := make(map[string]RefreshResult, len(results))
	for _, r := range results {
		out[r.Dataset] = r
	}
	return out
}

func readSeries(t *testing.T, store dao.SnapshotDAO) []model.WarsObservation {
	t.Helper()
	var series []model.WarsObservation
	require.NoError(t, store.Read(service.DatasetVeJoeWars, &series))
	return series
}

func TestRefreshSeedsThenAppends(t *testing.T) {
	repo := newStubRepo(t)
	j := newRefresh(repo)

	results := j.Refresh(context.Background())
	require.Len(t, results, 8)
	for _, r := range results {
		assert.NoError(t, r.Err, r.Dataset)
	}
	require.NoError(t, j.SeedErr())

	wars := byDataset(results)[service.DatasetVeJoeWars]
	assert.Equal(t, uint64(12211000), wars.Block)
	assert.Equal(t, []uint64{12200000, 12210000, 12211000}, repo.clients[config.SourceVeJoe].blocks)

	users := byDataset(results)[service.DatasetSJoeUsers]
	assert.Equal(t, 2, users.Records)
	assert.True(t, repo.store.Exists(service.DatasetSJoeUsers))

	// 第二轮不再回填，只追加一个区块
	results = j.Refresh(context.Background())
	assert.Equal(t, uint64(12212000), byDataset(results)[service.DatasetVeJoeWars].Block)

	series := readSeries(t, repo.store)
	require.Len(t, series, 4)
	block, ok := series[3].BlockNumber()
	require.True(t, ok)
	assert.Equal(t, uint64(12212000), block)
}

func TestRefreshSkipsSeedWhenSeriesExists(t *testing.T) {
	repo := newStubRepo(t)
	existing := []model.WarsObservation{{
		model.PoolLabel: {BlockNumber: 13000000, Platform: model.PoolLabel},
	}}
	require.NoError(t, repo.store.Write(service.DatasetVeJoeWars, existing))

	results := newRefresh(repo).Refresh(context.Background())
	assert.Equal(t, uint64(13001000), byDataset(results)[service.DatasetVeJoeWars].Block)
	assert.Equal(t, []uint64{13001000}, repo.clients[config.SourceVeJoe].blocks)
}

func TestRefreshIsolatesFailures(t *testing.T) {
	repo := newStubRepo(t)
	j := newRefresh(repo)
	require.NoError(t, j.Run(context.Background()))

	before, err := repo.store.ReadRaw(service.DatasetSJoeUsers)
	require.NoError(t, err)

	repo.clients[config.SourceSJoe].err = errors.New("connection reset")
	var seen []RefreshResult
	j.OnRefreshed = func(results []RefreshResult) { seen = results }

	err = j.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 8")
	require.Len(t, seen, 8)

	results := byDataset(seen)
	var fetchErr *subgraph.FetchError
	assert.ErrorAs(t, results[service.DatasetSJoeUsers].Err, &fetchErr)
	assert.Error(t, results[service.DatasetSJoeDaySnapshots].Err)
	assert.NoError(t, results[service.DatasetRJoeUsers].Err)
	assert.NoError(t, results[service.DatasetVeJoeWars].Err)

	// 失败的数据集保留上一次的快照
	after, err := repo.store.ReadRaw(service.DatasetSJoeUsers)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRefreshRecoversPanics(t *testing.T) {
	repo := newStubRepo(t)
	repo.clients[config.SourceRJoe].panic = true

	results := byDataset(newRefresh(repo).Refresh(context.Background()))
	require.Error(t, results[service.DatasetRJoeUsers].Err)
	assert.Contains(t, results[service.DatasetRJoeUsers].Err.Error(), "panicked")
	assert.Error(t, results[service.DatasetRJoeDaySnapshots].Err)
	assert.False(t, repo.store.Exists(service.DatasetRJoeUsers))

	assert.NoError(t, results[service.DatasetVeJoeUsers].Err)
	assert.NoError(t, results[service.DatasetVeJoeWars].Err)
}

func TestRefreshRetriesSeedAfterFailure(t *testing.T) {
	repo := newStubRepo(t)
	vejoe := repo.clients[config.SourceVeJoe]
	vejoe.err = errors.New("timeout")

	j := newRefresh(repo)
	for i := 0; i < 2; i++ {
		results := byDataset(j.Refresh(context.Background()))
		assert.Error(t, j.SeedErr())
		assert.ErrorIs(t, results[service.DatasetVeJoeWars].Err, dao.ErrSnapshotNotAvailable)
		assert.NoError(t, results[service.DatasetSJoeUsers].Err)
		assert.False(t, repo.store.Exists(service.DatasetVeJoeWars))
	}

	// 上游恢复后下一轮回填并追加
	vejoe.err = nil
	results := byDataset(j.Refresh(context.Background()))
	require.NoError(t, j.SeedErr())
	require.NoError(t, results[service.DatasetVeJoeWars].Err)
	assert.Equal(t, uint64(12211000), results[service.DatasetVeJoeWars].Block)
	assert.Equal(t, []uint64{12200000, 12210000, 12211000}, vejoe.blocks)

	results = byDataset(j.Refresh(context.Background()))
	assert.Equal(t, uint64(12212000), results[service.DatasetVeJoeWars].Block)
	assert.Len(t, readSeries(t, repo.store), 4)
}

func TestRefreshStopsOnCancel(t *testing.T) {
	repo := newStubRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newRefresh(repo).Refresh(ctx)
	assert.Empty(t, results)
}

func TestRefreshLogsCarrySingleTrace(t *testing.T) {
	shutdown := logger.InitTrace("joe-analytics", "job-test")
	defer shutdown(context.Background())

	core, logs := observer.New(zap.InfoLevel)
	repo := newStubRepo(t)
	cfg := warsConfig()
	collector := service.NewCollectorService(repo, cfg, zap.NewNop())
	j := NewSnapshotRefresh(collector, repo.store, cfg.Wars, zap.New(core))

	j.Refresh(context.Background())

	entries := logs.FilterMessage("dataset refreshed").All()
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		traceIDs := 0
		for _, f := range entry.Context {
			if f.Key == "trace_id" {
				traceIDs++
			}
		}
		assert.Equal(t, 1, traceIDs)
	}
}
