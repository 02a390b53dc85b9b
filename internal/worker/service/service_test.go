package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/dao"
	"joe-analytics/internal/worker/repository"
	"joe-analytics/pkg/subgraph"

	"go.uber.org/zap"
)

type fakeClient struct {
	name    string
	pages   map[string][]json.RawMessage
	atBlock func(entity, id string, block uint64) json.RawMessage
	err     error
	queries []subgraph.PageQuery
	blocks  []uint64
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) FetchAll(ctx context.Context, q subgraph.PageQuery) ([]json.RawMessage, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, &subgraph.FetchError{Source: f.name, Entity: q.Entity, Err: f.err}
	}
	return f.pages[q.Entity], nil
}

func (f *fakeClient) QueryAtBlock(ctx context.Context, entity, id, fields string, block uint64) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if entity == "pool" {
		f.blocks = append(f.blocks, block)
	}
	if f.atBlock == nil {
		return nil, nil
	}
	return f.atBlock(entity, id, block), nil
}

type fakeRepo struct {
	vejoe, sjoe, rjoe, boosted *fakeClient
	store                      dao.SnapshotDAO
}

func (r *fakeRepo) GetVeJoeClient() repository.SubgraphClient        { return r.vejoe }
func (r *fakeRepo) GetSJoeClient() repository.SubgraphClient         { return r.sjoe }
func (r *fakeRepo) GetRJoeClient() repository.SubgraphClient         { return r.rjoe }
func (r *fakeRepo) GetBoostedPoolsClient() repository.SubgraphClient { return r.boosted }
func (r *fakeRepo) GetSnapshotDAO() dao.SnapshotDAO                  { return r.store }
func (r *fakeRepo) Close() error                                     { return nil }

func newFakeRepo(t *testing.T) *fakeRepo {
	t.Helper()
	return &fakeRepo{
		vejoe:   &fakeClient{name: config.SourceVeJoe, pages: map[string][]json.RawMessage{}},
		sjoe:    &fakeClient{name: config.SourceSJoe, pages: map[string][]json.RawMessage{}},
		rjoe:    &fakeClient{name: config.SourceRJoe, pages: map[string][]json.RawMessage{}},
		boosted: &fakeClient{name: config.SourceBoostedPools, pages: map[string][]json.RawMessage{}},
		store:   dao.NewSnapshotDAO(t.TempDir()),
	}
}

func testConfig() config.Config {
	return config.Config{
		Wars: config.WarsConfig{
			EmissionPerSec: "1833719582850521436",
			TokenDecimals:  18,
			PoolAddress:    "0x25D85E17dD9e544F6E9F8D44F99602dbF5a97341",
			Platforms: []config.PlatformConfig{
				{Label: "YieldYak", Address: "0xe7462905B79370389e8180E300F58f63D35B725F"},
				{Label: "Beefy", Address: "0x1F2A8034f444dc55F963fb5925A9b6eb744EeE2c"},
			},
			BackfillFrom: 12200000,
			BackfillTo:   12230000,
			BackfillStep: 10000,
			AppendStep:   1000,
		},
	}
}

func raw(format string, args ...interface{}) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(format, args...))
}

var errUpstream = errors.New("upstream down")

func nopLogger() *zap.Logger { return zap.NewNop() }
