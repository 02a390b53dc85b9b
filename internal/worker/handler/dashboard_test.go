package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"joe-analytics/internal/worker/cache"
	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/dao"
	"joe-analytics/internal/worker/model"
	"joe-analytics/internal/worker/service"
	"joe-analytics/internal/worker/table"
	"joe-analytics/internal/worker/wars"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDashboard struct {
	err       error
	pools     []model.PoolType
	minimal   bool
	stat      string
	platforms bool
}

func (f *fakeDashboard) Users(pools []model.PoolType, minimal bool) (service.TitledTable, error) {
	f.pools, f.minimal = pools, minimal
	if f.err != nil {
		return service.TitledTable{}, f.err
	}
	col := table.ColumnKey{Pool: model.PoolVeJoe, Stat: table.StatTotalJoeStake}
	return service.TitledTable{
		Heading: "veJOE Pool",
		Table: table.Table{
			Index:   table.IndexAddress,
			Columns: []table.ColumnKey{col},
			Rows: []table.Row{
				{Key: "0xa", Values: map[table.ColumnKey]decimal.Decimal{col: decimal.RequireFromString("1.5000")}},
			},
		},
	}, nil
}

func (f *fakeDashboard) DaySnapshots(pools []model.PoolType, minimal bool) (service.TitledTable, error) {
	f.pools, f.minimal = pools, minimal
	if f.err != nil {
		return service.TitledTable{}, f.err
	}
	return service.TitledTable{Heading: "No Pool Selected"}, nil
}

func (f *fakeDashboard) DaySnapshotSeries(pools []model.PoolType, stat string) ([]table.LongRow, error) {
	f.pools, f.stat = pools, stat
	if f.err != nil {
		return nil, f.err
	}
	return []table.LongRow{
		{Date: "2022-01-01", Pool: model.PoolSJoe, Value: decimal.NewNullDecimal(decimal.NewFromInt(2))},
		{Date: "2022-01-02", Pool: model.PoolSJoe},
	}, nil
}

func (f *fakeDashboard) WarsRanking() ([]wars.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []wars.Result{{
		Address:      "YieldYak",
		Wallet:       "0xe7462905b79370389e8180e300f58f63d35b725f",
		Stake:        wars.Metric{Value: decimal.RequireFromString("10.12345"), Rank: 1, Percentage: "100.000%"},
		VeJoeBalance: wars.Metric{Value: decimal.NewFromInt(3), Rank: 1, Percentage: "100.000%"},
		DailyReward:  wars.Metric{Value: decimal.Zero, Rank: 1, Percentage: "0.000%"},
	}}, nil
}

func (f *fakeDashboard) WarsSeries(platformsOnly bool) ([]wars.SeriesRow, error) {
	f.platforms = platformsOnly
	if f.err != nil {
		return nil, f.err
	}
	return []wars.SeriesRow{
		{BlockNumber: 12200000, Platform: "Beefy"},
		{BlockNumber: 12200000, Platform: "Pool", TotalStake: decimal.NewNullDecimal(decimal.NewFromInt(7))},
	}, nil
}

func serve(t *testing.T, d Dashboard, target string) *httptest.ResponseRecorder {
	t.Helper()
	s := NewAPIServer(config.APIConfig{}, d, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeDashboard{}, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWarsRanking(t *testing.T) {
	rec := serve(t, &fakeDashboard{}, "/wars/ranking")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{
		"address":"YieldYak",
		"wallet":"0xe7462905b79370389e8180e300f58f63d35b725f",
		"joe_stake":{"value":"10.123","rank":1,"percentage":"100.000%"},
		"vejoe_balance":{"value":"3","rank":1,"percentage":"100.000%"},
		"daily_joe_reward":{"value":"0","rank":1,"percentage":"0.000%"}
	}]`, rec.Body.String())
}

func TestWarsSeries(t *testing.T) {
	d := &fakeDashboard{}
	rec := serve(t, d, "/wars/series?platforms_only=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, d.platforms)
	assert.JSONEq(t, `[
		{"block_number":12200000,"platform":"Beefy","total_stake":null,"total_reward":null},
		{"block_number":12200000,"platform":"Pool","total_stake":"7","total_reward":null}
	]`, rec.Body.String())
}

func TestUsersParams(t *testing.T) {
	tests := []struct {
		target  string
		pools   []model.PoolType
		minimal bool
	}{
		{"/users", model.PoolTypes, true},
		{"/users?pools=vejoe,SJOE&minimal=false", []model.PoolType{model.PoolVeJoe, model.PoolSJoe}, false},
		{"/users?pools=rJOE&pools=veJOE", []model.PoolType{model.PoolRJoe, model.PoolVeJoe}, true},
		{"/users?pools=", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			d := &fakeDashboard{}
			rec := serve(t, d, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.pools, d.pools)
			assert.Equal(t, tt.minimal, d.minimal)
		})
	}
}

func TestUsersBody(t *testing.T) {
	rec := serve(t, &fakeDashboard{}, "/users?pools=veJOE")
	require.Equal(t, http.StatusOK, rec.Code)

	var body table.Formatted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "veJOE Pool", body.Heading)
	assert.Equal(t, table.IndexAddress, body.Index)
	require.Len(t, body.Rows, 1)
	require.NotNil(t, body.Rows[0].Values[0])
	assert.Equal(t, "1.5", *body.Rows[0].Values[0])
}

func TestBadRequest(t *testing.T) {
	for _, target := range []string{
		"/users?pools=xJOE",
		"/day-snapshots?minimal=maybe",
		"/wars/series?platforms_only=2",
	} {
		rec := serve(t, &fakeDashboard{}, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestDaySnapshotSeries(t *testing.T) {
	d := &fakeDashboard{}
	rec := serve(t, d, "/day-snapshots/series?pools=sJOE")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, table.StatTotalJoeStake, d.stat)
	assert.JSONEq(t, `[
		{"date":"2022-01-01","pool":"sJOE","value":"2"},
		{"date":"2022-01-02","pool":"sJOE","value":null}
	]`, rec.Body.String())

	serve(t, d, "/day-snapshots/series?stat=active_user_count")
	assert.Equal(t, table.StatActiveUserCount, d.stat)
}

func TestSnapshotNotAvailable(t *testing.T) {
	d := &fakeDashboard{err: fmt.Errorf("%s: %w", service.DatasetVeJoeUsers, dao.ErrSnapshotNotAvailable)}
	for _, target := range []string{"/wars/ranking", "/wars/series", "/users", "/day-snapshots", "/day-snapshots/series"} {
		rec := serve(t, d, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"status":"not_available"`, target)
	}
}

func TestInternalError(t *testing.T) {
	rec := serve(t, &fakeDashboard{err: fmt.Errorf("corrupt snapshot")}, "/wars/ranking")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewAPIServer(config.APIConfig{}, &fakeDashboard{}, zap.NewNop())
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDashboardEndToEnd(t *testing.T) {
	store := dao.NewSnapshotDAO(t.TempDir())
	require.NoError(t, store.Write(service.DatasetVeJoeUsers, []json.RawMessage{
		json.RawMessage(`{"id":"0xa","totalStake":"2000000000000000000","totalReward":"1000000000000000000","depositCount":"1","withdrawCount":"0","claimCount":"0"}`),
	}))
	require.NoError(t, store.Write(service.DatasetVeJoeBoostedPoolPositions, []json.RawMessage{}))

	d, err := service.NewDashboard(store, cache.NewResultCache(0, nil), config.WarsConfig{EmissionPerSec: "1"}, zap.NewNop())
	require.NoError(t, err)

	rec := serve(t, d, "/wars/ranking")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"joe_stake":{"value":"2","rank":1,"percentage":"100.000%"}`)

	rec = serve(t, d, "/users?pools=veJOE")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"heading":"veJOE Pool"`)

	rec = serve(t, d, "/day-snapshots?pools=sJOE")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
