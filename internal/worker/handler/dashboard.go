package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"joe-analytics/internal/worker/dao"
	"joe-analytics/internal/worker/model"
	"joe-analytics/internal/worker/table"
	"joe-analytics/internal/worker/wars"
	"joe-analytics/pkg/utils"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type metricView struct {
	Value      string `json:"value"`
	Rank       int    `json:"rank"`
	Percentage string `json:"percentage"`
}

type rankingRow struct {
	Address        string     `json:"address"`
	Wallet         string     `json:"wallet"`
	JoeStake       metricView `json:"joe_stake"`
	VeJoeBalance   metricView `json:"vejoe_balance"`
	DailyJoeReward metricView `json:"daily_joe_reward"`
}

type seriesView struct {
	BlockNumber uint64  `json:"block_number"`
	Platform    string  `json:"platform"`
	TotalStake  *string `json:"total_stake"`
	TotalReward *string `json:"total_reward"`
}

type longRowView struct {
	Date  string         `json:"date"`
	Pool  model.PoolType `json:"pool"`
	Value *string        `json:"value"`
}

func (s *APIServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *APIServer) HandleWarsRanking(w http.ResponseWriter, r *http.Request) {
	results, err := s.dashboard.WarsRanking()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rows := make([]rankingRow, len(results))
	for i, res := range results {
		rows[i] = rankingRow{
			Address:        res.Address,
			Wallet:         res.Wallet,
			JoeStake:       viewMetric(res.Stake),
			VeJoeBalance:   viewMetric(res.VeJoeBalance),
			DailyJoeReward: viewMetric(res.DailyReward),
		}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *APIServer) HandleWarsSeries(w http.ResponseWriter, r *http.Request) {
	platformsOnly, err := boolParam(r, "platforms_only", false)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	rows, err := s.dashboard.WarsSeries(platformsOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]seriesView, len(rows))
	for i, row := range rows {
		out[i] = seriesView{
			BlockNumber: row.BlockNumber,
			Platform:    row.Platform,
		}
		if row.TotalStake.Valid {
			text := utils.FormatDisplay(row.TotalStake.Decimal)
			out[i].TotalStake = &text
		}
		if row.TotalReward.Valid {
			text := utils.FormatDisplay(row.TotalReward.Decimal)
			out[i].TotalReward = &text
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *APIServer) HandleUsers(w http.ResponseWriter, r *http.Request) {
	pools, minimal, err := tableParams(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	titled, err := s.dashboard.Users(pools, minimal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := table.Format(titled.Table)
	out.Heading = titled.Heading
	s.writeJSON(w, http.StatusOK, out)
}

func (s *APIServer) HandleDaySnapshots(w http.ResponseWriter, r *http.Request) {
	pools, minimal, err := tableParams(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	titled, err := s.dashboard.DaySnapshots(pools, minimal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := table.Format(titled.Table)
	out.Heading = titled.Heading
	s.writeJSON(w, http.StatusOK, out)
}

func (s *APIServer) HandleDaySnapshotSeries(w http.ResponseWriter, r *http.Request) {
	pools, err := poolsParam(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	stat := strings.TrimSpace(r.URL.Query().Get("stat"))
	if stat == "" {
		stat = table.StatTotalJoeStake
	}

	rows, err := s.dashboard.DaySnapshotSeries(pools, stat)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]longRowView, len(rows))
	for i, row := range rows {
		out[i] = longRowView{Date: row.Date, Pool: row.Pool}
		if row.Value.Valid {
			text := utils.FormatDisplay(row.Value.Decimal)
			out[i].Value = &text
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func viewMetric(m wars.Metric) metricView {
	return metricView{
		Value:      utils.FormatDisplay(m.Value),
		Rank:       m.Rank,
		Percentage: m.Percentage,
	}
}

// poolsParam 缺省为全部池，pools= 为空表示不选
func poolsParam(r *http.Request) ([]model.PoolType, error) {
	values, ok := r.URL.Query()["pools"]
	if !ok {
		return model.PoolTypes, nil
	}

	var pools []model.PoolType
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			p, ok := model.ParsePoolType(name)
			if !ok {
				return nil, fmt.Errorf("unknown pool %q", name)
			}
			pools = append(pools, p)
		}
	}
	return pools, nil
}

func boolParam(r *http.Request, key string, def bool) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}

func tableParams(r *http.Request) ([]model.PoolType, bool, error) {
	pools, err := poolsParam(r)
	if err != nil {
		return nil, false, err
	}
	minimal, err := boolParam(r, "minimal", true)
	if err != nil {
		return nil, false, err
	}
	return pools, minimal, nil
}

func (s *APIServer) writeBadRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Status: "bad_request", Error: err.Error()})
}

// writeError 快照尚未生成返回 503，其它错误 500
func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, dao.ErrSnapshotNotAvailable) {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "not_available", Error: err.Error()})
		return
	}
	s.logger.Error("dashboard query failed", zap.String("path", r.URL.Path), zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Error: err.Error()})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigStd.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response failed", zap.Error(err))
	}
}
