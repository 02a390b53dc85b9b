package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/dao"
	"joe-analytics/internal/worker/monitor"
	"joe-analytics/internal/worker/service"
	"joe-analytics/pkg/logger"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// RefreshResult 单个数据集一次刷新的结果
type RefreshResult struct {
	Dataset  string
	Records  int
	Block    uint64 // 只对增量序列有意义
	Duration time.Duration
	Err      error
}

func (r RefreshResult) Failed() bool {
	return r.Err != nil
}

// SnapshotRefresh 周期刷新所有数据集快照
type SnapshotRefresh struct {
	collector *service.CollectorService
	store     dao.SnapshotDAO
	cfg       config.WarsConfig
	logger    *zap.Logger

	seedErr error
	// OnRefreshed 每轮刷新结束后回调，用于清理看板缓存
	OnRefreshed func(results []RefreshResult)
}

func NewSnapshotRefresh(collector *service.CollectorService, store dao.SnapshotDAO, cfg config.WarsConfig, logger *zap.Logger) *SnapshotRefresh {
	return &SnapshotRefresh{
		collector: collector,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run 调度入口，单个数据集失败只记录日志，不中断本轮
func (j *SnapshotRefresh) Run(ctx context.Context) error {
	results := j.Refresh(ctx)

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if j.OnRefreshed != nil {
		j.OnRefreshed(results)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d datasets failed to refresh", failed, len(results))
	}
	return nil
}

// Refresh 按固定顺序逐个刷新，wars 序列不存在时先回填
func (j *SnapshotRefresh) Refresh(ctx context.Context) []RefreshResult {
	ctx, span := logger.StartSpan(ctx, "snapshot_refresh", "refresh")
	defer span.End()
	tl := logger.WithTrace(ctx, j.logger)

	// 序列文件不存在时每轮都尝试回填，直到成功
	if !j.store.Exists(service.DatasetVeJoeWars) {
		j.seedErr = j.seed(ctx, tl)
	}

	datasets := j.collector.Datasets()
	results := make([]RefreshResult, 0, len(datasets))
	for _, ds := range datasets {
		if ctx.Err() != nil {
			tl.Warn("refresh cancelled", zap.String("dataset", ds.Name), zap.Error(ctx.Err()))
			break
		}
		result := j.refreshDataset(ctx, ds)
		j.report(tl, result)
		results = append(results, result)
	}
	return results
}

func (j *SnapshotRefresh) seed(ctx context.Context, tl *zap.Logger) error {
	start := time.Now()
	seeded, err := j.collector.SeedWarsSeries(ctx)
	if err != nil {
		// 本轮 AppendBlock 会报 not available，下一轮重试回填
		tl.Error("wars series backfill failed", zap.Error(err), zap.Stack("stack"))
		return err
	}
	if seeded {
		tl.Info("wars series seeded",
			zap.Uint64("from", j.cfg.BackfillFrom),
			zap.Uint64("to", j.cfg.BackfillTo),
			zap.Uint64("step", j.cfg.BackfillStep),
			zap.Duration("duration", time.Since(start)))
	}
	return nil
}

// SeedErr 最近一次回填的错误，没有回填过或成功时为 nil
func (j *SnapshotRefresh) SeedErr() error {
	return j.seedErr
}

func (j *SnapshotRefresh) refreshDataset(ctx context.Context, ds service.Dataset) (result RefreshResult) {
	ctx, span := logger.StartSpan(ctx, "snapshot_refresh", ds.Name)
	defer span.End()

	result.Dataset = ds.Name
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	var pc panics.Catcher
	pc.Try(func() {
		if ds.Append != nil {
			result.Block, result.Err = j.store.AppendBlock(ctx, ds.Name, j.cfg.AppendStep, ds.Append)
			if result.Err == nil {
				result.Records = 1
			}
			return
		}

		records, err := ds.Fetch(ctx)
		if err != nil {
			result.Err = err
			return
		}
		// 全部分页成功后才整体覆盖
		if err := j.store.Write(ds.Name, records); err != nil {
			result.Err = err
			return
		}
		result.Records = len(records)
	})
	if recovered := pc.Recovered(); recovered != nil {
		result.Err = fmt.Errorf("refresh %s panicked: %w", ds.Name, recovered.AsError())
	}
	if result.Err != nil {
		span.RecordError(result.Err)
	}
	return result
}

func (j *SnapshotRefresh) report(tl *zap.Logger, r RefreshResult) {
	monitor.SnapshotRefreshDuration.WithLabelValues(r.Dataset).Observe(r.Duration.Seconds())

	if r.Failed() {
		monitor.SnapshotRefreshTotal.WithLabelValues(r.Dataset, monitor.StatusFailure).Inc()
		fields := []zap.Field{
			zap.String("dataset", r.Dataset),
			zap.Duration("duration", r.Duration),
			zap.Error(r.Err),
		}
		if !errors.Is(r.Err, context.Canceled) {
			fields = append(fields, zap.Stack("stack"))
		}
		tl.Error("dataset refresh failed", fields...)
		return
	}

	monitor.SnapshotRefreshTotal.WithLabelValues(r.Dataset, monitor.StatusSuccess).Inc()
	if r.Block > 0 {
		monitor.WarsSeriesLastBlock.Set(float64(r.Block))
		tl.Info("series extended",
			zap.String("dataset", r.Dataset),
			zap.Uint64("block", r.Block),
			zap.Duration("duration", r.Duration))
		return
	}
	monitor.SnapshotRecords.WithLabelValues(r.Dataset).Set(float64(r.Records))
	tl.Info("dataset refreshed",
		zap.String("dataset", r.Dataset),
		zap.Int("records", r.Records),
		zap.Duration("duration", r.Duration))
}
