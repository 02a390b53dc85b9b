package worker

import (
	"context"
	"fmt"
	"time"

	"joe-analytics/internal/worker/cache"
	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/handler"
	"joe-analytics/internal/worker/job"
	"joe-analytics/internal/worker/monitor"
	"joe-analytics/internal/worker/repository"
	"joe-analytics/internal/worker/service"

	"go.uber.org/zap"
)

const snapshotRefreshJob = "snapshot_refresh"

type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	repo      repository.Repository
	scheduler *job.Scheduler
	metrics   *monitor.MetricsServer
	api       *handler.APIServer
}

func New(cfg config.Config, logger *zap.Logger) (*Core, error) {
	// 初始化作业调度器
	scheduler := job.NewScheduler(logger)

	// 初始化repo
	repo := repository.New(cfg, logger)

	resultCache := cache.NewResultCache(time.Duration(cfg.API.CacheTTL)*time.Second, logger)
	dashboard, err := service.NewDashboard(repo.GetSnapshotDAO(), resultCache, cfg.Wars, logger)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("init dashboard: %w", err)
	}

	// 周期刷新快照，首次运行时补齐 wars 序列
	collector := service.NewCollectorService(repo, cfg, logger)
	refresh := job.NewSnapshotRefresh(collector, repo.GetSnapshotDAO(), cfg.Wars, logger)
	refresh.OnRefreshed = func(results []job.RefreshResult) {
		for _, r := range results {
			if !r.Failed() {
				resultCache.Flush()
				return
			}
		}
	}
	scheduler.RegisterJob(snapshotRefreshJob,
		time.Duration(cfg.Poll.Interval)*time.Second,
		refresh.Run,
		job.WithTimeout(time.Duration(cfg.Poll.Timeout)*time.Second))

	core := &Core{
		cfg:       cfg,
		repo:      repo,
		tl:        logger,
		scheduler: scheduler,
		metrics:   monitor.NewMetricsServer(cfg.Monitor, logger),
		api:       handler.NewAPIServer(cfg.API, dashboard, logger),
	}
	return core, nil
}

func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting worker core...")
	// 启动监控服务
	if c.metrics != nil {
		c.metrics.Run()
	}
	if c.api != nil {
		c.api.Run()
	}

	// 启动调度器
	c.scheduler.Start(ctx)
	c.tl.Info("Worker started successfully",
		zap.Int("poll_interval", c.cfg.Poll.Interval),
		zap.String("store_dir", c.cfg.Store.Dir))

	// 等待外部关闭信号
	<-ctx.Done()
	c.tl.Info("Shutting down worker due to context cancellation...")
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping worker core...")

	// 停止调度器
	if c.scheduler != nil {
		c.scheduler.Stop(ctx)
	}

	if c.api != nil {
		if err := c.api.Stop(ctx); err != nil {
			c.tl.Warn("Dashboard API shutdown failed", zap.Error(err))
		}
	}

	// 停止 Prometheus 监控服务
	if c.metrics != nil {
		_ = c.metrics.Stop(ctx)
	}

	if err := c.repo.Close(); err != nil {
		c.tl.Warn("Repository close failed", zap.Error(err))
	}

	c.tl.Info("Worker core stopped.")
}
