package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/job"
	"joe-analytics/internal/worker/repository"
	"joe-analytics/internal/worker/service"
	"joe-analytics/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// 一次性任务：
//   refresh  刷新一轮全部数据集 (wars 序列不存在时先回填)
//   backfill 重新回填 wars 序列并覆盖文件

// taskError 子命令执行失败，区别于命令行用法错误
type taskError struct {
	err error
}

func (e *taskError) Error() string { return e.err.Error() }
func (e *taskError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var te *taskError
		if errors.As(err, &te) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "script",
		Short:        "One-shot snapshot maintenance tasks",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file, default ./config/config.worker.yaml")

	root.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Refresh every dataset once",
		Args:  cobra.NoArgs,
		RunE:  runTask("refresh", runRefresh),
	})
	root.AddCommand(&cobra.Command{
		Use:   "backfill",
		Short: "Rebuild the wars series over the configured block range",
		Args:  cobra.NoArgs,
		RunE:  runTask("backfill", runBackfill),
	})
	return root
}

type task func(ctx context.Context, cfg config.Config, repo repository.Repository, tl *zap.Logger) error

// runTask 加载配置并初始化 trace/logger/repository 后执行任务
func runTask(name string, fn task) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		startTime := time.Now()
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return &taskError{err: err}
		}

		// 初始化 trace provider
		shutdownTrace := logger.InitTrace("joe-analytics", "script")
		defer shutdownTrace(context.Background())
		// 启动主 span
		ctx, span := logger.StartSpan(cmd.Context(), "main", name)
		defer span.End()

		// 创建 root logger 并注入 trace 上下文
		rootLogger := logger.NewLogger("script", cfg.Log.Dir)
		logger.SetLogLevel(cfg.Log.Level)
		tl := logger.WithTrace(ctx, rootLogger)
		defer tl.Sync()

		// 初始化 repository
		repo := repository.New(cfg, tl)
		defer repo.Close()

		if err := fn(ctx, cfg, repo, tl); err != nil {
			tl.Error("Task failed", zap.String("task", name), zap.Error(err))
			return &taskError{err: err}
		}
		tl.Info("Task completed successfully", zap.String("task", name), zap.Duration("taken_time", time.Since(startTime)))
		return nil
	}
}

func runRefresh(ctx context.Context, cfg config.Config, repo repository.Repository, tl *zap.Logger) error {
	collector := service.NewCollectorService(repo, cfg, tl)
	refresh := job.NewSnapshotRefresh(collector, repo.GetSnapshotDAO(), cfg.Wars, tl)
	return refresh.Run(ctx)
}

func runBackfill(ctx context.Context, cfg config.Config, repo repository.Repository, tl *zap.Logger) error {
	collector := service.NewCollectorService(repo, cfg, tl)
	series, err := collector.WarsAtBlocks(ctx, cfg.Wars.BackfillFrom, cfg.Wars.BackfillTo, cfg.Wars.BackfillStep)
	if err != nil {
		return fmt.Errorf("backfill wars series: %w", err)
	}
	if err := repo.GetSnapshotDAO().Write(service.DatasetVeJoeWars, series); err != nil {
		return fmt.Errorf("write wars series: %w", err)
	}
	return nil
}
