package main

import (
	"context"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"joe-analytics/internal/worker"
	"joe-analytics/internal/worker/config"
	"joe-analytics/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// 初始化配置文件
	cfg := config.InitConfig()

	// 初始化 trace provider
	shutdownTrace := logger.InitTrace("joe-analytics", "worker")
	// 启动主 span
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	// 创建 root logger 并注入 trace 上下文
	rootLogger := logger.NewLogger(cfg.Log.Service, cfg.Log.Dir)
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)
	defer tl.Sync()

	// 启动配置热加载监听，只热更新日志级别
	config.WatchConfig(func(newCfg config.Config) {
		logger.SetLogLevel(newCfg.Log.Level)
		tl.Info("Config reloaded", zap.String("log_level", newCfg.Log.Level))
	})

	// 初始化worker，各组件按自己的 span 注入 trace
	core, err := worker.New(cfg, rootLogger)
	if err != nil {
		tl.Fatal("Failed to init worker", zap.Error(err))
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 启动 worker
	go func() {
		tl.Info("Starting joe-analytics worker...")
		core.Start(ctx)
	}()

	// 监听操作系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	tl.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	// 关闭资源
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	core.Stop(stopCtx)

	if err := shutdownTrace(stopCtx); err != nil {
		tl.Warn("Trace provider shutdown failed", zap.Error(err))
	}
	tl.Info("Shutting down all cores...")
}
