package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/model"
	"joe-analytics/internal/worker/service"
	"joe-analytics/internal/worker/table"
	"joe-analytics/internal/worker/wars"
	"joe-analytics/pkg/logger"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Dashboard 看板只读查询，不会触发拉取
type Dashboard interface {
	Users(pools []model.PoolType, minimal bool) (service.TitledTable, error)
	DaySnapshots(pools []model.PoolType, minimal bool) (service.TitledTable, error)
	DaySnapshotSeries(pools []model.PoolType, stat string) ([]table.LongRow, error)
	WarsRanking() ([]wars.Result, error)
	WarsSeries(platformsOnly bool) ([]wars.SeriesRow, error)
}

// APIServer 看板查询接口
type APIServer struct {
	cfg       config.APIConfig
	dashboard Dashboard
	logger    *zap.Logger
	server    *http.Server
}

func NewAPIServer(cfg config.APIConfig, dashboard Dashboard, logger *zap.Logger) *APIServer {
	s := &APIServer{cfg: cfg, dashboard: dashboard, logger: logger}
	if !cfg.Enable || cfg.Addr == "" {
		return s
	}
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// NewRouter 所有路由只接受 GET
func (s *APIServer) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.traceMiddleware)

	r.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/wars/ranking", s.HandleWarsRanking).Methods(http.MethodGet)
	r.HandleFunc("/wars/series", s.HandleWarsSeries).Methods(http.MethodGet)
	r.HandleFunc("/users", s.HandleUsers).Methods(http.MethodGet)
	r.HandleFunc("/day-snapshots", s.HandleDaySnapshots).Methods(http.MethodGet)
	r.HandleFunc("/day-snapshots/series", s.HandleDaySnapshotSeries).Methods(http.MethodGet)
	return r
}

func (s *APIServer) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := logger.StartSpanWithRequest(r, "dashboard_api", r.URL.Path)
		defer span.End()
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logger.WithTrace(ctx, s.logger).Debug("request served",
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Duration("cost", time.Since(start)))
	})
}

// Run 启动接口服务
func (s *APIServer) Run() {
	if s.server == nil {
		return // disabled
	}

	go func() {
		s.logger.Info("Dashboard API listening", zap.String("addr", s.cfg.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Dashboard API stopped", zap.Error(err))
		}
	}()
}

// Stop 优雅关闭
func (s *APIServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil // disabled
	}

	s.server.SetKeepAlivesEnabled(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
