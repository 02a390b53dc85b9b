package repository

import (
	"errors"

	"joe-analytics/internal/worker/config"
	"joe-analytics/internal/worker/dao"
	"joe-analytics/pkg/subgraph"

	"go.uber.org/zap"
)

// New 进程启动时创建一次，各数据源客户端在进程生命周期内复用
func New(cfg config.Config, logger *zap.Logger) Repository {
	r := &repositoryImpl{
		cfg:    cfg,
		logger: logger,
	}
	r.init()
	return r
}

type repositoryImpl struct {
	cfg          config.Config
	logger       *zap.Logger
	vejoe        *subgraph.Client
	sjoe         *subgraph.Client
	rjoe         *subgraph.Client
	boostedPools *subgraph.Client
	daoManager   *dao.DAOManager
}

func (r *repositoryImpl) init() {
	r.vejoe = subgraph.NewClient(r.cfg.Subgraph.Source(config.SourceVeJoe), r.logger)
	r.sjoe = subgraph.NewClient(r.cfg.Subgraph.Source(config.SourceSJoe), r.logger)
	r.rjoe = subgraph.NewClient(r.cfg.Subgraph.Source(config.SourceRJoe), r.logger)
	r.boostedPools = subgraph.NewClient(r.cfg.Subgraph.Source(config.SourceBoostedPools), r.logger)

	r.daoManager = dao.NewDAOManager(&r.cfg)

	r.logger.Info("repository initialized",
		zap.String("store_dir", r.cfg.Store.Dir),
		zap.Int("page_size", r.cfg.Subgraph.PageSize),
	)
}

func (r *repositoryImpl) GetVeJoeClient() SubgraphClient {
	return r.vejoe
}

func (r *repositoryImpl) GetSJoeClient() SubgraphClient {
	return r.sjoe
}

func (r *repositoryImpl) GetRJoeClient() SubgraphClient {
	return r.rjoe
}

func (r *repositoryImpl) GetBoostedPoolsClient() SubgraphClient {
	return r.boostedPools
}

func (r *repositoryImpl) GetSnapshotDAO() dao.SnapshotDAO {
	return r.daoManager.SnapshotDAO
}

func (r *repositoryImpl) Close() error {
	var errs []error
	for _, c := range []*subgraph.Client{r.vejoe, r.sjoe, r.rjoe, r.boostedPools} {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
