package dao

import (
	"joe-analytics/internal/worker/config"
)

// DAOManager 管理所有DAO实例
type DAOManager struct {
	SnapshotDAO SnapshotDAO
}

// NewDAOManager 创建DAO管理器实例
func NewDAOManager(cfg *config.Config) *DAOManager {
	return &DAOManager{
		SnapshotDAO: NewSnapshotDAO(cfg.Store.Dir),
	}
}
