package dao

import (
	"context"
	"errors"
)

// ErrSnapshotNotAvailable 数据集还没有被写入过，和拉取失败区分开
var ErrSnapshotNotAvailable = errors.New("snapshot not available")

// BlockFetcher 拉取某个区块高度的观测
type BlockFetcher func(ctx context.Context, block uint64) (interface{}, error)

// SnapshotDAO 数据集名称 -> 最近一次拉取的 JSON 文件
type SnapshotDAO interface {
	// Read 读取并解析快照，文件不存在时返回 ErrSnapshotNotAvailable
	Read(name string, out interface{}) error

	// ReadRaw 读取快照原始字节
	ReadRaw(name string) ([]byte, error)

	// Write 整体覆盖写入，先写临时文件再 rename
	Write(name string, payload interface{}) error

	Exists(name string) bool

	// AppendBlock 在区块序列末尾追加 last+step 高度的观测，返回新的区块号
	AppendBlock(ctx context.Context, name string, step uint64, fetch BlockFetcher) (uint64, error)
}
