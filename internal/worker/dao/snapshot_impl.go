package dao

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"joe-analytics/internal/worker/model"
	"joe-analytics/pkg/utils"

	"github.com/bytedance/sonic"
)

// 排序 map key，保证相同数据写出的字节一致
var codec = sonic.ConfigStd

// snapshotDAO 实现SnapshotDAO接口
type snapshotDAO struct {
	dir string
}

// NewSnapshotDAO 创建SnapshotDAO实例
func NewSnapshotDAO(dir string) SnapshotDAO {
	return &snapshotDAO{dir: dir}
}

func (s *snapshotDAO) path(name string) string {
	return filepath.Join(s.dir, utils.SnapshotFileName(name))
}

func (s *snapshotDAO) ReadRaw(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrSnapshotNotAvailable)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	return data, nil
}

func (s *snapshotDAO) Read(name string, out interface{}) error {
	data, err := s.ReadRaw(name)
	if err != nil {
		return err
	}
	if err := codec.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse snapshot %s: %w", name, err)
	}
	return nil
}

func (s *snapshotDAO) Write(name string, payload interface{}) error {
	data, err := codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", name, err)
	}
	return s.writeFile(name, data)
}

func (s *snapshotDAO) Exists(name string) bool {
	stat, err := os.Stat(s.path(name))
	return err == nil && !stat.IsDir()
}

func (s *snapshotDAO) AppendBlock(ctx context.Context, name string, step uint64, fetch BlockFetcher) (uint64, error) {
	data, err := s.ReadRaw(name)
	if err != nil {
		return 0, err
	}

	var series []json.RawMessage
	if err := codec.Unmarshal(data, &series); err != nil {
		return 0, fmt.Errorf("parse series %s: %w", name, err)
	}
	if len(series) == 0 {
		return 0, fmt.Errorf("series %s is empty", name)
	}

	var last model.WarsObservation
	if err := codec.Unmarshal(series[len(series)-1], &last); err != nil {
		return 0, fmt.Errorf("parse last observation of %s: %w", name, err)
	}
	lastBlock, ok := last.BlockNumber()
	if !ok {
		return 0, fmt.Errorf("last observation of %s has no %q entry", name, model.PoolLabel)
	}

	block := lastBlock + step
	observation, err := fetch(ctx, block)
	if err != nil {
		return 0, err
	}
	elem, err := codec.Marshal(observation)
	if err != nil {
		return 0, fmt.Errorf("marshal observation at block %d: %w", block, err)
	}

	// 只在末尾拼接新元素，已有元素的字节保持不变
	body := bytes.TrimRight(data, " \t\r\n")
	if len(body) == 0 || body[len(body)-1] != ']' {
		return 0, fmt.Errorf("series %s is not a JSON array", name)
	}
	out := make([]byte, 0, len(body)+len(elem)+1)
	out = append(out, body[:len(body)-1]...)
	out = append(out, ',')
	out = append(out, elem...)
	out = append(out, ']')

	if err := s.writeFile(name, out); err != nil {
		return 0, err
	}
	return block, nil
}

func (s *snapshotDAO) writeFile(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	path := s.path(name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
