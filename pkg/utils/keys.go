package utils

import (
	"fmt"
	"strings"
)

// ResultCacheKey 看板结果缓存 key：函数标识 + 参数
func ResultCacheKey(fn string, args ...any) string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, "dashboard", fn)
	for _, arg := range args {
		parts = append(parts, fmt.Sprintf("%v", arg))
	}
	return strings.Join(parts, ":")
}

// SnapshotFileName 数据集对应的快照文件名
func SnapshotFileName(dataset string) string {
	return dataset + ".json"
}
