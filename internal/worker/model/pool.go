package model

import "strings"

// PoolType 质押池类型，所有投影列都以它为命名空间
type PoolType string

const (
	PoolVeJoe PoolType = "veJOE"
	PoolSJoe  PoolType = "sJOE"
	PoolRJoe  PoolType = "rJOE"
)

// PoolTypes 看板中的固定展示顺序
var PoolTypes = []PoolType{PoolVeJoe, PoolSJoe, PoolRJoe}

// ParsePoolType 大小写不敏感
func ParsePoolType(s string) (PoolType, bool) {
	for _, p := range PoolTypes {
		if strings.EqualFold(string(p), s) {
			return p, true
		}
	}
	return "", false
}

