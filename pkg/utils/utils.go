package utils

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	// DivisionPrecision 比例计算保留的小数位数，只在展示时才做最终舍入
	DivisionPrecision int32 = 36
	// SqrtPrecision 平方根保留的小数位数
	SqrtPrecision int32 = 36
	// DisplayPlaces 展示层保留三位小数
	DisplayPlaces int32 = 3
)

var hundred = decimal.NewFromInt(100)

// AdjustDecimals 按链上精度缩放原始整数值 (raw / 10^decimals)，不会截断
func AdjustDecimals(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}

// SafeDiv 分母为 0 时返回 0，而不是产生未定义的比例
func SafeDiv(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.DivRound(denominator, DivisionPrecision)
}

// Sqrt 定点平方根，负数和 0 都返回 0
func Sqrt(value decimal.Decimal) decimal.Decimal {
	if value.Sign() <= 0 {
		return decimal.Zero
	}
	// 放大 10^(2p) 后取整数平方根，结果保留 p 位小数
	scaled := value.Shift(2 * SqrtPrecision).BigInt()
	root := new(big.Int).Sqrt(scaled)
	return decimal.NewFromBigInt(root, -SqrtPrecision)
}

// FormatDisplay 保留三位小数并去掉末尾的 0 和小数点，例如 1.500 -> 1.5, 2.000 -> 2
func FormatDisplay(value decimal.Decimal) string {
	text := value.RoundBank(DisplayPlaces).StringFixed(DisplayPlaces)
	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")
	if text == "-0" || text == "" {
		return "0"
	}
	return text
}

// FormatPercent 把比例格式化为百分比字符串，例如 0.123456 -> 12.346%
func FormatPercent(ratio decimal.Decimal) string {
	return ratio.Mul(hundred).RoundBank(DisplayPlaces).StringFixed(DisplayPlaces) + "%"
}

// NormalizeAddress 统一为小写地址，非 EVM 地址只做 trim + 小写
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if common.IsHexAddress(addr) {
		return strings.ToLower(common.HexToAddress(addr).Hex())
	}
	return strings.ToLower(addr)
}

// IsAddress 是否为合法的 EVM 地址
func IsAddress(addr string) bool {
	return common.IsHexAddress(strings.TrimSpace(addr))
}
