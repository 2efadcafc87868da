package utils

import (
	"math/big"
	"math/rand"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))

// AdjustDecimals 将链上原始整数余额转换为带精度的十进制数
func AdjustDecimals(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// ToRawUnits 将十进制金额转换为链上原始整数单位（截断超出精度的部分）
func ToRawUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// ChecksumAddress 将 EVM 地址转换为 EIP-55 Checksum 格式
func ChecksumAddress(addr string) string {
	if addr == "" {
		return ""
	}
	if !strings.HasPrefix(addr, "0x") {
		addr = "0x" + addr
	}
	return common.HexToAddress(addr).Hex()
}

// RandFloat64 返回 [0,1) 区间的随机数，测试可通过 engine 层注入替换
func RandFloat64() float64 {
	return seededRand.Float64()
}
