package dao

import (
	"context"
	"web3-treasury/internal/worker/model"

	"github.com/shopspring/decimal"
)

// BalanceDAO 链下余额镜像的数据访问接口。
// 余额只在链上操作确认之后更新；Increment 用于定额转账，Set 用于绝对值覆盖。
type BalanceDAO interface {
	// Get 查询余额记录
	Get(ctx context.Context, walletID, tokenID int64, isNative bool, chainID uint64) (*model.Balance, error)

	// Increment 增量更新（不存在则创建）
	Increment(ctx context.Context, walletID, tokenID int64, isNative bool, chainID uint64, delta decimal.Decimal) error

	// Set 绝对值覆盖（不存在则创建）
	Set(ctx context.Context, walletID, tokenID int64, isNative bool, chainID uint64, value decimal.Decimal) error

	// FindEligible 查询某代币余额不低于amount的记录（带钱包）
	FindEligible(ctx context.Context, tokenID int64, amount decimal.Decimal) ([]*model.Balance, error)
}
