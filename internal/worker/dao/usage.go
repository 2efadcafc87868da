package dao

import (
	"context"
	"web3-treasury/internal/worker/model"
)

// WalletUsageDAO 活跃池占用记录的数据访问接口
type WalletUsageDAO interface {
	// CountByPoolToken 统计某池/代币的现存占用数
	CountByPoolToken(ctx context.Context, poolID int64, tokenAddress string) (int64, error)

	// ListByChain 列出某链的全部占用记录（带钱包）
	ListByChain(ctx context.Context, chainID uint64) ([]*model.WalletUsage, error)

	// ListByToken 列出持有某代币的占用记录（带钱包）
	ListByToken(ctx context.Context, tokenAddress string) ([]*model.WalletUsage, error)

	// GetByWalletPool 查询 (wallet, pool) 的占用记录
	GetByWalletPool(ctx context.Context, walletID, poolID int64) (*model.WalletUsage, error)

	// Create 创建占用记录
	Create(ctx context.Context, usage *model.WalletUsage) error

	// Delete 删除占用记录
	Delete(ctx context.Context, id int64) error
}
