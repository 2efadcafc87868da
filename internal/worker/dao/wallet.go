package dao

import (
	"context"
	"web3-treasury/internal/worker/model"
)

// WalletDAO 定义wallet数据访问接口。
// 单条查询找不到记录时返回 apperrors.ErrNotFound，不返回 nil, nil。
type WalletDAO interface {
	// GetByID 通过ID查询钱包
	GetByID(ctx context.Context, id int64) (*model.Wallet, error)

	// GetByAddress 通过地址查询钱包
	GetByAddress(ctx context.Context, address string) (*model.Wallet, error)

	// SampleInactiveNormal 均匀随机抽取指定数量的未激活NORMAL钱包（不放回）
	SampleInactiveNormal(ctx context.Context, chainID uint64, limit int) ([]*model.Wallet, error)

	// GetRoleWallet 获取指定类型的角色钱包（FUNDING/GAS_STATION/MASTER）
	GetRoleWallet(ctx context.Context, walletType string) (*model.Wallet, error)

	// UpdateStatus 更新钱包状态
	UpdateStatus(ctx context.Context, id int64, status string) error

	// Create 创建钱包记录
	Create(ctx context.Context, wallet *model.Wallet) error

	// MaxHdIndex 返回当前最大派生索引，无记录时返回-1
	MaxHdIndex(ctx context.Context) (int, error)

	// ExistsByAddress 地址是否已存在
	ExistsByAddress(ctx context.Context, address string) (bool, error)
}
