package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionConfig 单个池的金库再平衡策略。
// 约束：activePoolSize*min <= total <= activePoolSize*max（native与token各自成立），
// 违反视为前置条件错误，不产生任何链上动作。
type DistributionConfig struct {
	ID                           int64           `gorm:"primaryKey" json:"id"`
	PoolID                       int64           `gorm:"column:pool_id;not null;index" json:"pool_id"`
	Pool                         *Pool           `gorm:"foreignKey:PoolID" json:"pool,omitempty"`
	ChainID                      uint64          `gorm:"column:chain_id;not null" json:"chain_id"`
	NativeDistributionAmount     decimal.Decimal `gorm:"column:native_distribution_amount;type:decimal(50,20);not null" json:"native_distribution_amount"`
	TokenDistributionAmount      decimal.Decimal `gorm:"column:token_distribution_amount;type:decimal(50,20);not null" json:"token_distribution_amount"`
	MinNativeDistributionAmount  decimal.Decimal `gorm:"column:min_native_distribution_amount;type:decimal(50,20);not null" json:"min_native_distribution_amount"`
	MaxNativeDistributionAmount  decimal.Decimal `gorm:"column:max_native_distribution_amount;type:decimal(50,20);not null" json:"max_native_distribution_amount"`
	MinTokenDistributionAmount   decimal.Decimal `gorm:"column:min_token_distribution_amount;type:decimal(50,20);not null" json:"min_token_distribution_amount"`
	MaxTokenDistributionAmount   decimal.Decimal `gorm:"column:max_token_distribution_amount;type:decimal(50,20);not null" json:"max_token_distribution_amount"`
	ActivePoolSize               int             `gorm:"column:active_pool_size;not null;default:100" json:"active_pool_size"`
	Enabled                      bool            `gorm:"column:enabled;not null;default:false;index" json:"enabled"`
	ReturnEnabled                bool            `gorm:"column:return_enabled;not null;default:false;index" json:"return_enabled"`
	ReturnAfter                  time.Time       `gorm:"column:return_after" json:"return_after"`
	MaxNativeLeftOver            decimal.Decimal `gorm:"column:max_native_left_over;type:decimal(50,20);not null;default:0" json:"max_native_left_over"`
	MaxTokenLeftOver             decimal.Decimal `gorm:"column:max_token_left_over;type:decimal(50,20);not null;default:0" json:"max_token_left_over"`
	MasterWalletID               int64           `gorm:"column:master_wallet_id" json:"master_wallet_id"`
	MasterWallet                 *Wallet         `gorm:"foreignKey:MasterWalletID" json:"master_wallet,omitempty"`
	UseToken0                    bool            `gorm:"column:use_token0;not null;default:true" json:"use_token0"`
	ExpireAt                     time.Time       `gorm:"column:expire_at;index" json:"expire_at"`
	CreatedAt                    time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt                    time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (DistributionConfig) TableName() string {
	return "distribution_config"
}

// DistributedTokenID 返回该策略分发的代币侧
func (c *DistributionConfig) DistributedTokenID() int64 {
	if c.Pool == nil {
		return 0
	}
	if c.UseToken0 {
		return c.Pool.Token0ID
	}
	return c.Pool.Token1ID
}
