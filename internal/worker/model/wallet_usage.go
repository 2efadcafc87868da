package model

import "time"

// WalletUsage 标记一个 NORMAL 钱包当前处于某个池的活跃池中。
// 由分发引擎创建，回收引擎删除；每个 (wallet, pool) 至多一条。
type WalletUsage struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	WalletID     int64     `gorm:"column:wallet_id;not null;uniqueIndex:uniq_wallet_pool" json:"wallet_id"`
	Wallet       *Wallet   `gorm:"foreignKey:WalletID" json:"wallet,omitempty"`
	Address      string    `gorm:"column:address;type:varchar(100);not null" json:"address"`
	HdIndex      int       `gorm:"column:hd_index;not null" json:"hd_index"`
	ChainID      uint64    `gorm:"column:chain_id;not null;index" json:"chain_id"`
	TokenAddress string    `gorm:"column:token_address;type:varchar(100);index" json:"token_address"`
	PoolID       int64     `gorm:"column:pool_id;not null;uniqueIndex:uniq_wallet_pool" json:"pool_id"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (WalletUsage) TableName() string {
	return "wallet_usage"
}
