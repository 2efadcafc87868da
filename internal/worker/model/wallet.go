package model

import "time"

const (
	WALLET_TYPE_NORMAL      = "NORMAL"
	WALLET_TYPE_MASTER      = "MASTER"
	WALLET_TYPE_FUNDING     = "FUNDING"
	WALLET_TYPE_GAS_STATION = "GAS_STATION"
)

const (
	WALLET_STATUS_INACTIVE = "inactive"
	WALLET_STATUS_ACTIVE   = "active"
	WALLET_STATUS_ARCHIVED = "archived"
)

// Wallet 钱包记录。只有 NORMAL 钱包会在池轮换中切换 inactive/active，
// MASTER/FUNDING/GAS_STATION 属于角色钱包，逻辑上始终在线。
type Wallet struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Address   string    `gorm:"column:address;type:varchar(100);not null;uniqueIndex" json:"address"`
	HdIndex   int       `gorm:"column:hd_index;not null;index" json:"hd_index"`
	Type      string    `gorm:"column:type;type:varchar(20);not null;default:NORMAL;index" json:"type"`
	Status    string    `gorm:"column:status;type:varchar(20);not null;default:inactive;index" json:"status"`
	ChainID   uint64    `gorm:"column:chain_id;not null" json:"chain_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}

// IsRoleWallet 角色钱包不参与池轮换
func (w *Wallet) IsRoleWallet() bool {
	return w.Type != WALLET_TYPE_NORMAL
}
