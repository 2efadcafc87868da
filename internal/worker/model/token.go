package model

import "time"

// CryptoToken 代币定义，原生币的 token_address 为空
type CryptoToken struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	TokenSymbol  string    `gorm:"column:token_symbol;type:varchar(50);not null" json:"token_symbol"`
	TokenAddress string    `gorm:"column:token_address;type:varchar(100);index" json:"token_address"`
	ChainID      uint64    `gorm:"column:chain_id;not null" json:"chain_id"`
	Network      string    `gorm:"column:network;type:varchar(50);not null" json:"network"`
	IsNative     bool      `gorm:"column:is_native;not null;default:false" json:"is_native"`
	Decimals     int32     `gorm:"column:decimals;not null;default:18" json:"decimals"`
	PairAddress  string    `gorm:"column:pair_address;type:varchar(100)" json:"pair_address"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (CryptoToken) TableName() string {
	return "crypto_token"
}
