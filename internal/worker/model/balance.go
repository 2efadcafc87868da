package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance 钱包链上余额的链下镜像，按 (wallet, token|isNative, chainId) 唯一。
// 只在链上操作确认之后更新；与链上真值最终一致。
type Balance struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	WalletID  int64           `gorm:"column:wallet_id;not null;uniqueIndex:uniq_wallet_token" json:"wallet_id"`
	Wallet    *Wallet         `gorm:"foreignKey:WalletID" json:"wallet,omitempty"`
	TokenID   int64           `gorm:"column:token_id;uniqueIndex:uniq_wallet_token" json:"token_id"`
	Token     *CryptoToken    `gorm:"foreignKey:TokenID" json:"token,omitempty"`
	IsNative  bool            `gorm:"column:is_native;not null;default:false;uniqueIndex:uniq_wallet_token" json:"is_native"`
	ChainID   uint64          `gorm:"column:chain_id;not null;uniqueIndex:uniq_wallet_token" json:"chain_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:decimal(50,20);not null;default:0" json:"balance"`
	UpdatedAt time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Balance) TableName() string {
	return "balance"
}
