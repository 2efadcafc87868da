package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	TXN_STATUS_PENDING   = "PENDING"
	TXN_STATUS_INPROCESS = "INPROCESS"
	TXN_STATUS_SUCCESS   = "SUCCESS"
	TXN_STATUS_FAILED    = "FAILED"
)

const (
	TXN_TYPE_SWAP           = "SWAP"
	TXN_TYPE_REBALANCING    = "REBALANCING"
	TXN_TYPE_GAS_TRANSFER   = "GAS_TRANSFER"
	TXN_TYPE_TOKEN_TRANSFER = "TOKEN_TRANSFER"
	TXN_TYPE_GAS_REFILL     = "GAS_REFILL"
	TXN_TYPE_APPROVE        = "APPROVE"
)

// Transaction 一次链上操作的账本记录。
// 生命周期：提交前 PENDING，提交后写入 hash，回执后终态 SUCCESS/FAILED。
// 进入终态后不再变更。金额一律使用高精度十进制，避免多笔小额转账的舍入漂移。
type Transaction struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	WalletID        int64           `gorm:"column:wallet_id;not null;index" json:"wallet_id"`
	TokenID         int64           `gorm:"column:token_id" json:"token_id"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(50,20);not null;default:0" json:"amount"`
	TransactionHash string          `gorm:"column:transaction_hash;type:varchar(100);index" json:"transaction_hash"`
	Status          string          `gorm:"column:status;type:varchar(20);not null;default:PENDING;index" json:"status"`
	TxnType         string          `gorm:"column:txn_type;type:varchar(20);not null" json:"txn_type"`
	ChainID         uint64          `gorm:"column:chain_id;not null" json:"chain_id"`
	PoolID          int64           `gorm:"column:pool_id" json:"pool_id"`
	Params          datatypes.JSON  `gorm:"column:params" json:"params"`
	Message         string          `gorm:"column:message;type:text" json:"message"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transaction"
}

// Final 终态交易不可再修改
func (t *Transaction) Final() bool {
	return t.Status == TXN_STATUS_SUCCESS || t.Status == TXN_STATUS_FAILED
}
