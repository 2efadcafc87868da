package dao

import (
	"context"
	"web3-treasury/internal/worker/model"
)

// TxnUpdate 交易记录的部分更新，nil 字段不变
type TxnUpdate struct {
	TransactionHash *string
	Status          *string
	Message         *string
}

// TransactionDAO 账本交易记录的数据访问接口
type TransactionDAO interface {
	// Create 创建交易记录
	Create(ctx context.Context, txn *model.Transaction) error

	// Update 更新交易记录（终态记录不可变，由上层保证）
	Update(ctx context.Context, id int64, update TxnUpdate) error

	// GetByID 查询交易记录
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
}
