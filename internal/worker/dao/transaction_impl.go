package dao

import (
	"context"
	"errors"
	"fmt"
	"web3-treasury/internal/worker/apperrors"
	"web3-treasury/internal/worker/model"

	"gorm.io/gorm"
)

type transactionDAO struct {
	db *gorm.DB
}

func newTransactionDAO(db *gorm.DB) TransactionDAO {
	return &transactionDAO{db: db}
}

func (t *transactionDAO) Create(ctx context.Context, txn *model.Transaction) error {
	return t.db.WithContext(ctx).Create(txn).Error
}

func (t *transactionDAO) Update(ctx context.Context, id int64, update TxnUpdate) error {
	fields := map[string]interface{}{}
	if update.TransactionHash != nil {
		fields["transaction_hash"] = *update.TransactionHash
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.Message != nil {
		fields["message"] = *update.Message
	}
	if len(fields) == 0 {
		return nil
	}
	return t.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (t *transactionDAO) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var txn model.Transaction
	err := t.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: transaction %d", apperrors.ErrNotFound, id)
		}
		return nil, err
	}
	return &txn, nil
}
