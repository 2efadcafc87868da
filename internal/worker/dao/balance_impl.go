package dao

import (
	"context"
	"errors"
	"web3-treasury/internal/worker/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type balanceDAO struct {
	db *gorm.DB
}

func newBalanceDAO(db *gorm.DB) BalanceDAO {
	return &balanceDAO{db: db}
}

func (b *balanceDAO) Get(ctx context.Context, walletID, tokenID int64, isNative bool, chainID uint64) (*model.Balance, error) {
	var bal model.Balance
	err := b.db.WithContext(ctx).
		Where("wallet_id = ? AND token_id = ? AND is_native = ? AND chain_id = ?", walletID, tokenID, isNative, chainID).
		First(&bal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bal, nil
}

func (b *balanceDAO) Increment(ctx context.Context, walletID, tokenID int64, isNative bool, chainID uint64, delta decimal.Decimal) error {
	existing, err := b.Get(ctx, walletID, tokenID, isNative, chainID)
	if err != nil {
		return err
	}
	if existing == nil {
		return b.db.WithContext(ctx).Create(&model.Balance{
			WalletID: walletID,
			TokenID:  tokenID,
			IsNative: isNative,
			ChainID:  chainID,
			Balance:  delta,
		}).Error
	}
	return b.db.WithContext(ctx).
		Model(&model.Balance{}).
		Where("id = ?", existing.ID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

func (b *balanceDAO) Set(ctx context.Context, walletID, tokenID int64, isNative bool, chainID uint64, value decimal.Decimal) error {
	existing, err := b.Get(ctx, walletID, tokenID, isNative, chainID)
	if err != nil {
		return err
	}
	if existing == nil {
		return b.db.WithContext(ctx).Create(&model.Balance{
			WalletID: walletID,
			TokenID:  tokenID,
			IsNative: isNative,
			ChainID:  chainID,
			Balance:  value,
		}).Error
	}
	return b.db.WithContext(ctx).
		Model(&model.Balance{}).
		Where("id = ?", existing.ID).
		Update("balance", value).Error
}

func (b *balanceDAO) FindEligible(ctx context.Context, tokenID int64, amount decimal.Decimal) ([]*model.Balance, error) {
	var balances []*model.Balance
	err := b.db.WithContext(ctx).
		Preload("Wallet").
		Where("token_id = ? AND balance >= ?", tokenID, amount).
		Find(&balances).Error
	return balances, err
}
