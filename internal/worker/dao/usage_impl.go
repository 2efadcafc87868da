package dao

import (
	"context"
	"errors"
	"web3-treasury/internal/worker/model"

	"gorm.io/gorm"
)

type walletUsageDAO struct {
	db *gorm.DB
}

func newWalletUsageDAO(db *gorm.DB) WalletUsageDAO {
	return &walletUsageDAO{db: db}
}

func (u *walletUsageDAO) CountByPoolToken(ctx context.Context, poolID int64, tokenAddress string) (int64, error) {
	var count int64
	err := u.db.WithContext(ctx).
		Model(&model.WalletUsage{}).
		Where("pool_id = ? AND token_address = ?", poolID, tokenAddress).
		Count(&count).Error
	return count, err
}

func (u *walletUsageDAO) ListByChain(ctx context.Context, chainID uint64) ([]*model.WalletUsage, error) {
	var usages []*model.WalletUsage
	err := u.db.WithContext(ctx).
		Preload("Wallet").
		Where("chain_id = ?", chainID).
		Order("id").
		Find(&usages).Error
	return usages, err
}

func (u *walletUsageDAO) ListByToken(ctx context.Context, tokenAddress string) ([]*model.WalletUsage, error) {
	var usages []*model.WalletUsage
	err := u.db.WithContext(ctx).
		Preload("Wallet").
		Where("token_address = ?", tokenAddress).
		Find(&usages).Error
	return usages, err
}

func (u *walletUsageDAO) GetByWalletPool(ctx context.Context, walletID, poolID int64) (*model.WalletUsage, error) {
	var usage model.WalletUsage
	err := u.db.WithContext(ctx).
		Where("wallet_id = ? AND pool_id = ?", walletID, poolID).
		First(&usage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

func (u *walletUsageDAO) Create(ctx context.Context, usage *model.WalletUsage) error {
	return u.db.WithContext(ctx).Create(usage).Error
}

func (u *walletUsageDAO) Delete(ctx context.Context, id int64) error {
	return u.db.WithContext(ctx).Delete(&model.WalletUsage{}, id).Error
}
