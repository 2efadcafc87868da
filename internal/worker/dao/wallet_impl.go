package dao

import (
	"context"
	"errors"
	"fmt"
	"web3-treasury/internal/worker/apperrors"
	"web3-treasury/internal/worker/model"

	"gorm.io/gorm"
)

type walletDAO struct {
	db *gorm.DB
}

func newWalletDAO(db *gorm.DB) WalletDAO {
	return &walletDAO{db: db}
}

func (w *walletDAO) GetByID(ctx context.Context, id int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := w.db.WithContext(ctx).Where("id = ?", id).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: wallet %d", apperrors.ErrNotFound, id)
		}
		return nil, err
	}
	return &wallet, nil
}

func (w *walletDAO) GetByAddress(ctx context.Context, address string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := w.db.WithContext(ctx).Where("address = ?", address).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: wallet %s", apperrors.ErrNotFound, address)
		}
		return nil, err
	}
	return &wallet, nil
}

// SampleInactiveNormal 均匀随机抽样，依赖 Postgres 的 random() 排序
func (w *walletDAO) SampleInactiveNormal(ctx context.Context, chainID uint64, limit int) ([]*model.Wallet, error) {
	var wallets []*model.Wallet
	err := w.db.WithContext(ctx).
		Where("type = ? AND status = ? AND chain_id = ?", model.WALLET_TYPE_NORMAL, model.WALLET_STATUS_INACTIVE, chainID).
		Order("random()").
		Limit(limit).
		Find(&wallets).Error
	return wallets, err
}

func (w *walletDAO) GetRoleWallet(ctx context.Context, walletType string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := w.db.WithContext(ctx).
		Where("type = ? AND status = ?", walletType, model.WALLET_STATUS_ACTIVE).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no active %s wallet", apperrors.ErrNotFound, walletType)
		}
		return nil, err
	}
	return &wallet, nil
}

func (w *walletDAO) UpdateStatus(ctx context.Context, id int64, status string) error {
	return w.db.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (w *walletDAO) Create(ctx context.Context, wallet *model.Wallet) error {
	return w.db.WithContext(ctx).Create(wallet).Error
}

func (w *walletDAO) MaxHdIndex(ctx context.Context) (int, error) {
	var wallet model.Wallet
	err := w.db.WithContext(ctx).Order("hd_index DESC").First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return -1, nil
		}
		return -1, err
	}
	return wallet.HdIndex, nil
}

func (w *walletDAO) ExistsByAddress(ctx context.Context, address string) (bool, error) {
	var count int64
	err := w.db.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("address = ?", address).
		Count(&count).Error
	return count > 0, err
}
