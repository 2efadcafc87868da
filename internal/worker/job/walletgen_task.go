package job

import (
	"context"
	"fmt"

	"web3-treasury/internal/worker/chain"
	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/model"
	"web3-treasury/pkg/utils"

	"go.uber.org/zap"
)

// WalletGenTask 钱包生成任务：从托管种子按递增索引派生新地址，
// 事务化落库为inactive的NORMAL钱包。
type WalletGenTask struct {
	store    dao.Store
	keystore chain.Keystore
	logger   *zap.Logger
}

func NewWalletGenTask(store dao.Store, keystore chain.Keystore, logger *zap.Logger) *WalletGenTask {
	return &WalletGenTask{
		store:    store,
		keystore: keystore,
		logger:   logger,
	}
}

// Run 返回新建的钱包数
func (t *WalletGenTask) Run(ctx context.Context) (int, error) {
	configs, err := t.store.Scheduler().ListEnabledWalletGenConfigs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list wallet generation configs: %w", err)
	}

	created := 0
	for _, cfg := range configs {
		n, err := t.generate(ctx, cfg)
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func (t *WalletGenTask) generate(ctx context.Context, cfg *model.WalletGenerationConfig) (int, error) {
	maxIndex, err := t.store.Wallets().MaxHdIndex(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve max derivation index: %w", err)
	}

	created := 0
	err = t.store.WithTransaction(ctx, func(tx dao.Store) error {
		for i := 1; i <= cfg.Count; i++ {
			index := maxIndex + i
			address, err := t.keystore.Derive(index)
			if err != nil {
				return fmt.Errorf("derive wallet at index %d: %w", index, err)
			}
			address = utils.ChecksumAddress(address)

			exists, err := tx.Wallets().ExistsByAddress(ctx, address)
			if err != nil {
				return err
			}
			if exists {
				t.logger.Warn("derived address already exists, skip",
					zap.String("address", address), zap.Int("hd_index", index))
				continue
			}

			err = tx.Wallets().Create(ctx, &model.Wallet{
				Address: address,
				HdIndex: index,
				Type:    model.WALLET_TYPE_NORMAL,
				Status:  model.WALLET_STATUS_INACTIVE,
				ChainID: cfg.ChainID,
			})
			if err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	t.logger.Info("wallet generation completed",
		zap.Int64("config_id", cfg.ID), zap.Int("created", created))
	return created, nil
}
