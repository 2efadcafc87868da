package engine

import (
	"context"
	"fmt"
	"math/big"

	"web3-treasury/internal/worker/apperrors"
	"web3-treasury/internal/worker/chain"
	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/model"
	"web3-treasury/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReturnEngine 回收引擎：把某池所有在用钱包的资金扫回主钱包，
// 保留配置的leftover后翻转钱包为inactive。与分发引擎互逆。
type ReturnEngine struct {
	store    dao.Store
	signer   chain.Signer
	recorder *Recorder
	logger   *zap.Logger
}

func NewReturnEngine(store dao.Store, signer chain.Signer, recorder *Recorder, logger *zap.Logger) *ReturnEngine {
	return &ReturnEngine{
		store:    store,
		signer:   signer,
		recorder: recorder,
		logger:   logger,
	}
}

// Run 执行一次回收，返回完成回收的钱包数。
// 逐钱包顺序处理，首个链上失败立即终止整轮（fail-stop）。
func (e *ReturnEngine) Run(ctx context.Context, cfg *model.DistributionConfig) (int, error) {
	master := cfg.MasterWallet
	if master == nil {
		var err error
		master, err = e.store.Wallets().GetByID(ctx, cfg.MasterWalletID)
		if err != nil {
			return 0, fmt.Errorf("resolve master wallet: %w", err)
		}
	}

	var token *model.CryptoToken
	if tokenID := cfg.DistributedTokenID(); tokenID != 0 {
		var err error
		token, err = e.store.Tokens().GetByID(ctx, tokenID)
		if err != nil {
			return 0, fmt.Errorf("resolve distributed token: %w", err)
		}
	}
	native, err := e.store.Tokens().GetNative(ctx, cfg.ChainID)
	if err != nil {
		return 0, fmt.Errorf("resolve native token: %w", err)
	}

	usages, err := e.store.Usages().ListByChain(ctx, cfg.ChainID)
	if err != nil {
		return 0, fmt.Errorf("list wallet usages: %w", err)
	}

	swept := 0
	for _, usage := range usages {
		if usage.PoolID != cfg.PoolID {
			continue
		}
		wallet := usage.Wallet
		if wallet == nil || wallet.IsRoleWallet() {
			continue
		}

		if err := e.sweepWallet(ctx, cfg, usage, wallet, master, native, token); err != nil {
			e.logger.Error("return stopped at wallet",
				zap.Int64("pool_id", cfg.PoolID),
				zap.String("wallet", wallet.Address),
				zap.Int("swept", swept),
				zap.Error(err))
			return swept, err
		}
		swept++
	}

	e.logger.Info("return run completed",
		zap.Int64("pool_id", cfg.PoolID), zap.Int("swept", swept))
	return swept, nil
}

// sweepWallet 先扫代币、再扫原生币，最后在一个账本事务里删占用并翻转状态
func (e *ReturnEngine) sweepWallet(
	ctx context.Context,
	cfg *model.DistributionConfig,
	usage *model.WalletUsage,
	wallet, master *model.Wallet,
	native *model.CryptoToken,
	token *model.CryptoToken,
) error {
	if token != nil {
		if err := e.sweepToken(ctx, cfg, wallet, master, token); err != nil {
			return err
		}
	}
	if err := e.sweepNative(ctx, cfg, wallet, master, native); err != nil {
		return err
	}

	err := e.store.WithTransaction(ctx, func(tx dao.Store) error {
		if err := tx.Usages().Delete(ctx, usage.ID); err != nil {
			return err
		}
		return tx.Wallets().UpdateStatus(ctx, wallet.ID, model.WALLET_STATUS_INACTIVE)
	})
	if err != nil {
		return fmt.Errorf("%w: deactivate wallet %s: %v", apperrors.ErrLedgerInconsistent, wallet.Address, err)
	}
	return nil
}

func (e *ReturnEngine) sweepToken(ctx context.Context, cfg *model.DistributionConfig, wallet, master *model.Wallet, token *model.CryptoToken) error {
	balance, err := e.signer.BalanceOf(ctx, wallet.Address, token.TokenAddress, token.Decimals)
	if err != nil {
		return fmt.Errorf("read token balance: %w", err)
	}
	if balance.LessThanOrEqual(cfg.MaxTokenLeftOver) {
		return nil
	}
	amount := balance.Sub(cfg.MaxTokenLeftOver)

	txn := e.recorder.Pending(ctx, &model.Transaction{
		WalletID: wallet.ID,
		TokenID:  token.ID,
		Amount:   amount,
		TxnType:  model.TXN_TYPE_TOKEN_TRANSFER,
		ChainID:  cfg.ChainID,
		PoolID:   cfg.PoolID,
	})
	err = e.sendAndConfirm(ctx, txn, chain.TxRequest{
		From: wallet.Address,
		To:   token.TokenAddress,
		Data: chain.TransferCallData(master.Address, utils.ToRawUnits(amount, token.Decimals)),
	})
	if err != nil {
		return err
	}

	if err := e.store.Balances().Set(ctx, wallet.ID, token.ID, false, cfg.ChainID, cfg.MaxTokenLeftOver); err != nil {
		return fmt.Errorf("%w: reset token balance: %v", apperrors.ErrLedgerInconsistent, err)
	}
	return nil
}

// sweepNative 扫回原生币。发送方自己付gas，所以送出额要先扣掉预估手续费；
// 保留额不够覆盖手续费时跳过本钱包（记日志），并以链上实值覆盖余额缓存。
func (e *ReturnEngine) sweepNative(ctx context.Context, cfg *model.DistributionConfig, wallet, master *model.Wallet, native *model.CryptoToken) error {
	balance, err := e.signer.BalanceOf(ctx, wallet.Address, "", native.Decimals)
	if err != nil {
		return fmt.Errorf("read native balance: %w", err)
	}
	if balance.LessThanOrEqual(cfg.MaxNativeLeftOver) {
		return nil
	}

	fee, err := e.signer.FeeEstimate(ctx)
	if err != nil {
		return fmt.Errorf("refresh fee data: %w", err)
	}
	gasPrice := e.signer.GasPrice(fee)
	feeCost := utils.AdjustDecimals(
		new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(chain.FALLBACK_NATIVE_GAS)),
		native.Decimals)

	amount := balance.Sub(cfg.MaxNativeLeftOver).Sub(feeCost)
	if amount.LessThanOrEqual(decimal.Zero) {
		e.logger.Warn("native sweep skipped, reserve cannot cover gas fee",
			zap.String("wallet", wallet.Address),
			zap.String("balance", balance.String()),
			zap.String("fee_cost", feeCost.String()))
		// 跳过分支也把缓存校正为链上实值
		if err := e.store.Balances().Set(ctx, wallet.ID, native.ID, true, cfg.ChainID, balance); err != nil {
			return fmt.Errorf("%w: refresh native balance: %v", apperrors.ErrLedgerInconsistent, err)
		}
		return nil
	}

	txn := e.recorder.Pending(ctx, &model.Transaction{
		WalletID: wallet.ID,
		TokenID:  native.ID,
		Amount:   amount,
		TxnType:  model.TXN_TYPE_GAS_TRANSFER,
		ChainID:  cfg.ChainID,
		PoolID:   cfg.PoolID,
	})
	err = e.sendAndConfirm(ctx, txn, chain.TxRequest{
		From:      wallet.Address,
		To:        master.Address,
		Value:     utils.ToRawUnits(amount, native.Decimals),
		GasLimit:  chain.FALLBACK_NATIVE_GAS,
		GasFeeCap: gasPrice,
		GasTipCap: minTip(fee, gasPrice),
	})
	if err != nil {
		return err
	}

	if err := e.store.Balances().Set(ctx, wallet.ID, native.ID, true, cfg.ChainID, cfg.MaxNativeLeftOver); err != nil {
		return fmt.Errorf("%w: reset native balance: %v", apperrors.ErrLedgerInconsistent, err)
	}
	return nil
}

func (e *ReturnEngine) sendAndConfirm(ctx context.Context, txn *model.Transaction, req chain.TxRequest) error {
	pending, err := e.signer.SignAndSend(ctx, req)
	if err != nil {
		e.recorder.Finalize(ctx, txn, false, err.Error())
		return fmt.Errorf("submit sweep: %w", err)
	}
	e.recorder.Submitted(ctx, txn, pending.Hash())

	receipt, err := pending.Wait(ctx)
	if err != nil {
		e.recorder.Finalize(ctx, txn, false, err.Error())
		return fmt.Errorf("await sweep: %w", err)
	}
	if receipt.Status != 1 {
		e.recorder.Finalize(ctx, txn, false, "sweep reverted on-chain")
		return fmt.Errorf("%w: sweep reverted, hash %s", apperrors.ErrOnChainFailure, receipt.TxHash)
	}
	e.recorder.Finalize(ctx, txn, true, "")
	return nil
}

// minTip 小费不超过总单价
func minTip(fee *chain.FeeData, gasPrice *big.Int) *big.Int {
	if fee.PriorityFee != nil && fee.PriorityFee.Cmp(gasPrice) < 0 {
		return fee.PriorityFee
	}
	return gasPrice
}
