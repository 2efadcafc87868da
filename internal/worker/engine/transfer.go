package engine

import (
	"context"
	"fmt"

	"web3-treasury/internal/worker/apperrors"
	"web3-treasury/internal/worker/chain"
	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/model"
	"web3-treasury/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferService 角色钱包之间的资金调度：gas补给与应急再平衡。
// 两类操作都同步等待链上确认，调用方在确认前不得继续。
type TransferService struct {
	store    dao.Store
	signer   chain.Signer
	recorder *Recorder
	logger   *zap.Logger
}

func NewTransferService(store dao.Store, signer chain.Signer, recorder *Recorder, logger *zap.Logger) *TransferService {
	return &TransferService{
		store:    store,
		signer:   signer,
		recorder: recorder,
		logger:   logger,
	}
}

// GasRefill 检查钱包原生币余额是否达到池的gas下限，不足时由gas station
// 补到下限并等待确认。补给本身作为GAS_REFILL交易入账。
func (s *TransferService) GasRefill(ctx context.Context, pool *model.Pool, wallet *model.Wallet, native *model.CryptoToken) error {
	balance, err := s.signer.BalanceOf(ctx, wallet.Address, "", native.Decimals)
	if err != nil {
		return fmt.Errorf("read native balance: %w", err)
	}
	if balance.GreaterThanOrEqual(pool.MinNativeForGas) {
		return nil
	}

	gasStation, err := s.store.Wallets().GetRoleWallet(ctx, model.WALLET_TYPE_GAS_STATION)
	if err != nil {
		return fmt.Errorf("resolve gas station wallet: %w", err)
	}

	amount := pool.MinNativeForGas.Sub(balance)
	txn := s.recorder.Pending(ctx, &model.Transaction{
		WalletID: wallet.ID,
		TokenID:  native.ID,
		Amount:   amount,
		TxnType:  model.TXN_TYPE_GAS_REFILL,
		ChainID:  pool.ChainID,
		PoolID:   pool.ID,
	})
	err = s.submitAndAwait(ctx, txn, chain.TxRequest{
		From:  gasStation.Address,
		To:    wallet.Address,
		Value: utils.ToRawUnits(amount, native.Decimals),
	})
	if err != nil {
		return err
	}

	if err := s.store.Balances().Increment(ctx, wallet.ID, native.ID, true, pool.ChainID, amount); err != nil {
		return fmt.Errorf("%w: increment native balance: %v", apperrors.ErrLedgerInconsistent, err)
	}

	s.logger.Info("gas refill confirmed",
		zap.String("wallet", wallet.Address),
		zap.String("amount", amount.String()),
		zap.Int64("pool_id", pool.ID))
	return nil
}

// EmergencyRebalance 从FUNDING钱包调拨amount的指定代币到GAS_STATION中转钱包。
// FUNDING的链上余额不足时直接放弃（不入账、不上链），由调用方决定后续。
func (s *TransferService) EmergencyRebalance(ctx context.Context, chainID uint64, token *model.CryptoToken, amount decimal.Decimal) error {
	funding, err := s.store.Wallets().GetRoleWallet(ctx, model.WALLET_TYPE_FUNDING)
	if err != nil {
		return fmt.Errorf("resolve funding wallet: %w", err)
	}
	gasStation, err := s.store.Wallets().GetRoleWallet(ctx, model.WALLET_TYPE_GAS_STATION)
	if err != nil {
		return fmt.Errorf("resolve gas station wallet: %w", err)
	}

	available, err := s.signer.BalanceOf(ctx, funding.Address, token.TokenAddress, token.Decimals)
	if err != nil {
		return fmt.Errorf("read funding balance: %w", err)
	}
	if available.LessThan(amount) {
		s.logger.Warn("emergency rebalance abandoned, funding wallet underfunded",
			zap.String("funding", funding.Address),
			zap.String("available", available.String()),
			zap.String("needed", amount.String()))
		return nil
	}

	txn := s.recorder.Pending(ctx, &model.Transaction{
		WalletID: gasStation.ID,
		TokenID:  token.ID,
		Amount:   amount,
		TxnType:  model.TXN_TYPE_REBALANCING,
		ChainID:  chainID,
	})
	req := chain.TxRequest{From: funding.Address}
	if token.IsNative || token.TokenAddress == "" {
		req.To = gasStation.Address
		req.Value = utils.ToRawUnits(amount, token.Decimals)
	} else {
		req.To = token.TokenAddress
		req.Data = chain.TransferCallData(gasStation.Address, utils.ToRawUnits(amount, token.Decimals))
	}
	if err := s.submitAndAwait(ctx, txn, req); err != nil {
		return err
	}

	isNative := token.IsNative || token.TokenAddress == ""
	if err := s.store.Balances().Increment(ctx, gasStation.ID, token.ID, isNative, chainID, amount); err != nil {
		return fmt.Errorf("%w: increment gas station balance: %v", apperrors.ErrLedgerInconsistent, err)
	}

	s.logger.Info("emergency rebalance confirmed",
		zap.String("from", funding.Address),
		zap.String("to", gasStation.Address),
		zap.String("amount", amount.String()))
	return nil
}

func (s *TransferService) submitAndAwait(ctx context.Context, txn *model.Transaction, req chain.TxRequest) error {
	pending, err := s.signer.SignAndSend(ctx, req)
	if err != nil {
		s.recorder.Finalize(ctx, txn, false, err.Error())
		return fmt.Errorf("submit transfer: %w", err)
	}
	s.recorder.Submitted(ctx, txn, pending.Hash())

	receipt, err := pending.Wait(ctx)
	if err != nil {
		s.recorder.Finalize(ctx, txn, false, err.Error())
		return fmt.Errorf("await transfer: %w", err)
	}
	if receipt.Status != 1 {
		s.recorder.Finalize(ctx, txn, false, "transfer reverted on-chain")
		return fmt.Errorf("%w: transfer reverted, hash %s", apperrors.ErrOnChainFailure, receipt.TxHash)
	}
	s.recorder.Finalize(ctx, txn, true, "")
	return nil
}
