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

// 每批钱包数，控制费率参数的刷新节奏
const distributionBatchSize = 20

// DistributionEngine 分发引擎：按策略把金库资金分发到一批NORMAL钱包，
// 使该池/代币的活跃钱包数达到activePoolSize。
// 同一主钱包的顺序发送靠单调递增的nonce计数器保证不冲突。
type DistributionEngine struct {
	store    dao.Store
	signer   chain.Signer
	recorder *Recorder
	logger   *zap.Logger
}

func NewDistributionEngine(store dao.Store, signer chain.Signer, recorder *Recorder, logger *zap.Logger) *DistributionEngine {
	return &DistributionEngine{
		store:    store,
		signer:   signer,
		recorder: recorder,
		logger:   logger,
	}
}

// Run 执行一次分发，返回完整激活的钱包数。
// 首个链上失败立即终止整轮（fail-stop），已完成的钱包保持激活；
// 重新调用会在第3步重算缺口，天然幂等。
func (e *DistributionEngine) Run(ctx context.Context, cfg *model.DistributionConfig) (int, error) {
	token, master, err := e.resolveConfig(ctx, cfg)
	if err != nil {
		return 0, err
	}
	if err := checkFeasibility(cfg); err != nil {
		return 0, err
	}

	existing, err := e.store.Usages().CountByPoolToken(ctx, cfg.PoolID, token.TokenAddress)
	if err != nil {
		return 0, fmt.Errorf("count wallet usages: %w", err)
	}
	need := cfg.ActivePoolSize - int(existing)
	if need <= 0 {
		e.logger.Info("pool already at target size, skip distribution",
			zap.Int64("pool_id", cfg.PoolID), zap.Int64("existing", existing))
		return 0, nil
	}

	wallets, err := e.store.Wallets().SampleInactiveNormal(ctx, cfg.ChainID, need)
	if err != nil {
		return 0, fmt.Errorf("sample inactive wallets: %w", err)
	}
	if len(wallets) == 0 {
		e.logger.Warn("no inactive wallets available for distribution",
			zap.Int64("pool_id", cfg.PoolID), zap.Int("need", need))
		return 0, nil
	}

	native, err := e.store.Tokens().GetNative(ctx, cfg.ChainID)
	if err != nil {
		return 0, fmt.Errorf("resolve native token: %w", err)
	}

	// 按本轮钱包数对总额做等比例缩量，份额上下界不变
	n := len(wallets)
	nativeAmounts, err := Allocate(prorate(cfg.NativeDistributionAmount, n, cfg.ActivePoolSize),
		cfg.MinNativeDistributionAmount, cfg.MaxNativeDistributionAmount, n)
	if err != nil {
		return 0, err
	}
	tokenAmounts, err := Allocate(prorate(cfg.TokenDistributionAmount, n, cfg.ActivePoolSize),
		cfg.MinTokenDistributionAmount, cfg.MaxTokenDistributionAmount, n)
	if err != nil {
		return 0, err
	}

	nonce, err := e.signer.PendingNonce(ctx, master.Address)
	if err != nil {
		return 0, fmt.Errorf("resolve master nonce: %w", err)
	}

	activated := 0
	for start := 0; start < n; start += distributionBatchSize {
		end := min(start+distributionBatchSize, n)

		fee, err := e.signer.FeeEstimate(ctx)
		if err != nil {
			return activated, fmt.Errorf("refresh fee data: %w", err)
		}
		gasFeeCap, gasTipCap := chain.ComputeFeeCaps(fee)

		for i := start; i < end; i++ {
			wallet := wallets[i]

			err = e.fundWallet(ctx, cfg, master, wallet, native, token,
				nativeAmounts[i], tokenAmounts[i], &nonce, gasFeeCap, gasTipCap)
			if err != nil {
				e.logger.Error("distribution stopped at wallet",
					zap.Int64("pool_id", cfg.PoolID),
					zap.String("wallet", wallet.Address),
					zap.Int("activated", activated),
					zap.Error(err))
				return activated, err
			}
			activated++
		}
	}

	e.logger.Info("distribution run completed",
		zap.Int64("pool_id", cfg.PoolID), zap.Int("activated", activated))
	return activated, nil
}

func (e *DistributionEngine) resolveConfig(ctx context.Context, cfg *model.DistributionConfig) (*model.CryptoToken, *model.Wallet, error) {
	tokenID := cfg.DistributedTokenID()
	if tokenID == 0 {
		return nil, nil, fmt.Errorf("%w: distribution config %d has no pool token", apperrors.ErrInvalidPoolConfiguration, cfg.ID)
	}
	token, err := e.store.Tokens().GetByID(ctx, tokenID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve distributed token: %w", err)
	}

	master := cfg.MasterWallet
	if master == nil {
		master, err = e.store.Wallets().GetByID(ctx, cfg.MasterWalletID)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve master wallet: %w", err)
		}
	}
	if master.Status != model.WALLET_STATUS_ACTIVE {
		return nil, nil, fmt.Errorf("%w: wallet %s", apperrors.ErrMasterWalletInactive, master.Address)
	}
	return token, master, nil
}

// checkFeasibility 校验 activePoolSize*min <= total <= activePoolSize*max（native与token各自）
func checkFeasibility(cfg *model.DistributionConfig) error {
	size := decimal.NewFromInt(int64(cfg.ActivePoolSize))
	if cfg.NativeDistributionAmount.LessThan(cfg.MinNativeDistributionAmount.Mul(size)) ||
		cfg.NativeDistributionAmount.GreaterThan(cfg.MaxNativeDistributionAmount.Mul(size)) {
		return fmt.Errorf("%w: native total %s outside [%s*%d, %s*%d]",
			apperrors.ErrAllocationInfeasible, cfg.NativeDistributionAmount,
			cfg.MinNativeDistributionAmount, cfg.ActivePoolSize,
			cfg.MaxNativeDistributionAmount, cfg.ActivePoolSize)
	}
	if cfg.TokenDistributionAmount.LessThan(cfg.MinTokenDistributionAmount.Mul(size)) ||
		cfg.TokenDistributionAmount.GreaterThan(cfg.MaxTokenDistributionAmount.Mul(size)) {
		return fmt.Errorf("%w: token total %s outside [%s*%d, %s*%d]",
			apperrors.ErrAllocationInfeasible, cfg.TokenDistributionAmount,
			cfg.MinTokenDistributionAmount, cfg.ActivePoolSize,
			cfg.MaxTokenDistributionAmount, cfg.ActivePoolSize)
	}
	return nil
}

func prorate(total decimal.Decimal, need, poolSize int) decimal.Decimal {
	if need >= poolSize {
		return total
	}
	return total.Mul(decimal.NewFromInt(int64(need))).
		Div(decimal.NewFromInt(int64(poolSize))).
		Round(allocationPrecision)
}

// fundWallet 先原生币后代币地给单个钱包打款。
// 两笔都确认后才在一个账本事务里落占用记录、状态翻转、代币余额与代币交易终态。
func (e *DistributionEngine) fundWallet(
	ctx context.Context,
	cfg *model.DistributionConfig,
	master, wallet *model.Wallet,
	native, token *model.CryptoToken,
	nativeAmount, tokenAmount decimal.Decimal,
	nonce *uint64,
	gasFeeCap, gasTipCap *big.Int,
) error {
	nativeTxn := e.recorder.Pending(ctx, &model.Transaction{
		WalletID: wallet.ID,
		TokenID:  native.ID,
		Amount:   nativeAmount,
		TxnType:  model.TXN_TYPE_GAS_TRANSFER,
		ChainID:  cfg.ChainID,
		PoolID:   cfg.PoolID,
	})
	err := e.sendAndConfirm(ctx, nativeTxn, chain.TxRequest{
		From:      master.Address,
		To:        wallet.Address,
		Value:     utils.ToRawUnits(nativeAmount, native.Decimals),
		Nonce:     nonce,
		GasFeeCap: gasFeeCap,
		GasTipCap: gasTipCap,
	})
	if err != nil {
		return err
	}
	if err := e.store.Balances().Increment(ctx, wallet.ID, native.ID, true, cfg.ChainID, nativeAmount); err != nil {
		return fmt.Errorf("%w: increment native balance: %v", apperrors.ErrLedgerInconsistent, err)
	}

	tokenTxn := e.recorder.Pending(ctx, &model.Transaction{
		WalletID: wallet.ID,
		TokenID:  token.ID,
		Amount:   tokenAmount,
		TxnType:  model.TXN_TYPE_TOKEN_TRANSFER,
		ChainID:  cfg.ChainID,
		PoolID:   cfg.PoolID,
	})
	err = e.sendAndConfirm(ctx, tokenTxn, chain.TxRequest{
		From:      master.Address,
		To:        token.TokenAddress,
		Data:      chain.TransferCallData(wallet.Address, utils.ToRawUnits(tokenAmount, token.Decimals)),
		Nonce:     nonce,
		GasFeeCap: gasFeeCap,
		GasTipCap: gasTipCap,
	})
	if err != nil {
		return err
	}

	// 链上两笔均已终局，账本事务失败属于一致性缺口，只能上抛待人工对账
	err = e.store.WithTransaction(ctx, func(tx dao.Store) error {
		usage, err := tx.Usages().GetByWalletPool(ctx, wallet.ID, cfg.PoolID)
		if err != nil {
			return err
		}
		if usage == nil {
			err = tx.Usages().Create(ctx, &model.WalletUsage{
				WalletID:     wallet.ID,
				Address:      wallet.Address,
				HdIndex:      wallet.HdIndex,
				ChainID:      cfg.ChainID,
				TokenAddress: token.TokenAddress,
				PoolID:       cfg.PoolID,
			})
			if err != nil {
				return err
			}
		}
		if err := tx.Wallets().UpdateStatus(ctx, wallet.ID, model.WALLET_STATUS_ACTIVE); err != nil {
			return err
		}
		if err := tx.Balances().Increment(ctx, wallet.ID, token.ID, false, cfg.ChainID, tokenAmount); err != nil {
			return err
		}
		e.recorder.WithStore(tx).Finalize(ctx, tokenTxn, true, "")
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: activate wallet %s: %v", apperrors.ErrLedgerInconsistent, wallet.Address, err)
	}
	return nil
}

// sendAndConfirm 提交一笔交易并等待回执，成功后递增nonce计数器
func (e *DistributionEngine) sendAndConfirm(ctx context.Context, txn *model.Transaction, req chain.TxRequest) error {
	pending, err := e.signer.SignAndSend(ctx, req)
	if err != nil {
		e.recorder.Finalize(ctx, txn, false, err.Error())
		return fmt.Errorf("submit transfer: %w", err)
	}
	*req.Nonce++
	e.recorder.Submitted(ctx, txn, pending.Hash())

	receipt, err := pending.Wait(ctx)
	if err != nil {
		e.recorder.Finalize(ctx, txn, false, err.Error())
		return fmt.Errorf("await transfer: %w", err)
	}
	if receipt.Status != 1 {
		e.recorder.Finalize(ctx, txn, false, "transfer reverted on-chain")
		return fmt.Errorf("%w: transfer reverted, hash %s", apperrors.ErrOnChainFailure, receipt.TxHash)
	}
	// 代币交易的终态在账本事务内写入
	if txn.TxnType != model.TXN_TYPE_TOKEN_TRANSFER {
		e.recorder.Finalize(ctx, txn, true, "")
	}
	return nil
}
