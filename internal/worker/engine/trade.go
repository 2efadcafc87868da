package engine

import (
	"context"
	"errors"
	"fmt"

	"web3-treasury/internal/worker/adapter"
	"web3-treasury/internal/worker/apperrors"
	"web3-treasury/internal/worker/chain"
	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/model"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// TradeEngine 交易结算编排器：端到端执行一条交易请求。
// 组件内不做任何自动重试，重试属于队列层的职责。
type TradeEngine struct {
	store     dao.Store
	signer    chain.Signer
	recorder  *Recorder
	transfers *TransferService
	adapters  *adapter.Registry
	logger    *zap.Logger
}

func NewTradeEngine(
	store dao.Store,
	signer chain.Signer,
	recorder *Recorder,
	transfers *TransferService,
	adapters *adapter.Registry,
	logger *zap.Logger,
) *TradeEngine {
	return &TradeEngine{
		store:     store,
		signer:    signer,
		recorder:  recorder,
		transfers: transfers,
		adapters:  adapters,
		logger:    logger,
	}
}

// Execute 执行一条交易请求：校验池配置、选钱包（必要时应急调拨一次）、
// 保证gas下限、经协议适配器换币、绝对值回读对账。
func (e *TradeEngine) Execute(ctx context.Context, req *model.TradeRequest) (*model.TradeResult, error) {
	tradePool, tokenIn, tokenOut, err := e.resolvePool(ctx, req)
	if err != nil {
		return nil, err
	}

	wallet, err := e.selectWallet(ctx, tradePool.ChainID, tokenIn, req)
	if err != nil {
		return nil, err
	}

	protoAdapter, err := e.adapters.Resolve(tradePool.Protocol)
	if err != nil {
		return nil, err
	}

	native, err := e.store.Tokens().GetNative(ctx, tradePool.ChainID)
	if err != nil {
		return nil, fmt.Errorf("resolve native token: %w", err)
	}

	// gas下限是同步前置：补给未确认前不执行swap
	if err := e.transfers.GasRefill(ctx, tradePool, wallet, native); err != nil {
		return nil, err
	}

	params, _ := sonic.Marshal(req)
	swapTxn := e.recorder.Pending(ctx, &model.Transaction{
		WalletID: wallet.ID,
		TokenID:  tokenIn.ID,
		Amount:   req.Amount,
		TxnType:  model.TXN_TYPE_SWAP,
		ChainID:  tradePool.ChainID,
		PoolID:   tradePool.ID,
		Params:   datatypes.JSON(params),
	})

	result, err := protoAdapter.ExecuteTrade(ctx, adapter.TradeParams{
		Wallet:            wallet,
		Amount:            req.Amount,
		SlippageTolerance: tradePool.SlippageTolerance,
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		PoolAddress:       tradePool.PoolAddress,
		ChainID:           tradePool.ChainID,
		FeeTier:           tradePool.FeeTier,
		Metadata:          []byte(tradePool.Metadata),
	})
	if err != nil {
		e.recorder.Finalize(ctx, swapTxn, false, err.Error())
		return nil, fmt.Errorf("execute trade on %s: %w", tradePool.Protocol, err)
	}
	e.recorder.Submitted(ctx, swapTxn, result.TransactionHash)
	e.recorder.Finalize(ctx, swapTxn, true, "")

	if err := e.reconcile(ctx, tradePool, wallet, tokenIn, tokenOut, native); err != nil {
		return nil, err
	}

	e.logger.Info("trade settled",
		zap.Int64("pool_id", tradePool.ID),
		zap.String("wallet", wallet.Address),
		zap.String("action", req.Action),
		zap.String("amount_in", result.AmountIn.String()),
		zap.String("amount_out", result.AmountOut.String()),
		zap.String("hash", result.TransactionHash))
	return result, nil
}

// resolvePool 解析池并校验配置完整性，任何缺失都是前置条件错误
func (e *TradeEngine) resolvePool(ctx context.Context, req *model.TradeRequest) (*model.Pool, *model.CryptoToken, *model.CryptoToken, error) {
	tradePool, err := e.store.Pools().GetByID(ctx, req.PoolID)
	if err != nil {
		// 引用不存在的池是合法的队列输入，归入配置错误而不是系统错误
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, nil, fmt.Errorf("%w: pool %d does not exist", apperrors.ErrInvalidPoolConfiguration, req.PoolID)
		}
		return nil, nil, nil, fmt.Errorf("resolve pool %d: %w", req.PoolID, err)
	}
	if !tradePool.Active {
		return nil, nil, nil, fmt.Errorf("%w: pool %d is inactive", apperrors.ErrInvalidPoolConfiguration, tradePool.ID)
	}
	if tradePool.Token0 == nil || tradePool.Token1 == nil ||
		tradePool.Token0.TokenAddress == "" || tradePool.Token1.TokenAddress == "" {
		return nil, nil, nil, fmt.Errorf("%w: pool %d has incomplete token references", apperrors.ErrInvalidPoolConfiguration, tradePool.ID)
	}
	if tradePool.SlippageTolerance <= 0 || tradePool.FeeTier <= 0 || !tradePool.MinNativeForGas.IsPositive() {
		return nil, nil, nil, fmt.Errorf("%w: pool %d missing slippage/fee/gas-floor", apperrors.ErrInvalidPoolConfiguration, tradePool.ID)
	}

	// buy 以token0换token1，sell 反向
	switch req.Action {
	case model.TRADE_ACTION_BUY:
		return tradePool, tradePool.Token0, tradePool.Token1, nil
	case model.TRADE_ACTION_SELL:
		return tradePool, tradePool.Token1, tradePool.Token0, nil
	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown trade action %q", apperrors.ErrInvalidPoolConfiguration, req.Action)
	}
}

// selectWallet 按缓存余额选一个有足额输入代币的钱包。
// 一次都选不出时做一次应急调拨（FUNDING→GAS_STATION）再试，仍无则NoEligibleWallet。
func (e *TradeEngine) selectWallet(ctx context.Context, chainID uint64, tokenIn *model.CryptoToken, req *model.TradeRequest) (*model.Wallet, error) {
	wallet, err := e.findEligible(ctx, tokenIn, req)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	e.logger.Warn("no eligible wallet, attempting emergency rebalance",
		zap.Int64("pool_id", req.PoolID),
		zap.String("token", tokenIn.TokenSymbol),
		zap.String("amount", req.Amount.String()))
	if err := e.transfers.EmergencyRebalance(ctx, chainID, tokenIn, req.Amount); err != nil {
		return nil, err
	}

	wallet, err = e.findEligible(ctx, tokenIn, req)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("%w: token %s amount %s",
			apperrors.ErrNoEligibleWallet, tokenIn.TokenSymbol, req.Amount)
	}
	return wallet, nil
}

func (e *TradeEngine) findEligible(ctx context.Context, tokenIn *model.CryptoToken, req *model.TradeRequest) (*model.Wallet, error) {
	balances, err := e.store.Balances().FindEligible(ctx, tokenIn.ID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("find eligible wallets: %w", err)
	}
	for _, b := range balances {
		if b.Wallet == nil {
			continue
		}
		// 应急调拨后资金落在GAS_STATION中转钱包上，复试时一并纳入
		if b.Wallet.Type == model.WALLET_TYPE_NORMAL || b.Wallet.Type == model.WALLET_TYPE_GAS_STATION {
			return b.Wallet, nil
		}
	}
	return nil, nil
}

// reconcile 并发回读三个余额并以绝对值覆盖缓存。
// 滑点与gas消耗使增量算术不可靠，这里必须用链上实值。
func (e *TradeEngine) reconcile(ctx context.Context, tradePool *model.Pool, wallet *model.Wallet, tokenIn, tokenOut, native *model.CryptoToken) error {
	p := pool.New().WithErrors().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		balance, err := e.signer.BalanceOf(ctx, wallet.Address, tokenIn.TokenAddress, tokenIn.Decimals)
		if err != nil {
			return fmt.Errorf("re-read %s balance: %w", tokenIn.TokenSymbol, err)
		}
		return e.store.Balances().Set(ctx, wallet.ID, tokenIn.ID, false, tradePool.ChainID, balance)
	})
	p.Go(func(ctx context.Context) error {
		balance, err := e.signer.BalanceOf(ctx, wallet.Address, tokenOut.TokenAddress, tokenOut.Decimals)
		if err != nil {
			return fmt.Errorf("re-read %s balance: %w", tokenOut.TokenSymbol, err)
		}
		return e.store.Balances().Set(ctx, wallet.ID, tokenOut.ID, false, tradePool.ChainID, balance)
	})
	p.Go(func(ctx context.Context) error {
		balance, err := e.signer.BalanceOf(ctx, wallet.Address, "", native.Decimals)
		if err != nil {
			return fmt.Errorf("re-read native balance: %w", err)
		}
		return e.store.Balances().Set(ctx, wallet.ID, native.ID, true, tradePool.ChainID, balance)
	})

	if err := p.Wait(); err != nil {
		return fmt.Errorf("%w: reconcile balances: %v", apperrors.ErrLedgerInconsistent, err)
	}
	return nil
}
