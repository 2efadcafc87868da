package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"web3-treasury/internal/worker/apperrors"
	"web3-treasury/internal/worker/chain"
	"web3-treasury/internal/worker/model"
	"web3-treasury/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// 授权额度放大倍数，摊薄后续交易的approve成本
	approveMultiplier = 100
	swapDeadline      = 5 * time.Minute
)

// TradeParams 一次兑换的全部入参，金额为人类可读精度
type TradeParams struct {
	Wallet            *model.Wallet
	Amount            decimal.Decimal
	SlippageTolerance float64
	TokenIn           *model.CryptoToken
	TokenOut          *model.CryptoToken
	PoolAddress       string
	ChainID           uint64
	FeeTier           int64
	Metadata          []byte
}

// ProtocolAdapter 单个DEX协议的兑换执行器
type ProtocolAdapter interface {
	Protocol() string
	ExecuteTrade(ctx context.Context, params TradeParams) (*model.TradeResult, error)
}

// Quoter 代币行情来源，用于计算最小可接受产出
type Quoter interface {
	TokenPrice(ctx context.Context, chainID uint64, tokenAddress string) (decimal.Decimal, error)
}

// Recorder 交易账本记录器，由编排层注入
type Recorder interface {
	Pending(ctx context.Context, txn *model.Transaction) *model.Transaction
	Submitted(ctx context.Context, txn *model.Transaction, hash string)
	Finalize(ctx context.Context, txn *model.Transaction, success bool, message string)
}

// Registry 协议适配器注册表。协议集合是封闭的，
// 新协议需要在此处显式挂载，未知协议返回 ErrUnsupportedProtocol。
type Registry struct {
	Uniswap     ProtocolAdapter
	Quickswap   ProtocolAdapter
	Pancakeswap ProtocolAdapter
}

// Resolve 按协议名解析适配器
func (r *Registry) Resolve(protocol string) (ProtocolAdapter, error) {
	switch protocol {
	case model.PROTOCOL_UNISWAP:
		if r.Uniswap != nil {
			return r.Uniswap, nil
		}
	case model.PROTOCOL_QUICKSWAP:
		if r.Quickswap != nil {
			return r.Quickswap, nil
		}
	case model.PROTOCOL_PANCAKESWAP:
		if r.Pancakeswap != nil {
			return r.Pancakeswap, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedProtocol, protocol)
}

// poolMetadata 池元数据中与适配器相关的字段
type poolMetadata struct {
	RouterAddress string `json:"router_address"`
}

func parseRouter(metadata []byte) (string, error) {
	var meta poolMetadata
	if len(metadata) > 0 {
		if err := sonic.Unmarshal(metadata, &meta); err != nil {
			return "", fmt.Errorf("parse pool metadata: %w", err)
		}
	}
	if meta.RouterAddress == "" {
		return "", fmt.Errorf("%w: missing router address in pool metadata", apperrors.ErrInvalidPoolConfiguration)
	}
	return meta.RouterAddress, nil
}

// baseAdapter 各协议适配器的公共部分：授权检查、滑点换算、路由调用与结果核算
type baseAdapter struct {
	signer   chain.Signer
	quoter   Quoter
	recorder Recorder
	logger   *zap.Logger
}

// ensureAllowance 检查并在不足时提升授权额度。
// 授权金额为所需量的100倍，摊薄后续交易成本；授权本身作为APPROVE交易入账。
func (b *baseAdapter) ensureAllowance(ctx context.Context, params TradeParams, router string, amountIn *big.Int) error {
	result, err := b.signer.Call(ctx, params.TokenIn.TokenAddress,
		chain.AllowanceCallData(params.Wallet.Address, router))
	if err != nil {
		return fmt.Errorf("read allowance: %w", err)
	}
	allowance, err := chain.ParseUint256Result(result)
	if err != nil {
		return err
	}
	if allowance.Cmp(amountIn) >= 0 {
		return nil
	}

	approveAmount := new(big.Int).Mul(amountIn, big.NewInt(approveMultiplier))
	txn := b.recorder.Pending(ctx, &model.Transaction{
		WalletID: params.Wallet.ID,
		TokenID:  params.TokenIn.ID,
		Amount:   utils.AdjustDecimals(approveAmount, params.TokenIn.Decimals),
		TxnType:  model.TXN_TYPE_APPROVE,
		ChainID:  params.ChainID,
	})

	pending, err := b.signer.SignAndSend(ctx, chain.TxRequest{
		From: params.Wallet.Address,
		To:   params.TokenIn.TokenAddress,
		Data: chain.ApproveCallData(router, approveAmount),
	})
	if err != nil {
		b.recorder.Finalize(ctx, txn, false, err.Error())
		return fmt.Errorf("submit approve: %w", err)
	}
	b.recorder.Submitted(ctx, txn, pending.Hash())

	receipt, err := pending.Wait(ctx)
	if err != nil {
		b.recorder.Finalize(ctx, txn, false, err.Error())
		return fmt.Errorf("await approve: %w", err)
	}
	if receipt.Status != 1 {
		b.recorder.Finalize(ctx, txn, false, "approve reverted on-chain")
		return fmt.Errorf("%w: approve reverted, hash %s", apperrors.ErrOnChainFailure, receipt.TxHash)
	}
	b.recorder.Finalize(ctx, txn, true, "")

	b.logger.Info("allowance raised",
		zap.String("wallet", params.Wallet.Address),
		zap.String("token", params.TokenIn.TokenAddress),
		zap.String("router", router),
		zap.String("hash", receipt.TxHash))
	return nil
}

// minAmountOut 按行情价与滑点容忍度换算最小可接受产出（tokenOut原始单位）
func (b *baseAdapter) minAmountOut(ctx context.Context, params TradeParams) (*big.Int, error) {
	priceIn, err := b.quoter.TokenPrice(ctx, params.ChainID, params.TokenIn.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", params.TokenIn.TokenSymbol, err)
	}
	priceOut, err := b.quoter.TokenPrice(ctx, params.ChainID, params.TokenOut.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", params.TokenOut.TokenSymbol, err)
	}
	if priceOut.IsZero() {
		return nil, fmt.Errorf("zero price for %s", params.TokenOut.TokenSymbol)
	}

	expected := params.Amount.Mul(priceIn).Div(priceOut)
	tolerance := decimal.NewFromFloat(1 - params.SlippageTolerance)
	return utils.ToRawUnits(expected.Mul(tolerance), params.TokenOut.Decimals), nil
}

// swap 提交路由调用并等待确认，产出按tokenOut余额差核算
func (b *baseAdapter) swap(ctx context.Context, params TradeParams, router string, calldata []byte) (*model.TradeResult, error) {
	outBefore, err := b.signer.BalanceOf(ctx, params.Wallet.Address, params.TokenOut.TokenAddress, params.TokenOut.Decimals)
	if err != nil {
		return nil, fmt.Errorf("read pre-swap balance: %w", err)
	}

	pending, err := b.signer.SignAndSend(ctx, chain.TxRequest{
		From: params.Wallet.Address,
		To:   router,
		Data: calldata,
	})
	if err != nil {
		return nil, fmt.Errorf("submit swap: %w", err)
	}
	receipt, err := pending.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("await swap: %w", err)
	}
	if receipt.Status != 1 {
		return nil, fmt.Errorf("%w: swap reverted, hash %s", apperrors.ErrOnChainFailure, receipt.TxHash)
	}

	outAfter, err := b.signer.BalanceOf(ctx, params.Wallet.Address, params.TokenOut.TokenAddress, params.TokenOut.Decimals)
	if err != nil {
		return nil, fmt.Errorf("read post-swap balance: %w", err)
	}

	return &model.TradeResult{
		TransactionHash: receipt.TxHash,
		Status:          receipt.Status,
		AmountIn:        params.Amount,
		AmountOut:       outAfter.Sub(outBefore),
		DecimalsIn:      params.TokenIn.Decimals,
		DecimalsOut:     params.TokenOut.Decimals,
	}, nil
}

func deadlineUnix() *big.Int {
	return big.NewInt(time.Now().Add(swapDeadline).Unix())
}

func mustABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid router abi: %v", err))
	}
	return parsed
}
