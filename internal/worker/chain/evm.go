package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"web3-treasury/pkg/utils"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 费率策略（gwei/百分比）
const (
	maxPriorityFeeGwei = 3
	feeMultiplierNum   = 15 // 1.5x
	feeMultiplierDen   = 10
	gasBufferPct       = 20
)

type evmSigner struct {
	client         *ethclient.Client
	keystore       Keystore
	chainID        *big.Int
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// NewEvmSigner 创建以太坊系签名网关
func NewEvmSigner(client *ethclient.Client, keystore Keystore, chainID uint64, confirmTimeout time.Duration, logger *zap.Logger) Signer {
	if confirmTimeout <= 0 {
		confirmTimeout = 3 * time.Minute
	}
	return &evmSigner{
		client:         client,
		keystore:       keystore,
		chainID:        new(big.Int).SetUint64(chainID),
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}
}

func (s *evmSigner) SignAndSend(ctx context.Context, req TxRequest) (PendingTx, error) {
	nonce := uint64(0)
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else {
		n, err := s.PendingNonce(ctx, req.From)
		if err != nil {
			return nil, err
		}
		nonce = n
	}

	gasFeeCap, gasTipCap := req.GasFeeCap, req.GasTipCap
	if gasFeeCap == nil || gasTipCap == nil {
		fee, err := s.FeeEstimate(ctx)
		if err != nil {
			return nil, err
		}
		gasFeeCap, gasTipCap = ComputeFeeCaps(fee)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = s.estimateWithFallback(ctx, req)
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}
	to := common.HexToAddress(req.To)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	signed, err := s.keystore.SignTx(req.From, tx, s.chainID)
	if err != nil {
		return nil, err
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}

	s.logger.Debug("transaction submitted",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.String("hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce))

	return &pendingTx{
		client:  s.client,
		hash:    signed.Hash(),
		timeout: s.confirmTimeout,
	}, nil
}

// estimateWithFallback 估算失败时按交易形态取兜底gas
func (s *evmSigner) estimateWithFallback(ctx context.Context, req TxRequest) uint64 {
	fallback := FALLBACK_NATIVE_GAS
	if len(req.Data) > 0 {
		fallback = FALLBACK_TOKEN_GAS
	}
	est, err := s.EstimateGas(ctx, req)
	if err != nil {
		s.logger.Warn("gas estimation failed, using fallback",
			zap.Uint64("fallback", fallback), zap.Error(err))
		return fallback
	}
	return est * (100 + gasBufferPct) / 100
}

func (s *evmSigner) BalanceOf(ctx context.Context, address, tokenAddress string, decimals int32) (decimal.Decimal, error) {
	if tokenAddress == "" {
		raw, err := s.client.BalanceAt(ctx, common.HexToAddress(address), nil)
		if err != nil {
			return decimal.Zero, fmt.Errorf("get native balance: %w", err)
		}
		return utils.AdjustDecimals(raw, decimals), nil
	}

	token := common.HexToAddress(tokenAddress)
	result, err := s.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: BalanceOfCallData(address),
	}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("call balanceOf on %s: %w", tokenAddress, err)
	}
	raw, err := ParseUint256Result(result)
	if err != nil {
		return decimal.Zero, err
	}
	return utils.AdjustDecimals(raw, decimals), nil
}

// Call 只读合约调用
func (s *evmSigner) Call(ctx context.Context, to string, data []byte) ([]byte, error) {
	addr := common.HexToAddress(to)
	return s.client.CallContract(ctx, ethereum.CallMsg{
		To:   &addr,
		Data: data,
	}, nil)
}

func (s *evmSigner) FeeEstimate(ctx context.Context) (*FeeData, error) {
	baseFee, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	tip, err := s.client.SuggestGasTipCap(ctx)
	if err != nil {
		// 部分节点不支持，回退到固定优先费
		tip = gweiToWei(maxPriorityFeeGwei)
	}
	return &FeeData{BaseFee: baseFee, PriorityFee: tip}, nil
}

func (s *evmSigner) EstimateGas(ctx context.Context, req TxRequest) (uint64, error) {
	from := common.HexToAddress(req.From)
	to := common.HexToAddress(req.To)
	return s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: req.Value,
		Data:  req.Data,
	})
}

func (s *evmSigner) PendingNonce(ctx context.Context, address string) (uint64, error) {
	return s.client.PendingNonceAt(ctx, common.HexToAddress(address))
}

// GasPrice 返回用于费用预估的单价（baseFee+priorityFee）
func (s *evmSigner) GasPrice(fee *FeeData) *big.Int {
	_, tip := ComputeFeeCaps(fee)
	return new(big.Int).Add(fee.BaseFee, tip)
}

// ComputeFeeCaps 根据费率参数计算 maxFeePerGas / maxPriorityFeePerGas：
// 优先费不超过3 gwei，总价上限为 (base+priority)*1.5
func ComputeFeeCaps(fee *FeeData) (gasFeeCap, gasTipCap *big.Int) {
	capTip := gweiToWei(maxPriorityFeeGwei)
	gasTipCap = fee.PriorityFee
	if gasTipCap == nil || gasTipCap.Cmp(capTip) > 0 {
		gasTipCap = capTip
	}

	sum := new(big.Int).Add(fee.BaseFee, gasTipCap)
	gasFeeCap = sum.Mul(sum, big.NewInt(feeMultiplierNum))
	gasFeeCap.Div(gasFeeCap, big.NewInt(feeMultiplierDen))
	if gasFeeCap.Cmp(gasTipCap) < 0 {
		gasFeeCap = new(big.Int).Mul(gasTipCap, big.NewInt(2))
	}
	return gasFeeCap, gasTipCap
}

func gweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(1_000_000_000))
}

type pendingTx struct {
	client  *ethclient.Client
	hash    common.Hash
	timeout time.Duration
}

func (p *pendingTx) Hash() string {
	return p.hash.Hex()
}

// Wait 轮询回执直到确认或超时；超时等同链上失败，由调用方停止本轮
func (p *pendingTx) Wait(ctx context.Context) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := p.client.TransactionReceipt(ctx, p.hash)
		if err == nil && receipt != nil {
			return &Receipt{
				TxHash:  p.hash.Hex(),
				Status:  receipt.Status,
				GasUsed: receipt.GasUsed,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait receipt %s: %w", p.hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
