package chain

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// 估算gas失败时的固定兜底值
	FALLBACK_NATIVE_GAS = uint64(21000)
	FALLBACK_TOKEN_GAS  = uint64(100000)
)

// FeeData 链上费率参数
type FeeData struct {
	BaseFee     *big.Int
	PriorityFee *big.Int
}

// Receipt 交易回执，Status==1 表示成功
type Receipt struct {
	TxHash  string
	Status  uint64
	GasUsed uint64
}

// PendingTx 已提交待确认的交易
type PendingTx interface {
	Hash() string
	Wait(ctx context.Context) (*Receipt, error)
}

// TxRequest 一笔待签名交易。Nonce 为 nil 时由签名网关解析 pending nonce；
// GasLimit 为 0 时先估算、失败则按是否带 calldata 取兜底值。
type TxRequest struct {
	From      string
	To        string
	Value     *big.Int
	Data      []byte
	Nonce     *uint64
	GasLimit  uint64
	GasFeeCap *big.Int
	GasTipCap *big.Int
}

// Signer 签名网关，按钱包身份签名并提交链上交易，屏蔽私钥托管细节。
// tokenAddress 为空表示原生币。
type Signer interface {
	SignAndSend(ctx context.Context, req TxRequest) (PendingTx, error)
	BalanceOf(ctx context.Context, address, tokenAddress string, decimals int32) (decimal.Decimal, error)
	Call(ctx context.Context, to string, data []byte) ([]byte, error)
	FeeEstimate(ctx context.Context) (*FeeData, error)
	EstimateGas(ctx context.Context, req TxRequest) (uint64, error)
	PendingNonce(ctx context.Context, address string) (uint64, error)
	GasPrice(fee *FeeData) *big.Int
}
