package model

import "github.com/shopspring/decimal"

const (
	TRADE_ACTION_BUY  = "buy"
	TRADE_ACTION_SELL = "sell"
)

// TradeRequest 交易请求，经由 Kafka 至少一次投递
type TradeRequest struct {
	PoolID int64           `json:"pool_id"`
	Action string          `json:"action"`
	Amount decimal.Decimal `json:"amount"`
}

// TradeResult 适配器执行结果，金额为人类可读精度
type TradeResult struct {
	TransactionHash string          `json:"transaction_hash"`
	Status          uint64          `json:"status"`
	AmountIn        decimal.Decimal `json:"amount_in"`
	AmountOut       decimal.Decimal `json:"amount_out"`
	DecimalsIn      int32           `json:"decimals_in"`
	DecimalsOut     int32           `json:"decimals_out"`
}
