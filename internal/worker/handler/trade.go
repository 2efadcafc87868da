package handler

import (
	"context"
	"time"

	"web3-treasury/internal/worker/engine"
	"web3-treasury/internal/worker/model"
	"web3-treasury/internal/worker/monitor"

	"go.uber.org/zap"
)

// TradeHandler 把队列里的交易请求交给结算编排器。
// 组件内不重试，失败只记日志与指标，重投递由队列层决定。
type TradeHandler struct {
	tl     *zap.Logger
	trades *engine.TradeEngine
}

func NewTradeHandler(logger *zap.Logger, trades *engine.TradeEngine) *TradeHandler {
	return &TradeHandler{
		tl:     logger,
		trades: trades,
	}
}

func (h *TradeHandler) HandleTrade(ctx context.Context, req *model.TradeRequest) {
	start := time.Now()
	result, err := h.trades.Execute(ctx, req)
	if err != nil {
		monitor.TradesSettled.WithLabelValues("failed").Inc()
		h.tl.Error("trade settlement failed",
			zap.Int64("pool_id", req.PoolID),
			zap.String("action", req.Action),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return
	}

	monitor.TradesSettled.WithLabelValues("success").Inc()
	monitor.TradeSettleDuration.Observe(time.Since(start).Seconds())
	h.tl.Info("trade settlement completed",
		zap.Int64("pool_id", req.PoolID),
		zap.String("hash", result.TransactionHash),
		zap.String("amount_out", result.AmountOut.String()))
}
