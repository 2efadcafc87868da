package consumer

import (
	"context"
	"strconv"
	"time"
	"web3-treasury/internal/worker/config"
	"web3-treasury/internal/worker/handler"
	"web3-treasury/internal/worker/model"
	"web3-treasury/internal/worker/monitor"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TradeConsumer 交易请求消费者。worker默认为1：结算会从共享的角色钱包发起
// 链上交易，并发越高nonce竞争越重。按池ID分发保证同池请求串行。
type TradeConsumer struct {
	*Consumer
	id           string
	workerSize   int
	buffers      []chan model.TradeRequest
	tradeHandler *handler.TradeHandler
	ctx          context.Context
}

// NewTradeConsumer 创建 TradeConsumer 实例
func NewTradeConsumer(conf config.Config, logger *zap.Logger, tradeHandler *handler.TradeHandler) *TradeConsumer {
	newConsumer := NewConsumer(conf.Kafka, logger, conf.Kafka.TopicTrade)

	workerSize := conf.Worker.WorkerNum
	buffers := make([]chan model.TradeRequest, workerSize)
	for i := 0; i < workerSize; i++ {
		buffers[i] = make(chan model.TradeRequest, 256)
	}

	return &TradeConsumer{
		id:           "trade_consumer",
		workerSize:   workerSize,
		Consumer:     newConsumer,
		buffers:      buffers,
		tradeHandler: tradeHandler,
	}
}

// Run 启动trade消费者
func (tc *TradeConsumer) Run(ctx context.Context) {
	tc.ctx = ctx
	for i := 0; i < tc.workerSize; i++ {
		idx := i
		go func() {
			workerID := strconv.Itoa(idx)
			for {
				select {
				case req, ok := <-tc.buffers[idx]:
					if !ok {
						tc.logger.Warn("buffer is closed", zap.String("consumerID", tc.id), zap.Int("idx", idx))
						return
					}
					startTime := time.Now()
					tc.tradeHandler.HandleTrade(ctx, &req)

					elapsed := time.Since(startTime).Seconds()
					monitor.KafkaWorkerMessagesProcessed.WithLabelValues(workerID).Inc()
					monitor.KafkaWorkerProcessDuration.WithLabelValues(workerID).Observe(elapsed)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	tc.Consumer.Start(ctx, tc)
}

// HandleMessage 实现 MessageHandler 接口
func (tc *TradeConsumer) HandleMessage(msg kafka.Message) {
	monitor.KafkaMessagesReceived.WithLabelValues("trade").Inc()

	var req model.TradeRequest
	if err := sonic.Unmarshal(msg.Value, &req); err != nil {
		tc.logger.Warn("JSON parse error",
			zap.String("consumerID", tc.id), zap.Error(err), zap.String("raw", string(msg.Value)))
		return
	}
	if req.PoolID <= 0 || !req.Amount.IsPositive() {
		tc.logger.Warn("drop malformed trade request",
			zap.Int64("pool_id", req.PoolID), zap.String("amount", req.Amount.String()))
		return
	}

	tc.dispatch(req)
}

func (tc *TradeConsumer) ID() string {
	return tc.id
}

// Stop 停止trade消费者
func (tc *TradeConsumer) Stop() error {
	if err := tc.Consumer.Stop(); err != nil {
		return err
	}
	for i := 0; i < tc.workerSize; i++ {
		close(tc.buffers[i])
	}
	return nil
}

// dispatch 按池ID分组，同一个池的请求落到同一个worker串行处理。
// 消息已从Kafka读出，buffer满时阻塞等待而不是丢弃，仅在进程退出时放弃
func (tc *TradeConsumer) dispatch(req model.TradeRequest) {
	idx := uint32(req.PoolID) % uint32(tc.workerSize)

	select {
	case tc.buffers[idx] <- req:
		monitor.KafkaWorkerMessagesDispatched.WithLabelValues(strconv.Itoa(int(idx))).Inc()
	case <-tc.ctx.Done():
		tc.logger.Warn("dispatch aborted on shutdown",
			zap.String("consumerID", tc.id), zap.Uint32("idx", idx), zap.Int64("pool_id", req.PoolID))
	}
}
