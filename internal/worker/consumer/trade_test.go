package consumer

import (
	"context"
	"testing"
	"time"

	"web3-treasury/internal/worker/config"
	"web3-treasury/internal/worker/model"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConsumer(t *testing.T, ctx context.Context) *TradeConsumer {
	t.Helper()
	conf := config.Config{
		Kafka: config.KafkaConfig{
			Brokers:    "127.0.0.1:9092",
			TopicTrade: "web3_treasury_trade",
			GroupID:    "test_group",
		},
		Worker: config.WorkerConfig{WorkerNum: 1},
	}
	tc := NewTradeConsumer(conf, zap.NewNop(), nil)
	tc.ctx = ctx
	return tc
}

func tradeMessage(t *testing.T, req model.TradeRequest) kafka.Message {
	t.Helper()
	payload, err := sonic.Marshal(req)
	require.NoError(t, err)
	return kafka.Message{Value: payload}
}

func TestHandleMessageDropsMalformed(t *testing.T) {
	tc := newTestConsumer(t, context.Background())

	tc.HandleMessage(kafka.Message{Value: []byte("not-json")})
	tc.HandleMessage(tradeMessage(t, model.TradeRequest{PoolID: 0, Action: model.TRADE_ACTION_BUY, Amount: decimal.RequireFromString("1")}))
	tc.HandleMessage(tradeMessage(t, model.TradeRequest{PoolID: 1, Action: model.TRADE_ACTION_BUY, Amount: decimal.Zero}))
	assert.Empty(t, tc.buffers[0])

	tc.HandleMessage(tradeMessage(t, model.TradeRequest{PoolID: 1, Action: model.TRADE_ACTION_BUY, Amount: decimal.RequireFromString("100")}))
	assert.Len(t, tc.buffers[0], 1)
}

func TestDispatchBlocksUntilWorkerFrees(t *testing.T) {
	tc := newTestConsumer(t, context.Background())

	// 填满worker buffer
	req := model.TradeRequest{PoolID: 1, Action: model.TRADE_ACTION_BUY, Amount: decimal.RequireFromString("1")}
	for i := 0; i < cap(tc.buffers[0]); i++ {
		tc.dispatch(req)
	}
	require.Len(t, tc.buffers[0], cap(tc.buffers[0]))

	// buffer满时不丢消息，阻塞到有worker腾出位置
	delivered := make(chan struct{})
	go func() {
		tc.dispatch(req)
		close(delivered)
	}()

	select {
	case <-delivered:
		t.Fatal("dispatch must block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	<-tc.buffers[0]
	assert.Eventually(t, func() bool {
		select {
		case <-delivered:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.Len(t, tc.buffers[0], cap(tc.buffers[0]))
}

func TestDispatchAbortsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tc := newTestConsumer(t, ctx)

	req := model.TradeRequest{PoolID: 1, Action: model.TRADE_ACTION_BUY, Amount: decimal.RequireFromString("1")}
	for i := 0; i < cap(tc.buffers[0]); i++ {
		tc.dispatch(req)
	}

	cancel()
	done := make(chan struct{})
	go func() {
		tc.dispatch(req)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
