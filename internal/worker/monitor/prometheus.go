package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	// KafkaMessagesReceived Kafka 消费相关
	KafkaMessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_received_total",
			Help: "Total number of messages received from Kafka.",
		},
		[]string{"topic"},
	)
	KafkaWorkerMessagesDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_consumer_worker_dispatch_count_total",
			Help: "Number of tasks assigned to each trade worker.",
		},
		[]string{"worker_id"},
	)
	KafkaWorkerMessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_worker_messages_processed_total",
			Help: "Total number of messages processed by each trade consumer worker.",
		},
		[]string{"worker_id"},
	)
	KafkaWorkerProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_worker_process_duration_seconds",
			Help:    "Time taken to process a message by each trade consumer worker.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"worker_id"},
	)

	// TradesSettled 结算指标
	TradesSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_settled_total",
			Help: "Total number of trade requests settled, by outcome.",
		},
		[]string{"outcome"},
	)
	TradeSettleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trade_settle_duration_seconds",
			Help:    "End-to-end settlement time per trade request.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// WalletsActivated 金库再平衡指标
	WalletsActivated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "treasury_wallets_activated_total",
			Help: "Total number of wallets activated by distribution runs.",
		},
	)
	WalletsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "treasury_wallets_swept_total",
			Help: "Total number of wallets swept back by return runs.",
		},
	)
	RebalanceRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "treasury_rebalance_run_duration_seconds",
			Help:    "Duration of distribution/return runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		// kafka指标
		KafkaMessagesReceived,
		KafkaWorkerMessagesDispatched,
		KafkaWorkerMessagesProcessed,
		KafkaWorkerProcessDuration,

		// 结算与再平衡指标
		TradesSettled,
		TradeSettleDuration,
		WalletsActivated,
		WalletsSwept,
		RebalanceRunDuration,
	)
}
