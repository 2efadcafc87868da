package worker

import (
	"context"
	"fmt"
	"time"

	"web3-treasury/internal/worker/adapter"
	"web3-treasury/internal/worker/chain"
	"web3-treasury/internal/worker/config"
	"web3-treasury/internal/worker/consumer"
	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/engine"
	"web3-treasury/internal/worker/handler"
	"web3-treasury/internal/worker/job"
	"web3-treasury/internal/worker/model"
	"web3-treasury/internal/worker/monitor"
	"web3-treasury/internal/worker/repository"
	"web3-treasury/pkg/pricefeed"

	"go.uber.org/zap"
)

type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	repo      repository.Repository
	store     dao.Store
	keystore  chain.Keystore
	scheduler *job.Scheduler
	watcher   *job.ConfigWatcher
	consumers []consumer.KafkaConsumer
	metrics   *monitor.MetricsServer
}

func New(cfg config.Config, logger *zap.Logger) *Core {
	// 初始化repo与账本Store
	repo := repository.New(cfg, logger)
	store := dao.NewStore(repo.GetDB(), repo.GetMainRDB(), logger)

	// 私钥托管与签名网关
	keystore, err := chain.NewLocalKeystore(cfg.Chain.MasterSeedHex)
	if err != nil {
		panic(fmt.Errorf("init keystore: %w", err))
	}
	signer := chain.NewEvmSigner(
		repo.GetEvmClient(),
		keystore,
		cfg.Chain.ChainID,
		time.Duration(cfg.Chain.ConfirmTimeoutSec)*time.Second,
		logger,
	)

	recorder := engine.NewRecorder(store, logger)
	quoter := pricefeed.NewClient(pricefeed.Config{
		BaseURL:   cfg.PriceFeed.BaseURL,
		APIKey:    cfg.PriceFeed.APIKey,
		RateLimit: cfg.PriceFeed.RateLimit,
		Timeout:   cfg.PriceFeed.Timeout,
	}, logger)

	registry := &adapter.Registry{
		Uniswap:     adapter.NewUniswapAdapter(signer, quoter, recorder, logger),
		Quickswap:   adapter.NewQuickswapAdapter(signer, quoter, recorder, logger),
		Pancakeswap: adapter.NewPancakeswapAdapter(signer, quoter, recorder, logger),
	}

	transfers := engine.NewTransferService(store, signer, recorder, logger)
	distribution := engine.NewDistributionEngine(store, signer, recorder, logger)
	returns := engine.NewReturnEngine(store, signer, recorder, logger)
	trades := engine.NewTradeEngine(store, signer, recorder, transfers, registry, logger)

	// 注册调度任务
	scheduler := job.NewScheduler(store, logger)
	distTask := job.NewDistributionTask(store, distribution, returns, logger)
	scheduler.Register(model.SCHEDULER_TASK_TOKEN_DISTRIBUTION, func(ctx context.Context) (int, error) {
		start := time.Now()
		affected, err := distTask.Run(ctx)
		monitor.RebalanceRunDuration.WithLabelValues("distribution").Observe(time.Since(start).Seconds())
		return affected, err
	})
	walletGen := job.NewWalletGenTask(store, keystore, logger)
	scheduler.Register(model.SCHEDULER_TASK_WALLET_GENERATION, walletGen.Run)

	watcher := job.NewConfigWatcher(store,
		time.Duration(cfg.Chain.ConfigPollInterval)*time.Second, logger)

	// 初始化消费者
	tradeHandler := handler.NewTradeHandler(logger, trades)
	consumers := []consumer.KafkaConsumer{
		consumer.NewTradeConsumer(cfg, logger, tradeHandler),
	}

	return &Core{
		cfg:       cfg,
		tl:        logger,
		repo:      repo,
		store:     store,
		keystore:  keystore,
		scheduler: scheduler,
		watcher:   watcher,
		consumers: consumers,
		metrics:   monitor.NewMetricsServer(cfg.Monitor),
	}
}

func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting worker core...")
	if c.metrics != nil {
		c.metrics.Run()
	}

	// 重建托管钱包的派生密钥，托管是种子确定性的，同索引必得同地址
	if err := c.warmKeystore(ctx); err != nil {
		c.tl.Error("keystore warm-up failed", zap.Error(err))
	}

	// 启动配置变更订阅与调度器
	c.watcher.Start(ctx)
	if err := c.scheduler.Start(ctx, c.watcher.ConfigChanges()); err != nil {
		c.tl.Error("scheduler start failed", zap.Error(err))
	}

	// 启动消费者
	for _, cons := range c.consumers {
		go cons.Run(ctx)
	}
	c.tl.Info("Worker started successfully")

	<-ctx.Done()
	c.tl.Info("Shutting down worker due to context cancellation...")
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping worker core...")

	for _, cons := range c.consumers {
		cons.Stop()
	}
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	if c.metrics != nil {
		_ = c.metrics.Stop(ctx)
	}
	c.repo.Close()

	c.tl.Info("Worker core stopped.")
}

func (c *Core) warmKeystore(ctx context.Context) error {
	maxIndex, err := c.store.Wallets().MaxHdIndex(ctx)
	if err != nil {
		return err
	}
	for i := 0; i <= maxIndex; i++ {
		if _, err := c.keystore.Derive(i); err != nil {
			return fmt.Errorf("derive index %d: %w", i, err)
		}
	}
	c.tl.Info("keystore warmed", zap.Int("keys", maxIndex+1))
	return nil
}
