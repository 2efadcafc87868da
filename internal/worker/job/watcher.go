package job

import (
	"context"
	"time"

	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/model"

	"go.uber.org/zap"
)

// ConfigWatcher 调度配置变更订阅。以 updated_at 水位轮询数据库，
// 把新增/变更的配置推给调度控制器。
type ConfigWatcher struct {
	store    dao.Store
	interval time.Duration
	logger   *zap.Logger
	ch       chan *model.SchedulerConfig
}

func NewConfigWatcher(store dao.Store, interval time.Duration, logger *zap.Logger) *ConfigWatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ConfigWatcher{
		store:    store,
		interval: interval,
		logger:   logger,
		ch:       make(chan *model.SchedulerConfig, 16),
	}
}

// ConfigChanges 返回变更通知通道
func (w *ConfigWatcher) ConfigChanges() <-chan *model.SchedulerConfig {
	return w.ch
}

// Start 启动轮询，ctx取消后关闭通道
func (w *ConfigWatcher) Start(ctx context.Context) {
	go func() {
		defer close(w.ch)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		watermark := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				changed, err := w.store.Scheduler().ListChangedSince(ctx, watermark)
				if err != nil {
					w.logger.Error("poll scheduler configs failed", zap.Error(err))
					continue
				}
				for _, cfg := range changed {
					if cfg.UpdatedAt.After(watermark) {
						watermark = cfg.UpdatedAt
					}
					select {
					case w.ch <- cfg:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
}
