package job

import (
	"context"
	"fmt"
	"time"

	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/engine"
	"web3-treasury/internal/worker/monitor"

	"go.uber.org/zap"
)

// DistributionTask 金库再平衡任务：先跑启用中的分发策略，
// 再跑到期的回收策略。策略间相互独立，单个策略失败不影响其余。
type DistributionTask struct {
	store        dao.Store
	distribution *engine.DistributionEngine
	returns      *engine.ReturnEngine
	logger       *zap.Logger
}

func NewDistributionTask(store dao.Store, distribution *engine.DistributionEngine, returns *engine.ReturnEngine, logger *zap.Logger) *DistributionTask {
	return &DistributionTask{
		store:        store,
		distribution: distribution,
		returns:      returns,
		logger:       logger,
	}
}

// Run 返回激活+回收的钱包总数；任何策略失败时汇总后上抛首个错误
func (t *DistributionTask) Run(ctx context.Context) (int, error) {
	now := time.Now()
	affected := 0
	var firstErr error

	configs, err := t.store.DistConfigs().ListEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("list enabled distribution configs: %w", err)
	}
	for _, cfg := range configs {
		if !cfg.ExpireAt.IsZero() && now.After(cfg.ExpireAt) {
			t.logger.Info("distribution config expired, skip",
				zap.Int64("config_id", cfg.ID), zap.Time("expire_at", cfg.ExpireAt))
			continue
		}
		activated, err := t.distribution.Run(ctx, cfg)
		affected += activated
		monitor.WalletsActivated.Add(float64(activated))
		if err != nil {
			t.logger.Error("distribution run failed",
				zap.Int64("config_id", cfg.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	returnConfigs, err := t.store.DistConfigs().ListReturnEnabled(ctx)
	if err != nil {
		return affected, fmt.Errorf("list return-enabled configs: %w", err)
	}
	for _, cfg := range returnConfigs {
		if now.Before(cfg.ReturnAfter) {
			continue
		}
		swept, err := t.returns.Run(ctx, cfg)
		affected += swept
		monitor.WalletsSwept.Add(float64(swept))
		if err != nil {
			t.logger.Error("return run failed",
				zap.Int64("config_id", cfg.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return affected, firstErr
}
