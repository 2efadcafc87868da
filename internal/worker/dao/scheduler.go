package dao

import (
	"context"
	"time"
	"web3-treasury/internal/worker/model"
)

// DistConfigDAO 分发/回收策略的数据访问接口
type DistConfigDAO interface {
	// ListEnabled 列出启用中的分发策略（带池与主钱包）
	ListEnabled(ctx context.Context) ([]*model.DistributionConfig, error)

	// ListReturnEnabled 列出启用回收的策略（带池与主钱包）
	ListReturnEnabled(ctx context.Context) ([]*model.DistributionConfig, error)
}

// SchedulerDAO 调度配置/日志/钱包生成配置的数据访问接口
type SchedulerDAO interface {
	// GetConfigByName 按任务名查询启用中的调度配置
	GetConfigByName(ctx context.Context, name string) (*model.SchedulerConfig, error)

	// ListConfigs 列出全部调度配置
	ListConfigs(ctx context.Context) ([]*model.SchedulerConfig, error)

	// ListChangedSince 列出指定时间后有变更的调度配置（变更通知轮询用）
	ListChangedSince(ctx context.Context, since time.Time) ([]*model.SchedulerConfig, error)

	// UpdateLastRun 更新任务的上次运行时间
	UpdateLastRun(ctx context.Context, id int64, lastRun time.Time) error

	// ClearTriggerImmediately 清除一次性立即触发标志
	ClearTriggerImmediately(ctx context.Context, id int64) error

	// CreateLog 写入一次运行日志
	CreateLog(ctx context.Context, log *model.SchedulerLog) error

	// ListEnabledWalletGenConfigs 列出启用中的钱包生成配置
	ListEnabledWalletGenConfigs(ctx context.Context) ([]*model.WalletGenerationConfig, error)
}
