package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 任务状态机：Disabled → Scheduled → Running → Scheduled|Disabled
const (
	TASK_STATE_DISABLED  = "Disabled"
	TASK_STATE_SCHEDULED = "Scheduled"
	TASK_STATE_RUNNING   = "Running"
)

// TaskFunc 定义作业执行函数，返回受影响的行数
type TaskFunc func(ctx context.Context) (int, error)

// Scheduler 任务调度控制器。启动时装载启用中的调度配置按cron表达式排期，
// 运行中消费配置变更通知做校验-撤销-重排，每次运行落一条SchedulerLog。
type Scheduler struct {
	cron   *cron.Cron
	store  dao.Store
	logger *zap.Logger

	mu      sync.Mutex
	tasks   map[string]TaskFunc
	entries map[string]cron.EntryID
	states  map[string]string
}

// NewScheduler 创建调度控制器
func NewScheduler(store dao.Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		store:   store,
		logger:  logger,
		tasks:   make(map[string]TaskFunc),
		entries: make(map[string]cron.EntryID),
		states:  make(map[string]string),
	}
}

// Register 注册命名任务
func (s *Scheduler) Register(name string, fn TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[name] = fn
	s.states[name] = TASK_STATE_DISABLED
	s.logger.Info("Registered task", zap.String("task", name))
}

// Start 装载启用中的配置并启动调度。changes 为配置变更通知，可为nil。
func (s *Scheduler) Start(ctx context.Context, changes <-chan *model.SchedulerConfig) error {
	s.mu.Lock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		cfg, err := s.store.Scheduler().GetConfigByName(ctx, name)
		if err != nil {
			return fmt.Errorf("load scheduler config %s: %w", name, err)
		}
		if cfg == nil {
			s.logger.Info("task has no enabled config, stays disabled", zap.String("task", name))
			continue
		}
		if err := s.apply(ctx, cfg); err != nil {
			return err
		}
	}

	s.cron.Start()
	if changes != nil {
		go s.watchChanges(ctx, changes)
	}
	return nil
}

// Stop 停止调度，等待在跑的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// State 返回任务当前状态
func (s *Scheduler) State(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[name]; ok {
		return state
	}
	return TASK_STATE_DISABLED
}

func (s *Scheduler) watchChanges(ctx context.Context, changes <-chan *model.SchedulerConfig) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-changes:
			if !ok {
				return
			}
			if err := s.apply(ctx, cfg); err != nil {
				s.logger.Error("apply scheduler config change failed",
					zap.String("task", cfg.Name), zap.Error(err))
			}
		}
	}
}

// apply 校验-撤销-重排一个配置；配置要求立即触发时跑一次并清除标志
func (s *Scheduler) apply(ctx context.Context, cfg *model.SchedulerConfig) error {
	s.mu.Lock()
	fn, registered := s.tasks[cfg.Name]
	s.mu.Unlock()
	if !registered {
		s.logger.Warn("scheduler config for unregistered task ignored", zap.String("task", cfg.Name))
		return nil
	}

	if _, err := cron.ParseStandard(cfg.CronExpression); err != nil {
		return fmt.Errorf("invalid cron expression %q for task %s: %w", cfg.CronExpression, cfg.Name, err)
	}

	s.mu.Lock()
	if entryID, ok := s.entries[cfg.Name]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, cfg.Name)
		s.states[cfg.Name] = TASK_STATE_DISABLED
	}
	s.mu.Unlock()

	if cfg.Enabled {
		configID := cfg.ID
		entryID, err := s.cron.AddFunc(cfg.CronExpression, func() {
			s.runTask(context.Background(), cfg.Name, configID, fn)
		})
		if err != nil {
			return fmt.Errorf("schedule task %s: %w", cfg.Name, err)
		}
		s.mu.Lock()
		s.entries[cfg.Name] = entryID
		s.states[cfg.Name] = TASK_STATE_SCHEDULED
		s.mu.Unlock()
		s.logger.Info("task scheduled",
			zap.String("task", cfg.Name), zap.String("cron", cfg.CronExpression))
	}

	if cfg.TriggerImmediately {
		s.runTask(ctx, cfg.Name, cfg.ID, fn)
		if err := s.store.Scheduler().ClearTriggerImmediately(ctx, cfg.ID); err != nil {
			s.logger.Error("clear trigger flag failed",
				zap.String("task", cfg.Name), zap.Error(err))
		}
	}
	return nil
}

// runTask 执行一次任务并落运行日志；任务失败不上抛，只体现在日志记录里。
// 任务还在Running时跳过本次触发，同名任务不并发
func (s *Scheduler) runTask(ctx context.Context, name string, configID int64, fn TaskFunc) {
	s.mu.Lock()
	if s.states[name] == TASK_STATE_RUNNING {
		s.mu.Unlock()
		s.logger.Warn("task still running, skip this fire", zap.String("task", name))
		return
	}
	prev := s.states[name]
	s.states[name] = TASK_STATE_RUNNING
	s.mu.Unlock()

	start := time.Now()
	affected, err := fn(ctx)
	end := time.Now()

	s.mu.Lock()
	if prev == TASK_STATE_SCHEDULED {
		s.states[name] = TASK_STATE_SCHEDULED
	} else {
		s.states[name] = TASK_STATE_DISABLED
	}
	s.mu.Unlock()

	log := &model.SchedulerLog{
		SchedulerConfigID: configID,
		StartTime:         start,
		EndTime:           end,
		AffectedRows:      affected,
		Success:           err == nil,
	}
	if err != nil {
		log.Message = err.Error()
		s.logger.Error("task run failed",
			zap.String("task", name),
			zap.Int("affected", affected),
			zap.Duration("elapsed", end.Sub(start)),
			zap.Error(err))
	} else {
		s.logger.Info("task run completed",
			zap.String("task", name),
			zap.Int("affected", affected),
			zap.Duration("elapsed", end.Sub(start)))
	}

	if err := s.store.Scheduler().CreateLog(ctx, log); err != nil {
		s.logger.Error("write scheduler log failed", zap.String("task", name), zap.Error(err))
	}
	if err := s.store.Scheduler().UpdateLastRun(ctx, configID, start); err != nil {
		s.logger.Error("update last run failed", zap.String("task", name), zap.Error(err))
	}
}
