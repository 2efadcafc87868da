package dao

import (
	"context"
	"errors"
	"time"
	"web3-treasury/internal/worker/model"

	"gorm.io/gorm"
)

type distConfigDAO struct {
	db *gorm.DB
}

func newDistConfigDAO(db *gorm.DB) DistConfigDAO {
	return &distConfigDAO{db: db}
}

func (d *distConfigDAO) ListEnabled(ctx context.Context) ([]*model.DistributionConfig, error) {
	var configs []*model.DistributionConfig
	err := d.db.WithContext(ctx).
		Preload("Pool").
		Preload("Pool.Token0").
		Preload("Pool.Token1").
		Preload("MasterWallet").
		Where("enabled = true").
		Find(&configs).Error
	return configs, err
}

func (d *distConfigDAO) ListReturnEnabled(ctx context.Context) ([]*model.DistributionConfig, error) {
	var configs []*model.DistributionConfig
	err := d.db.WithContext(ctx).
		Preload("Pool").
		Preload("Pool.Token0").
		Preload("Pool.Token1").
		Preload("MasterWallet").
		Where("return_enabled = true").
		Find(&configs).Error
	return configs, err
}

type schedulerDAO struct {
	db *gorm.DB
}

func newSchedulerDAO(db *gorm.DB) SchedulerDAO {
	return &schedulerDAO{db: db}
}

func (s *schedulerDAO) GetConfigByName(ctx context.Context, name string) (*model.SchedulerConfig, error) {
	var config model.SchedulerConfig
	err := s.db.WithContext(ctx).
		Where("name = ? AND enabled = true", name).
		First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (s *schedulerDAO) ListConfigs(ctx context.Context) ([]*model.SchedulerConfig, error) {
	var configs []*model.SchedulerConfig
	err := s.db.WithContext(ctx).Find(&configs).Error
	return configs, err
}

func (s *schedulerDAO) ListChangedSince(ctx context.Context, since time.Time) ([]*model.SchedulerConfig, error) {
	var configs []*model.SchedulerConfig
	err := s.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Find(&configs).Error
	return configs, err
}

func (s *schedulerDAO) UpdateLastRun(ctx context.Context, id int64, lastRun time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.SchedulerConfig{}).
		Where("id = ?", id).
		Update("last_run", lastRun).Error
}

func (s *schedulerDAO) ClearTriggerImmediately(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).
		Model(&model.SchedulerConfig{}).
		Where("id = ?", id).
		Update("trigger_immediately", false).Error
}

func (s *schedulerDAO) CreateLog(ctx context.Context, log *model.SchedulerLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

func (s *schedulerDAO) ListEnabledWalletGenConfigs(ctx context.Context) ([]*model.WalletGenerationConfig, error) {
	var configs []*model.WalletGenerationConfig
	err := s.db.WithContext(ctx).
		Where("enabled = true").
		Find(&configs).Error
	return configs, err
}
