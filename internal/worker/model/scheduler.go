package model

import "time"

const (
	SCHEDULER_TASK_WALLET_GENERATION  = "WalletGeneration"
	SCHEDULER_TASK_TOKEN_DISTRIBUTION = "TokenDistribution"
)

// SchedulerConfig 定时任务配置，cron 表达式为标准5段式
type SchedulerConfig struct {
	ID                 int64      `gorm:"primaryKey" json:"id"`
	Name               string     `gorm:"column:name;type:varchar(50);not null;uniqueIndex" json:"name"`
	CronExpression     string     `gorm:"column:cron_expression;type:varchar(100);not null" json:"cron_expression"`
	Description        string     `gorm:"column:description;type:text" json:"description"`
	Enabled            bool       `gorm:"column:enabled;not null;default:true" json:"enabled"`
	TriggerImmediately bool       `gorm:"column:trigger_immediately;not null;default:false" json:"trigger_immediately"`
	LastRun            *time.Time `gorm:"column:last_run" json:"last_run"`
	NextRun            *time.Time `gorm:"column:next_run" json:"next_run"`
	Version            int        `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (SchedulerConfig) TableName() string {
	return "scheduler_config"
}

// SchedulerLog 每次任务运行的结果记录
type SchedulerLog struct {
	ID                int64     `gorm:"primaryKey" json:"id"`
	SchedulerConfigID int64     `gorm:"column:scheduler_config_id;not null;index" json:"scheduler_config_id"`
	StartTime         time.Time `gorm:"column:start_time;not null" json:"start_time"`
	EndTime           time.Time `gorm:"column:end_time;not null" json:"end_time"`
	AffectedRows      int       `gorm:"column:affected_rows;not null;default:0" json:"affected_rows"`
	Message           string    `gorm:"column:message;type:text" json:"message"`
	Success           bool      `gorm:"column:success;not null;default:false" json:"success"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"created_at"`
}

func (SchedulerLog) TableName() string {
	return "scheduler_log"
}

// WalletGenerationConfig 钱包生成配置
type WalletGenerationConfig struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	Count          int       `gorm:"column:count;not null" json:"count"`
	Enabled        bool      `gorm:"column:enabled;not null;default:true" json:"enabled"`
	DerivationPath string    `gorm:"column:derivation_path;type:varchar(100);not null" json:"derivation_path"`
	ChainID        uint64    `gorm:"column:chain_id;not null" json:"chain_id"`
	Network        string    `gorm:"column:network;type:varchar(50);not null" json:"network"`
	SeedVersion    int       `gorm:"column:seed_version;not null;default:1" json:"seed_version"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (WalletGenerationConfig) TableName() string {
	return "wallet_generation_config"
}
