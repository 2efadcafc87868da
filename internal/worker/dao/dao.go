package dao

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store 聚合所有账本DAO。WithTransaction 是钱包/占用/余额一致性的唯一互斥手段，
// 事务内拿到的 Store 绑定同一个数据库事务。
type Store interface {
	Wallets() WalletDAO
	Tokens() TokenDAO
	Pools() PoolDAO
	Usages() WalletUsageDAO
	Balances() BalanceDAO
	Transactions() TransactionDAO
	DistConfigs() DistConfigDAO
	Scheduler() SchedulerDAO
	WithTransaction(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db     *gorm.DB
	rds    *redis.Client
	logger *zap.Logger

	wallets      WalletDAO
	tokens       TokenDAO
	pools        PoolDAO
	usages       WalletUsageDAO
	balances     BalanceDAO
	transactions TransactionDAO
	distConfigs  DistConfigDAO
	scheduler    SchedulerDAO
}

// NewStore 创建基于gorm的Store实例
func NewStore(db *gorm.DB, rds *redis.Client, logger *zap.Logger) Store {
	s := &gormStore{db: db, rds: rds, logger: logger}
	s.wallets = newWalletDAO(db)
	s.tokens = newTokenDAO(db, rds)
	s.pools = newPoolDAO(db, rds)
	s.usages = newWalletUsageDAO(db)
	s.balances = newBalanceDAO(db)
	s.transactions = newTransactionDAO(db)
	s.distConfigs = newDistConfigDAO(db)
	s.scheduler = newSchedulerDAO(db)
	return s
}

func (s *gormStore) Wallets() WalletDAO             { return s.wallets }
func (s *gormStore) Tokens() TokenDAO               { return s.tokens }
func (s *gormStore) Pools() PoolDAO                 { return s.pools }
func (s *gormStore) Usages() WalletUsageDAO         { return s.usages }
func (s *gormStore) Balances() BalanceDAO           { return s.balances }
func (s *gormStore) Transactions() TransactionDAO   { return s.transactions }
func (s *gormStore) DistConfigs() DistConfigDAO     { return s.distConfigs }
func (s *gormStore) Scheduler() SchedulerDAO        { return s.scheduler }

func (s *gormStore) WithTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx, s.rds, s.logger))
	})
}
