package repository

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"web3-treasury/internal/worker/config"
	"web3-treasury/internal/worker/model"
	"web3-treasury/pkg/database"
	"web3-treasury/pkg/evm_client"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var once sync.Once
var r *repositoryImpl

func New(cfg config.Config, logger *zap.Logger) Repository {
	once.Do(func() {
		r = &repositoryImpl{
			cfg:    cfg,
			logger: logger,
		}
		r.init()
	})
	return r
}

type repositoryImpl struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *gorm.DB
	mainRdb   *redis.Client
	mq        *kafka.Writer
	evmClient *ethclient.Client
}

func (r *repositoryImpl) init() {
	var err error
	r.db, err = database.InitPG(r.cfg.Postgres.DSN)

	if err != nil {
		panic(err)
	}

	// 初始化 Main RDB
	r.mainRdb = redis.NewClient(&redis.Options{
		Addr:     r.cfg.Redis.Address,
		Password: r.cfg.Redis.Password,
		DB:       r.cfg.Redis.DB,
		PoolSize: 20,
	})

	if err := r.mainRdb.Ping(context.Background()).Err(); err != nil {
		r.logger.Warn("failed to connect to redis, continue", zap.Error(err))
	}

	brokers := strings.Split(r.cfg.Kafka.Brokers, ",")
	r.mq = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        r.cfg.Kafka.TopicTrade,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  5,
		WriteTimeout: 500 * time.Millisecond,
	}

	// 初始化rpc client
	r.evmClient = evm_client.Init(r.cfg.EvmClientRawUrl, r.cfg.Chain.ChainID)
}

func (r *repositoryImpl) GetMainRDB() *redis.Client {
	return r.mainRdb
}

func (r *repositoryImpl) GetDB() *gorm.DB {
	return r.db
}

func (r *repositoryImpl) GetMQ() MQClient {
	return r.mq
}

func (r *repositoryImpl) GetEvmClient() *ethclient.Client {
	return r.evmClient
}

func (r *repositoryImpl) EnqueueTrade(ctx context.Context, req *model.TradeRequest) error {
	payload, err := sonic.Marshal(req)
	if err != nil {
		return err
	}
	return r.mq.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(req.PoolID, 10)),
		Value: payload,
	})
}

func (r *repositoryImpl) Close() error {
	if r.db != nil {
		sqlDB, _ := r.db.DB()
		sqlDB.Close()
	}
	if r.mainRdb != nil {
		r.mainRdb.Close()
	}
	if r.mq != nil {
		r.mq.Close()
	}
	if r.evmClient != nil {
		r.evmClient.Close()
	}
	return nil
}
