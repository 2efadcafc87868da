package repository

import (
	"context"

	"web3-treasury/internal/worker/model"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type RedisClient = *redis.Client
type DBClient = *gorm.DB
type MQClient = *kafka.Writer

type Repository interface {
	//DB
	GetMainRDB() RedisClient
	GetDB() DBClient
	GetMQ() MQClient
	GetEvmClient() *ethclient.Client
	// EnqueueTrade 将交易请求投递到交易主题（至少一次）
	EnqueueTrade(ctx context.Context, req *model.TradeRequest) error
	Close() error
}
