package config

import (
	"fmt"
	"web3-treasury/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 定义整个配置的结构
type Config struct {
	Log             LogConfig       `mapstructure:"log"`
	Kafka           KafkaConfig     `mapstructure:"kafka"`
	Redis           RedisConfig     `mapstructure:"redis"`
	Postgres        PostgresConfig  `mapstructure:"postgres"`
	Worker          WorkerConfig    `mapstructure:"worker"`
	Monitor         MonitorConfig   `mapstructure:"monitor"`
	Chain           ChainConfig     `mapstructure:"chain"`
	PriceFeed       PriceFeedConfig `mapstructure:"price_feed"`
	EvmClientRawUrl string          `mapstructure:"evm_client_rawurl"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	TopicTrade string `mapstructure:"topic_trade"`
	GroupID    string `mapstructure:"group_id"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// WorkerConfig 交易worker配置，默认并发为1以避免共享签名钱包的nonce竞争
type WorkerConfig struct {
	WorkerNum int `mapstructure:"worker_num"`
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

// ChainConfig 链上交互配置
type ChainConfig struct {
	ChainID            uint64 `mapstructure:"chain_id"`
	MasterSeedHex      string `mapstructure:"master_seed_hex"`
	ConfirmTimeoutSec  int    `mapstructure:"confirm_timeout_sec"`
	ConfigPollInterval int    `mapstructure:"config_poll_interval_sec"`
}

// PriceFeedConfig 外部报价服务配置
type PriceFeedConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	RateLimit int    `mapstructure:"rate_limit"`
	Timeout   int    `mapstructure:"timeout"`
}

func InitConfig() Config {
	var config Config

	viper.SetConfigName("config.worker")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config/")

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	if err := mapstructure.Decode(viper.AllSettings(), &config); err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	if config.Worker.WorkerNum <= 0 {
		config.Worker.WorkerNum = 1
	}

	return config
}

func WatchConfig(config *Config) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := InitConfig()
		*config = newConfig
		logger.SetLogLevel(config.Log.Level)
	})
}
