package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PROTOCOL_UNISWAP     = "uniswap"
	PROTOCOL_QUICKSWAP   = "quickswap"
	PROTOCOL_PANCAKESWAP = "pancakeswap"
)

// Pool 链上流动性池引用，对核心只读；定义每笔交易的gas下限与滑点策略
type Pool struct {
	ID                int64           `gorm:"primaryKey" json:"id"`
	PoolAddress       string          `gorm:"column:pool_address;type:varchar(100);not null;uniqueIndex" json:"pool_address"`
	Protocol          string          `gorm:"column:protocol;type:varchar(50);not null" json:"protocol"`
	ChainID           uint64          `gorm:"column:chain_id;not null" json:"chain_id"`
	Token0ID          int64           `gorm:"column:token0_id;not null" json:"token0_id"`
	Token1ID          int64           `gorm:"column:token1_id;not null" json:"token1_id"`
	Token0            *CryptoToken    `gorm:"foreignKey:Token0ID" json:"token0,omitempty"`
	Token1            *CryptoToken    `gorm:"foreignKey:Token1ID" json:"token1,omitempty"`
	FeeTier           int64           `gorm:"column:fee_tier;not null" json:"fee_tier"`
	SlippageTolerance float64         `gorm:"column:slippage_tolerance;not null" json:"slippage_tolerance"`
	MinNativeForGas   decimal.Decimal `gorm:"column:min_native_for_gas;type:decimal(50,20);not null;default:0" json:"min_native_for_gas"`
	Active            bool            `gorm:"column:active;not null;default:true" json:"active"`
	Metadata          datatypes.JSON  `gorm:"column:metadata" json:"metadata"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Pool) TableName() string {
	return "pool"
}
