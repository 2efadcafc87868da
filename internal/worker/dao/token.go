package dao

import (
	"context"
	"web3-treasury/internal/worker/model"
)

// TokenDAO 定义代币数据访问接口。
// 找不到记录时返回 apperrors.ErrNotFound，不返回 nil, nil。
type TokenDAO interface {
	// GetByID 通过ID查询代币
	GetByID(ctx context.Context, id int64) (*model.CryptoToken, error)

	// GetNative 获取指定链的原生币记录
	GetNative(ctx context.Context, chainID uint64) (*model.CryptoToken, error)
}

// PoolDAO 定义池数据访问接口，池对核心只读
type PoolDAO interface {
	// GetByID 通过ID查询池（带token0/token1）
	GetByID(ctx context.Context, id int64) (*model.Pool, error)
}
