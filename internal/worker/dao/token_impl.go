package dao

import (
	"context"
	"errors"
	"fmt"
	"time"
	"web3-treasury/internal/worker/model"

	"web3-treasury/internal/worker/apperrors"

	"github.com/bytedance/sonic"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type tokenDAO struct {
	db         *gorm.DB
	rds        *redis.Client
	localCache *cache.Cache
}

func newTokenDAO(db *gorm.DB, rds *redis.Client) TokenDAO {
	return &tokenDAO{
		db:         db,
		rds:        rds,
		localCache: cache.New(10*time.Minute, time.Minute),
	}
}

func tokenCacheKey(id int64) string {
	return fmt.Sprintf("treasury:token:%d", id)
}

// GetByID 代币定义几乎不变，走两级缓存
func (t *tokenDAO) GetByID(ctx context.Context, id int64) (*model.CryptoToken, error) {
	cacheKey := tokenCacheKey(id)

	if cached, found := t.localCache.Get(cacheKey); found {
		if token, ok := cached.(*model.CryptoToken); ok {
			return token, nil
		}
	}

	if t.rds != nil {
		cached, err := t.rds.Get(ctx, cacheKey).Result()
		if err == nil {
			var token model.CryptoToken
			if sonic.Unmarshal([]byte(cached), &token) == nil {
				t.localCache.Set(cacheKey, &token, cache.DefaultExpiration)
				return &token, nil
			}
		}
	}

	var token model.CryptoToken
	err := t.db.WithContext(ctx).Where("id = ?", id).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: token %d", apperrors.ErrNotFound, id)
		}
		return nil, err
	}

	t.localCache.Set(cacheKey, &token, cache.DefaultExpiration)
	if t.rds != nil {
		if data, err := sonic.Marshal(&token); err == nil {
			t.rds.Set(ctx, cacheKey, string(data), 15*time.Minute)
		}
	}
	return &token, nil
}

func (t *tokenDAO) GetNative(ctx context.Context, chainID uint64) (*model.CryptoToken, error) {
	var token model.CryptoToken
	err := t.db.WithContext(ctx).
		Where("chain_id = ? AND is_native = true", chainID).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no native token for chain %d", apperrors.ErrNotFound, chainID)
		}
		return nil, err
	}
	return &token, nil
}

type poolDAO struct {
	db         *gorm.DB
	rds        *redis.Client
	localCache *cache.Cache
}

func newPoolDAO(db *gorm.DB, rds *redis.Client) PoolDAO {
	return &poolDAO{
		db:         db,
		rds:        rds,
		localCache: cache.New(5*time.Minute, time.Minute),
	}
}

func poolCacheKey(id int64) string {
	return fmt.Sprintf("treasury:pool:%d", id)
}

func (p *poolDAO) GetByID(ctx context.Context, id int64) (*model.Pool, error) {
	cacheKey := poolCacheKey(id)

	if cached, found := p.localCache.Get(cacheKey); found {
		if pool, ok := cached.(*model.Pool); ok {
			return pool, nil
		}
	}

	if p.rds != nil {
		cached, err := p.rds.Get(ctx, cacheKey).Result()
		if err == nil {
			var pool model.Pool
			if sonic.Unmarshal([]byte(cached), &pool) == nil {
				p.localCache.Set(cacheKey, &pool, cache.DefaultExpiration)
				return &pool, nil
			}
		}
	}

	var pool model.Pool
	err := p.db.WithContext(ctx).
		Preload("Token0").
		Preload("Token1").
		Where("id = ?", id).
		First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: pool %d", apperrors.ErrNotFound, id)
		}
		return nil, err
	}

	p.localCache.Set(cacheKey, &pool, cache.DefaultExpiration)
	if p.rds != nil {
		if data, err := sonic.Marshal(&pool); err == nil {
			p.rds.Set(ctx, cacheKey, string(data), 5*time.Minute)
		}
	}
	return &pool, nil
}
