package engine

import (
	"context"
	"errors"
	"testing"

	"web3-treasury/internal/worker/apperrors"
	"web3-treasury/internal/worker/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type distFixture struct {
	store  *memStore
	signer *fakeSigner
	engine *DistributionEngine
	cfg    *model.DistributionConfig
	native *model.CryptoToken
	token  *model.CryptoToken
	master *model.Wallet
}

func newDistFixture(t *testing.T, walletCount int) *distFixture {
	t.Helper()
	store := newMemStore()
	signer := newFakeSigner()
	logger := zap.NewNop()

	native := store.addToken(&model.CryptoToken{
		TokenSymbol: "POL", ChainID: 137, Network: "polygon", IsNative: true, Decimals: 18,
	})
	token := store.addToken(&model.CryptoToken{
		TokenSymbol: "USDT", TokenAddress: "0x3813e82e6f7098b9583FC0F33a962D02018B6803",
		ChainID: 137, Network: "polygon", Decimals: 6,
	})
	master := store.addWallet(&model.Wallet{
		Address: "0xMaster", Type: model.WALLET_TYPE_MASTER, Status: model.WALLET_STATUS_ACTIVE, ChainID: 137,
	})
	for i := 0; i < walletCount; i++ {
		store.addWallet(&model.Wallet{
			Address: "0xNormal" + string(rune('A'+i)), HdIndex: i,
			Type: model.WALLET_TYPE_NORMAL, Status: model.WALLET_STATUS_INACTIVE, ChainID: 137,
		})
	}

	pool := &model.Pool{
		ID: 1, PoolAddress: "0xPool", Protocol: model.PROTOCOL_UNISWAP, ChainID: 137,
		Token0ID: token.ID, Token1ID: native.ID, Token0: token, Token1: native,
		Active: true,
	}
	store.pools[pool.ID] = pool

	cfg := &model.DistributionConfig{
		ID: 1, PoolID: pool.ID, Pool: pool, ChainID: 137,
		NativeDistributionAmount:    dec("0.003"),
		TokenDistributionAmount:     dec("300"),
		MinNativeDistributionAmount: dec("0.0005"),
		MaxNativeDistributionAmount: dec("0.0015"),
		MinTokenDistributionAmount:  dec("50"),
		MaxTokenDistributionAmount:  dec("150"),
		ActivePoolSize:              3,
		Enabled:                     true,
		MasterWalletID:              master.ID,
		MasterWallet:                master,
		UseToken0:                   true,
	}

	recorder := NewRecorder(store, logger)
	return &distFixture{
		store:  store,
		signer: signer,
		engine: NewDistributionEngine(store, signer, recorder, logger),
		cfg:    cfg,
		native: native,
		token:  token,
		master: master,
	}
}

func TestDistributionActivatesPool(t *testing.T) {
	f := newDistFixture(t, 3)

	activated, err := f.engine.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, activated)

	// 3个钱包激活，各有一条占用记录
	assert.Len(t, f.store.usages, 3)
	for _, w := range f.store.wallets {
		if w.Type != model.WALLET_TYPE_NORMAL {
			continue
		}
		assert.Equal(t, model.WALLET_STATUS_ACTIVE, w.Status)

		nb := f.store.balances[balanceKey(w.ID, f.native.ID, true, 137)]
		require.NotNil(t, nb)
		assert.True(t, nb.Balance.GreaterThanOrEqual(dec("0.0005")))
		assert.True(t, nb.Balance.LessThanOrEqual(dec("0.0015")))

		tb := f.store.balances[balanceKey(w.ID, f.token.ID, false, 137)]
		require.NotNil(t, tb)
		assert.True(t, tb.Balance.GreaterThanOrEqual(dec("50")))
		assert.True(t, tb.Balance.LessThanOrEqual(dec("150")))
	}

	// 每个钱包一笔原生币、一笔代币转账，nonce严格递增
	assert.Len(t, f.signer.sent, 6)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, f.signer.sentNonces)
	for _, txn := range f.store.txns {
		assert.Equal(t, model.TXN_STATUS_SUCCESS, txn.Status)
	}
}

func TestDistributionIdempotentSkip(t *testing.T) {
	f := newDistFixture(t, 3)

	activated, err := f.engine.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	require.Equal(t, 3, activated)
	sentBefore := len(f.signer.sent)
	txnsBefore := len(f.store.txns)

	// 已达目标规模，再跑两次都是no-op
	for range 2 {
		activated, err = f.engine.Run(context.Background(), f.cfg)
		require.NoError(t, err)
		assert.Equal(t, 0, activated)
	}
	assert.Len(t, f.signer.sent, sentBefore)
	assert.Len(t, f.store.txns, txnsBefore)
	assert.Len(t, f.store.usages, 3)
}

func TestDistributionFailStop(t *testing.T) {
	f := newDistFixture(t, 3)
	// 第3笔提交（第2个钱包的原生币转账）回滚
	f.signer.failAt = 2

	activated, err := f.engine.Run(context.Background(), f.cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOnChainFailure))
	assert.Equal(t, 1, activated)

	// 恰好1个钱包完整激活，失败钱包无占用记录
	assert.Len(t, f.store.usages, 1)
	active := 0
	for _, w := range f.store.wallets {
		if w.Type == model.WALLET_TYPE_NORMAL && w.Status == model.WALLET_STATUS_ACTIVE {
			active++
		}
	}
	assert.Equal(t, 1, active)
	// 失败之后没有继续提交
	assert.Len(t, f.signer.sent, 3)
}

func TestDistributionMasterInactive(t *testing.T) {
	f := newDistFixture(t, 3)
	f.master.Status = model.WALLET_STATUS_INACTIVE

	_, err := f.engine.Run(context.Background(), f.cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMasterWalletInactive))
	assert.Empty(t, f.signer.sent)
	assert.Empty(t, f.store.txns)
}

func TestDistributionInfeasibleConfig(t *testing.T) {
	f := newDistFixture(t, 3)
	// 总额超出 activePoolSize*max
	f.cfg.NativeDistributionAmount = dec("0.01")

	_, err := f.engine.Run(context.Background(), f.cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAllocationInfeasible))
	assert.Empty(t, f.signer.sent)
	assert.Empty(t, f.store.usages)
}

func TestDistributionNoInactiveWallets(t *testing.T) {
	f := newDistFixture(t, 0)

	activated, err := f.engine.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, activated)
	assert.Empty(t, f.signer.sent)
}
