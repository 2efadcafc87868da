package engine

import (
	"context"
	"testing"

	"web3-treasury/internal/worker/model"
	"web3-treasury/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSigner的费率固定为 base 10 gwei + tip 1 gwei，
// 原生币扫回的预估手续费 = 21000 * 11 gwei = 0.000231
const fakeNativeFeeCost = "0.000231"

func newReturnFixture(t *testing.T) (*distFixture, *ReturnEngine, *model.Wallet) {
	t.Helper()
	f := newDistFixture(t, 1)
	wallet, err := f.store.Wallets().GetByAddress(context.Background(), "0xNormalA")
	require.NoError(t, err)
	wallet.Status = model.WALLET_STATUS_ACTIVE

	usage := &model.WalletUsage{
		WalletID: wallet.ID, Address: wallet.Address, ChainID: 137,
		TokenAddress: f.token.TokenAddress, PoolID: f.cfg.PoolID,
	}
	require.NoError(t, f.store.Usages().Create(context.Background(), usage))

	f.cfg.MaxNativeLeftOver = dec("0.0001")
	f.cfg.MaxTokenLeftOver = dec("0")

	recorder := NewRecorder(f.store, zap.NewNop())
	engine := NewReturnEngine(f.store, f.signer, recorder, zap.NewNop())
	return f, engine, wallet
}

func TestReturnSweepsTokenAndNative(t *testing.T) {
	f, engine, wallet := newReturnFixture(t)
	f.signer.setChainBalance(wallet.Address, f.token.TokenAddress, dec("80"))
	f.signer.setChainBalance(wallet.Address, "", dec("0.01"))

	swept, err := engine.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	require.Len(t, f.signer.sent, 2)
	// 代币先扫：整额转给主钱包
	tokenTx := f.signer.sent[0]
	assert.Equal(t, f.token.TokenAddress, tokenTx.To)
	assert.NotEmpty(t, tokenTx.Data)
	// 原生币后扫：送出额 = 余额 - 保留额 - 预估手续费
	nativeTx := f.signer.sent[1]
	assert.Equal(t, f.master.Address, nativeTx.To)
	want := dec("0.01").Sub(dec("0.0001")).Sub(dec(fakeNativeFeeCost))
	assert.Equal(t, utils.ToRawUnits(want, 18).String(), nativeTx.Value.String())

	// 占用删除、钱包回到inactive、缓存回到保留额
	assert.Empty(t, f.store.usages)
	assert.Equal(t, model.WALLET_STATUS_INACTIVE, wallet.Status)
	nb := f.store.balances[balanceKey(wallet.ID, f.native.ID, true, 137)]
	require.NotNil(t, nb)
	assert.True(t, nb.Balance.Equal(dec("0.0001")))
}

func TestReturnSkipsNativeWhenReserveCannotCoverFee(t *testing.T) {
	f, engine, wallet := newReturnFixture(t)
	// 余额高于保留额但不足以同时覆盖手续费
	f.signer.setChainBalance(wallet.Address, "", dec("0.0003"))

	swept, err := engine.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	// 没有任何链上发送，但缓存被校正为链上实值
	assert.Empty(t, f.signer.sent)
	nb := f.store.balances[balanceKey(wallet.ID, f.native.ID, true, 137)]
	require.NotNil(t, nb)
	assert.True(t, nb.Balance.Equal(dec("0.0003")))

	// 跳过不阻止钱包退出活跃池
	assert.Empty(t, f.store.usages)
	assert.Equal(t, model.WALLET_STATUS_INACTIVE, wallet.Status)
}

func TestReturnSkipsRoleWallets(t *testing.T) {
	f, engine, _ := newReturnFixture(t)
	usage := &model.WalletUsage{
		WalletID: f.master.ID, Address: f.master.Address, ChainID: 137,
		TokenAddress: f.token.TokenAddress, PoolID: f.cfg.PoolID,
	}
	require.NoError(t, f.store.Usages().Create(context.Background(), usage))

	swept, err := engine.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	// 角色钱包的占用被跳过且不计数
	assert.Equal(t, 1, swept)
	assert.Equal(t, model.WALLET_STATUS_ACTIVE, f.master.Status)
}

func TestDistributionThenReturnIsInverse(t *testing.T) {
	f := newDistFixture(t, 3)
	recorder := NewRecorder(f.store, zap.NewNop())
	returnEngine := NewReturnEngine(f.store, f.signer, recorder, zap.NewNop())

	activated, err := f.engine.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	require.Equal(t, 3, activated)

	// 把分发后的账面余额落到链上视图，再整池扫回
	for _, w := range f.store.wallets {
		if w.Type != model.WALLET_TYPE_NORMAL {
			continue
		}
		nb := f.store.balances[balanceKey(w.ID, f.native.ID, true, 137)]
		tb := f.store.balances[balanceKey(w.ID, f.token.ID, false, 137)]
		f.signer.setChainBalance(w.Address, "", nb.Balance)
		f.signer.setChainBalance(w.Address, f.token.TokenAddress, tb.Balance)
	}

	swept, err := returnEngine.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, swept)

	assert.Empty(t, f.store.usages)
	for _, w := range f.store.wallets {
		if w.Type == model.WALLET_TYPE_NORMAL {
			assert.Equal(t, model.WALLET_STATUS_INACTIVE, w.Status)
		}
	}
}
