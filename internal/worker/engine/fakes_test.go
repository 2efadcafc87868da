package engine

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"web3-treasury/internal/worker/adapter"
	"web3-treasury/internal/worker/apperrors"
	"web3-treasury/internal/worker/chain"
	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/model"

	"github.com/shopspring/decimal"
)

// memStore 内存版Store，仅测试用。WithTransaction 不做回滚，
// 事务语义的验证交给数据库层，这里只验证引擎的调用序列与状态收敛。
type memStore struct {
	wallets  map[int64]*model.Wallet
	tokens   map[int64]*model.CryptoToken
	pools    map[int64]*model.Pool
	usages   map[int64]*model.WalletUsage
	balances map[string]*model.Balance
	txns     map[int64]*model.Transaction

	distConfigs []*model.DistributionConfig
	schedCfgs   map[int64]*model.SchedulerConfig
	schedLogs   []*model.SchedulerLog
	walletGens  []*model.WalletGenerationConfig

	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		wallets:   make(map[int64]*model.Wallet),
		tokens:    make(map[int64]*model.CryptoToken),
		pools:     make(map[int64]*model.Pool),
		usages:    make(map[int64]*model.WalletUsage),
		balances:  make(map[string]*model.Balance),
		txns:      make(map[int64]*model.Transaction),
		schedCfgs: make(map[int64]*model.SchedulerConfig),
		nextID:    1000,
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func balanceKey(walletID, tokenID int64, isNative bool, chainID uint64) string {
	return fmt.Sprintf("%d|%d|%v|%d", walletID, tokenID, isNative, chainID)
}

func (s *memStore) Wallets() dao.WalletDAO           { return (*memWallets)(s) }
func (s *memStore) Tokens() dao.TokenDAO             { return (*memTokens)(s) }
func (s *memStore) Pools() dao.PoolDAO               { return (*memPools)(s) }
func (s *memStore) Usages() dao.WalletUsageDAO       { return (*memUsages)(s) }
func (s *memStore) Balances() dao.BalanceDAO         { return (*memBalances)(s) }
func (s *memStore) Transactions() dao.TransactionDAO { return (*memTxns)(s) }
func (s *memStore) DistConfigs() dao.DistConfigDAO   { return (*memDistConfigs)(s) }
func (s *memStore) Scheduler() dao.SchedulerDAO      { return (*memScheduler)(s) }

func (s *memStore) WithTransaction(ctx context.Context, fn func(dao.Store) error) error {
	return fn(s)
}

func (s *memStore) addWallet(w *model.Wallet) *model.Wallet {
	if w.ID == 0 {
		w.ID = s.id()
	}
	s.wallets[w.ID] = w
	return w
}

func (s *memStore) addToken(t *model.CryptoToken) *model.CryptoToken {
	if t.ID == 0 {
		t.ID = s.id()
	}
	s.tokens[t.ID] = t
	return t
}

func (s *memStore) setBalance(walletID, tokenID int64, isNative bool, chainID uint64, v decimal.Decimal) {
	key := balanceKey(walletID, tokenID, isNative, chainID)
	s.balances[key] = &model.Balance{
		ID: s.id(), WalletID: walletID, TokenID: tokenID,
		IsNative: isNative, ChainID: chainID, Balance: v,
	}
}

func (s *memStore) txnsByType(txnType string) []*model.Transaction {
	var out []*model.Transaction
	for _, t := range s.txns {
		if t.TxnType == txnType {
			out = append(out, t)
		}
	}
	return out
}

type memWallets memStore

func (m *memWallets) GetByID(ctx context.Context, id int64) (*model.Wallet, error) {
	w, ok := m.wallets[id]
	if !ok {
		return nil, fmt.Errorf("%w: wallet %d", apperrors.ErrNotFound, id)
	}
	return w, nil
}

func (m *memWallets) GetByAddress(ctx context.Context, address string) (*model.Wallet, error) {
	for _, w := range m.wallets {
		if w.Address == address {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: wallet %s", apperrors.ErrNotFound, address)
}

func (m *memWallets) SampleInactiveNormal(ctx context.Context, chainID uint64, limit int) ([]*model.Wallet, error) {
	var out []*model.Wallet
	for _, w := range m.wallets {
		if w.Type == model.WALLET_TYPE_NORMAL && w.Status == model.WALLET_STATUS_INACTIVE && w.ChainID == chainID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memWallets) GetRoleWallet(ctx context.Context, walletType string) (*model.Wallet, error) {
	for _, w := range m.wallets {
		if w.Type == walletType && w.Status == model.WALLET_STATUS_ACTIVE {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: no active %s wallet", apperrors.ErrNotFound, walletType)
}

func (m *memWallets) UpdateStatus(ctx context.Context, id int64, status string) error {
	w, ok := m.wallets[id]
	if !ok {
		return fmt.Errorf("wallet %d not found", id)
	}
	w.Status = status
	return nil
}

func (m *memWallets) Create(ctx context.Context, wallet *model.Wallet) error {
	(*memStore)(m).addWallet(wallet)
	return nil
}

func (m *memWallets) MaxHdIndex(ctx context.Context) (int, error) {
	maxIdx := -1
	for _, w := range m.wallets {
		if w.HdIndex > maxIdx {
			maxIdx = w.HdIndex
		}
	}
	return maxIdx, nil
}

func (m *memWallets) ExistsByAddress(ctx context.Context, address string) (bool, error) {
	for _, w := range m.wallets {
		if w.Address == address {
			return true, nil
		}
	}
	return false, nil
}

type memTokens memStore

func (m *memTokens) GetByID(ctx context.Context, id int64) (*model.CryptoToken, error) {
	t, ok := m.tokens[id]
	if !ok {
		return nil, fmt.Errorf("%w: token %d", apperrors.ErrNotFound, id)
	}
	return t, nil
}

func (m *memTokens) GetNative(ctx context.Context, chainID uint64) (*model.CryptoToken, error) {
	for _, t := range m.tokens {
		if t.IsNative && t.ChainID == chainID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: no native token for chain %d", apperrors.ErrNotFound, chainID)
}

type memPools memStore

func (m *memPools) GetByID(ctx context.Context, id int64) (*model.Pool, error) {
	p, ok := m.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: pool %d", apperrors.ErrNotFound, id)
	}
	return p, nil
}

type memUsages memStore

func (m *memUsages) CountByPoolToken(ctx context.Context, poolID int64, tokenAddress string) (int64, error) {
	var n int64
	for _, u := range m.usages {
		if u.PoolID == poolID && u.TokenAddress == tokenAddress {
			n++
		}
	}
	return n, nil
}

func (m *memUsages) ListByChain(ctx context.Context, chainID uint64) ([]*model.WalletUsage, error) {
	var out []*model.WalletUsage
	for _, u := range m.usages {
		if u.ChainID == chainID {
			c := u
			c.Wallet = m.wallets[u.WalletID]
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsages) ListByToken(ctx context.Context, tokenAddress string) ([]*model.WalletUsage, error) {
	var out []*model.WalletUsage
	for _, u := range m.usages {
		if u.TokenAddress == tokenAddress {
			c := u
			c.Wallet = m.wallets[u.WalletID]
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memUsages) GetByWalletPool(ctx context.Context, walletID, poolID int64) (*model.WalletUsage, error) {
	for _, u := range m.usages {
		if u.WalletID == walletID && u.PoolID == poolID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsages) Create(ctx context.Context, usage *model.WalletUsage) error {
	usage.ID = (*memStore)(m).id()
	m.usages[usage.ID] = usage
	return nil
}

func (m *memUsages) Delete(ctx context.Context, id int64) error {
	delete(m.usages, id)
	return nil
}

type memBalances memStore

func (m *memBalances) Get(ctx context.Context, walletID, tokenID int64, isNative bool, chainID uint64) (*model.Balance, error) {
	b, ok := m.balances[balanceKey(walletID, tokenID, isNative, chainID)]
	if !ok {
		return nil, nil
	}
	return b, nil
}

func (m *memBalances) Increment(ctx context.Context, walletID, tokenID int64, isNative bool, chainID uint64, delta decimal.Decimal) error {
	key := balanceKey(walletID, tokenID, isNative, chainID)
	if b, ok := m.balances[key]; ok {
		b.Balance = b.Balance.Add(delta)
		return nil
	}
	(*memStore)(m).setBalance(walletID, tokenID, isNative, chainID, delta)
	return nil
}

func (m *memBalances) Set(ctx context.Context, walletID, tokenID int64, isNative bool, chainID uint64, value decimal.Decimal) error {
	(*memStore)(m).setBalance(walletID, tokenID, isNative, chainID, value)
	return nil
}

func (m *memBalances) FindEligible(ctx context.Context, tokenID int64, amount decimal.Decimal) ([]*model.Balance, error) {
	var out []*model.Balance
	for _, b := range m.balances {
		if b.TokenID == tokenID && !b.IsNative && b.Balance.GreaterThanOrEqual(amount) {
			c := *b
			c.Wallet = m.wallets[b.WalletID]
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WalletID < out[j].WalletID })
	return out, nil
}

type memTxns memStore

func (m *memTxns) Create(ctx context.Context, txn *model.Transaction) error {
	txn.ID = (*memStore)(m).id()
	m.txns[txn.ID] = txn
	return nil
}

func (m *memTxns) Update(ctx context.Context, id int64, update dao.TxnUpdate) error {
	t, ok := m.txns[id]
	if !ok {
		return fmt.Errorf("txn %d not found", id)
	}
	if update.TransactionHash != nil {
		t.TransactionHash = *update.TransactionHash
	}
	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.Message != nil {
		t.Message = *update.Message
	}
	return nil
}

func (m *memTxns) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	t, ok := m.txns[id]
	if !ok {
		return nil, fmt.Errorf("txn %d not found", id)
	}
	return t, nil
}

type memDistConfigs memStore

func (m *memDistConfigs) ListEnabled(ctx context.Context) ([]*model.DistributionConfig, error) {
	var out []*model.DistributionConfig
	for _, c := range m.distConfigs {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memDistConfigs) ListReturnEnabled(ctx context.Context) ([]*model.DistributionConfig, error) {
	var out []*model.DistributionConfig
	for _, c := range m.distConfigs {
		if c.ReturnEnabled {
			out = append(out, c)
		}
	}
	return out, nil
}

type memScheduler memStore

func (m *memScheduler) GetConfigByName(ctx context.Context, name string) (*model.SchedulerConfig, error) {
	for _, c := range m.schedCfgs {
		if c.Name == name && c.Enabled {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memScheduler) ListConfigs(ctx context.Context) ([]*model.SchedulerConfig, error) {
	var out []*model.SchedulerConfig
	for _, c := range m.schedCfgs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memScheduler) ListChangedSince(ctx context.Context, since time.Time) ([]*model.SchedulerConfig, error) {
	var out []*model.SchedulerConfig
	for _, c := range m.schedCfgs {
		if c.UpdatedAt.After(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memScheduler) UpdateLastRun(ctx context.Context, id int64, lastRun time.Time) error {
	if c, ok := m.schedCfgs[id]; ok {
		c.LastRun = &lastRun
	}
	return nil
}

func (m *memScheduler) ClearTriggerImmediately(ctx context.Context, id int64) error {
	if c, ok := m.schedCfgs[id]; ok {
		c.TriggerImmediately = false
	}
	return nil
}

func (m *memScheduler) CreateLog(ctx context.Context, log *model.SchedulerLog) error {
	log.ID = (*memStore)(m).id()
	m.schedLogs = append(m.schedLogs, log)
	return nil
}

func (m *memScheduler) ListEnabledWalletGenConfigs(ctx context.Context) ([]*model.WalletGenerationConfig, error) {
	var out []*model.WalletGenerationConfig
	for _, c := range m.walletGens {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeSigner 脚本化签名网关：记录每笔提交，可指定第N笔交易回滚。
// 链上余额用 address|token 键查表。
type fakeSigner struct {
	chainBalances map[string]decimal.Decimal
	sent          []chain.TxRequest
	sentNonces    []uint64 // 提交时刻的nonce快照（指针会被引擎复用）
	failAt        int      // 第几笔提交（从0计）回滚，-1表示全部成功
	nonce         uint64
	callResults   map[string][]byte
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{
		chainBalances: make(map[string]decimal.Decimal),
		failAt:        -1,
		callResults:   make(map[string][]byte),
	}
}

func chainKey(address, token string) string { return address + "|" + token }

func (f *fakeSigner) setChainBalance(address, token string, v decimal.Decimal) {
	f.chainBalances[chainKey(address, token)] = v
}

func (f *fakeSigner) SignAndSend(ctx context.Context, req chain.TxRequest) (chain.PendingTx, error) {
	index := len(f.sent)
	f.sent = append(f.sent, req)
	if req.Nonce != nil {
		f.sentNonces = append(f.sentNonces, *req.Nonce)
	}
	status := uint64(1)
	if index == f.failAt {
		status = 0
	}
	return &fakePending{hash: fmt.Sprintf("0xhash%d", index), status: status}, nil
}

func (f *fakeSigner) BalanceOf(ctx context.Context, address, tokenAddress string, decimals int32) (decimal.Decimal, error) {
	return f.chainBalances[chainKey(address, tokenAddress)], nil
}

func (f *fakeSigner) Call(ctx context.Context, to string, data []byte) ([]byte, error) {
	if out, ok := f.callResults[to]; ok {
		return out, nil
	}
	return make([]byte, 32), nil
}

func (f *fakeSigner) FeeEstimate(ctx context.Context) (*chain.FeeData, error) {
	return &chain.FeeData{
		BaseFee:     big.NewInt(10_000_000_000), // 10 gwei
		PriorityFee: big.NewInt(1_000_000_000),  // 1 gwei
	}, nil
}

func (f *fakeSigner) EstimateGas(ctx context.Context, req chain.TxRequest) (uint64, error) {
	return 21000, nil
}

func (f *fakeSigner) PendingNonce(ctx context.Context, address string) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeSigner) GasPrice(fee *chain.FeeData) *big.Int {
	return new(big.Int).Add(fee.BaseFee, fee.PriorityFee)
}

type fakePending struct {
	hash   string
	status uint64
}

func (p *fakePending) Hash() string { return p.hash }

func (p *fakePending) Wait(ctx context.Context) (*chain.Receipt, error) {
	return &chain.Receipt{TxHash: p.hash, Status: p.status, GasUsed: 21000}, nil
}

// stubAdapter 固定返回脚本化结果的协议适配器，记录收到的入参
type stubAdapter struct {
	protocol string
	result   *model.TradeResult
	err      error
	calls    int
	params   []adapter.TradeParams
}

func (a *stubAdapter) Protocol() string { return a.protocol }

func (a *stubAdapter) ExecuteTrade(ctx context.Context, params adapter.TradeParams) (*model.TradeResult, error) {
	a.calls++
	a.params = append(a.params, params)
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}
