package chain

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Keystore 私钥托管后端：按钱包身份签名交易，按派生索引产出新地址。
// 核心不接触私钥来源。
type Keystore interface {
	Derive(index int) (string, error)
	SignTx(address string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	Has(address string) bool
}

// localKeystore 种子派生的本地托管实现：子私钥 = keccak256(seed || index)。
// 确定性派生保证重启后同一索引得到同一地址。
type localKeystore struct {
	seed []byte
	mu   sync.RWMutex
	keys map[string]*ecdsa.PrivateKey
}

// NewLocalKeystore 从十六进制种子创建本地托管
func NewLocalKeystore(seedHex string) (Keystore, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(seedHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid master seed: %w", err)
	}
	if len(seed) < 16 {
		return nil, fmt.Errorf("master seed too short: %d bytes", len(seed))
	}
	return &localKeystore{
		seed: seed,
		keys: make(map[string]*ecdsa.PrivateKey),
	}, nil
}

func (k *localKeystore) Derive(index int) (string, error) {
	buf := make([]byte, len(k.seed)+4)
	copy(buf, k.seed)
	binary.BigEndian.PutUint32(buf[len(k.seed):], uint32(index))

	key, err := crypto.ToECDSA(crypto.Keccak256(buf))
	if err != nil {
		return "", fmt.Errorf("derive key at index %d: %w", index, err)
	}

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	k.mu.Lock()
	k.keys[strings.ToLower(address)] = key
	k.mu.Unlock()
	return address, nil
}

func (k *localKeystore) SignTx(address string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	k.mu.RLock()
	key, ok := k.keys[strings.ToLower(address)]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no key for address %s", address)
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
}

func (k *localKeystore) Has(address string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.keys[strings.ToLower(address)]
	return ok
}
