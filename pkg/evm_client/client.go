package evm_client

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Init 建立EVM RPC连接并核对链ID，进程只服务单一链，
// 节点链ID与配置不符视为启动错误
func Init(rawurl string, expectedChainID uint64) *ethclient.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		panic(fmt.Sprintf("Init evm client error: %v", err))
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		panic(fmt.Sprintf("Read chain id error: %v", err))
	}
	if chainID.Uint64() != expectedChainID {
		panic(fmt.Sprintf("Chain id mismatch: rpc reports %s, configured %d", chainID, expectedChainID))
	}

	return client
}
