package adapter

import (
	"context"
	"fmt"

	"web3-treasury/internal/worker/chain"
	"web3-treasury/internal/worker/model"
	"web3-treasury/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// V2系路由（Quickswap/Pancakeswap）共用 swapExactTokensForTokens
const v2RouterABI = `[{"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMin","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}]`

var v2ABI = mustABI(v2RouterABI)

// v2Adapter V2系DEX适配器，协议名区分Quickswap与Pancakeswap
type v2Adapter struct {
	baseAdapter
	protocol string
}

// NewQuickswapAdapter 创建Quickswap适配器
func NewQuickswapAdapter(signer chain.Signer, quoter Quoter, recorder Recorder, logger *zap.Logger) ProtocolAdapter {
	return &v2Adapter{
		baseAdapter: baseAdapter{signer: signer, quoter: quoter, recorder: recorder, logger: logger},
		protocol:    model.PROTOCOL_QUICKSWAP,
	}
}

// NewPancakeswapAdapter 创建Pancakeswap适配器
func NewPancakeswapAdapter(signer chain.Signer, quoter Quoter, recorder Recorder, logger *zap.Logger) ProtocolAdapter {
	return &v2Adapter{
		baseAdapter: baseAdapter{signer: signer, quoter: quoter, recorder: recorder, logger: logger},
		protocol:    model.PROTOCOL_PANCAKESWAP,
	}
}

func (a *v2Adapter) Protocol() string {
	return a.protocol
}

func (a *v2Adapter) ExecuteTrade(ctx context.Context, params TradeParams) (*model.TradeResult, error) {
	router, err := parseRouter(params.Metadata)
	if err != nil {
		return nil, err
	}

	amountIn := utils.ToRawUnits(params.Amount, params.TokenIn.Decimals)
	if err := a.ensureAllowance(ctx, params, router, amountIn); err != nil {
		return nil, err
	}
	minOut, err := a.minAmountOut(ctx, params)
	if err != nil {
		return nil, err
	}

	path := []common.Address{
		common.HexToAddress(params.TokenIn.TokenAddress),
		common.HexToAddress(params.TokenOut.TokenAddress),
	}
	calldata, err := v2ABI.Pack("swapExactTokensForTokens",
		amountIn, minOut, path, common.HexToAddress(params.Wallet.Address), deadlineUnix())
	if err != nil {
		return nil, fmt.Errorf("encode swapExactTokensForTokens: %w", err)
	}

	return a.swap(ctx, params, router, calldata)
}
