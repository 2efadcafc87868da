package adapter

import (
	"context"
	"fmt"
	"math/big"

	"web3-treasury/internal/worker/chain"
	"web3-treasury/internal/worker/model"
	"web3-treasury/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Uniswap V3 SwapRouter exactInputSingle
const uniswapRouterABI = `[{"inputs":[{"components":[{"internalType":"address","name":"tokenIn","type":"address"},{"internalType":"address","name":"tokenOut","type":"address"},{"internalType":"uint24","name":"fee","type":"uint24"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"},{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],"internalType":"struct ISwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"}]`

var uniswapABI = mustABI(uniswapRouterABI)

type uniswapAdapter struct {
	baseAdapter
}

// NewUniswapAdapter 创建Uniswap V3适配器
func NewUniswapAdapter(signer chain.Signer, quoter Quoter, recorder Recorder, logger *zap.Logger) ProtocolAdapter {
	return &uniswapAdapter{baseAdapter{
		signer:   signer,
		quoter:   quoter,
		recorder: recorder,
		logger:   logger,
	}}
}

func (a *uniswapAdapter) Protocol() string {
	return model.PROTOCOL_UNISWAP
}

func (a *uniswapAdapter) ExecuteTrade(ctx context.Context, params TradeParams) (*model.TradeResult, error) {
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

	calldata, err := uniswapABI.Pack("exactInputSingle", struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		Deadline          *big.Int
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           common.HexToAddress(params.TokenIn.TokenAddress),
		TokenOut:          common.HexToAddress(params.TokenOut.TokenAddress),
		Fee:               big.NewInt(params.FeeTier),
		Recipient:         common.HexToAddress(params.Wallet.Address),
		Deadline:          deadlineUnix(),
		AmountIn:          amountIn,
		AmountOutMinimum:  minOut,
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("encode exactInputSingle: %w", err)
	}

	return a.swap(ctx, params, router, calldata)
}
