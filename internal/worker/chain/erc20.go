package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ERC20 方法选择器，手工拼接calldata，避免为三个方法引入完整ABI
var (
	methodTransfer  = []byte{0xa9, 0x05, 0x9c, 0xbb}
	methodApprove   = []byte{0x09, 0x5e, 0xa7, 0xb3}
	methodAllowance = []byte{0xdd, 0x62, 0xed, 0x3e}
	methodBalanceOf = []byte{0x70, 0xa0, 0x82, 0x31}
)

// TransferCallData 构建 transfer(address,uint256) 调用数据
func TransferCallData(to string, amount *big.Int) []byte {
	data := make([]byte, 0, 4+64)
	data = append(data, methodTransfer...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// ApproveCallData 构建 approve(address,uint256) 调用数据
func ApproveCallData(spender string, amount *big.Int) []byte {
	data := make([]byte, 0, 4+64)
	data = append(data, methodApprove...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(spender).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// AllowanceCallData 构建 allowance(address,address) 调用数据
func AllowanceCallData(owner, spender string) []byte {
	data := make([]byte, 0, 4+64)
	data = append(data, methodAllowance...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(owner).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(spender).Bytes(), 32)...)
	return data
}

// BalanceOfCallData 构建 balanceOf(address) 调用数据
func BalanceOfCallData(owner string) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, methodBalanceOf...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(owner).Bytes(), 32)...)
	return data
}

// ParseUint256Result 解析合约调用返回的uint256
func ParseUint256Result(data []byte) (*big.Int, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("invalid uint256 result length: %d", len(data))
	}
	return new(big.Int).SetBytes(data[len(data)-32:]), nil
}
