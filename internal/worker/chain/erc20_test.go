package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x3813e82e6f7098b9583FC0F33a962D02018B6803"
	addrB = "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"
)

func TestTransferCallData(t *testing.T) {
	data := TransferCallData(addrA, big.NewInt(1_000_000))

	require.Len(t, data, 4+64)
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, data[:4])
	// 地址左填充到32字节
	assert.Equal(t, byte(0x38), data[4+12])
	// 金额在最后一个word
	amount := new(big.Int).SetBytes(data[36:68])
	assert.Equal(t, int64(1_000_000), amount.Int64())
}

func TestApproveAndAllowanceCallData(t *testing.T) {
	approve := ApproveCallData(addrB, big.NewInt(500))
	require.Len(t, approve, 4+64)
	assert.Equal(t, []byte{0x09, 0x5e, 0xa7, 0xb3}, approve[:4])

	allowance := AllowanceCallData(addrA, addrB)
	require.Len(t, allowance, 4+64)
	assert.Equal(t, []byte{0xdd, 0x62, 0xed, 0x3e}, allowance[:4])
}

func TestParseUint256Result(t *testing.T) {
	data := make([]byte, 32)
	data[31] = 0x2a
	v, err := ParseUint256Result(data)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())

	_, err = ParseUint256Result([]byte{0x01})
	assert.Error(t, err)
}

func TestComputeFeeCapsCapsPriorityFee(t *testing.T) {
	gwei := big.NewInt(1_000_000_000)

	// 优先费超过3 gwei时封顶
	fee := &FeeData{
		BaseFee:     new(big.Int).Mul(gwei, big.NewInt(30)),
		PriorityFee: new(big.Int).Mul(gwei, big.NewInt(50)),
	}
	feeCap, tipCap := ComputeFeeCaps(fee)
	assert.Equal(t, new(big.Int).Mul(gwei, big.NewInt(3)), tipCap)
	// (30+3)*1.5 = 49.5 gwei
	expected := new(big.Int).Mul(big.NewInt(49_500_000_000), big.NewInt(1))
	assert.Equal(t, expected, feeCap)

	// 低优先费原样保留
	fee = &FeeData{
		BaseFee:     new(big.Int).Mul(gwei, big.NewInt(10)),
		PriorityFee: gwei,
	}
	feeCap, tipCap = ComputeFeeCaps(fee)
	assert.Equal(t, gwei, tipCap)
	assert.True(t, feeCap.Cmp(tipCap) >= 0, "fee cap must cover the tip")
}

func TestLocalKeystoreDeterministicDerivation(t *testing.T) {
	seed := "000102030405060708090a0b0c0d0e0f"

	ks1, err := NewLocalKeystore(seed)
	require.NoError(t, err)
	ks2, err := NewLocalKeystore("0x" + seed)
	require.NoError(t, err)

	a1, err := ks1.Derive(7)
	require.NoError(t, err)
	a2, err := ks2.Derive(7)
	require.NoError(t, err)
	assert.Equal(t, a1, a2, "same seed and index must yield the same address")
	assert.True(t, ks1.Has(a1))

	b, err := ks1.Derive(8)
	require.NoError(t, err)
	assert.NotEqual(t, a1, b)

	_, err = NewLocalKeystore("0102")
	assert.Error(t, err, "short seed rejected")
}
