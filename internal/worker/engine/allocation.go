package engine

import (
	"fmt"

	"web3-treasury/internal/worker/apperrors"
	"web3-treasury/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	allocationPrecision   = 8
	allocationMaxAttempts = 100
)

// Allocate 将total拆成count份有界随机额度，每份落在[min,max]且总和精确等于total
// （8位小数精度）。贪心+重启：逐份在可行上界内均匀抽取，末份吃掉剩余；
// 末份越界即本次作废重来，尝试100次仍不可行视为配置错误。
func Allocate(total, min, max decimal.Decimal, count int) ([]decimal.Decimal, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count=%d", apperrors.ErrAllocationInfeasible, count)
	}
	countDec := decimal.NewFromInt(int64(count))
	if total.LessThan(min.Mul(countDec)) || total.GreaterThan(max.Mul(countDec)) {
		return nil, fmt.Errorf("%w: total=%s min=%s max=%s count=%d",
			apperrors.ErrAllocationInfeasible, total, min, max, count)
	}

	for range allocationMaxAttempts {
		if amounts, ok := tryAllocate(total, min, max, count); ok {
			return amounts, nil
		}
	}
	return nil, fmt.Errorf("%w: exhausted %d attempts, total=%s min=%s max=%s count=%d",
		apperrors.ErrAllocationInfeasible, allocationMaxAttempts, total, min, max, count)
}

func tryAllocate(total, min, max decimal.Decimal, count int) ([]decimal.Decimal, bool) {
	amounts := make([]decimal.Decimal, 0, count)
	remaining := total

	for i := 0; i < count-1; i++ {
		// 给后续每份留足min的最紧上界
		left := decimal.NewFromInt(int64(count - i - 1))
		maxPossible := decimal.Min(max, remaining.Sub(min.Mul(left)))
		if maxPossible.LessThan(min) {
			return nil, false
		}

		span := maxPossible.Sub(min)
		amount := min.Add(span.Mul(decimal.NewFromFloat(utils.RandFloat64()))).
			Round(allocationPrecision)
		amounts = append(amounts, amount)
		remaining = remaining.Sub(amount)
	}

	// 末份精确吃掉剩余，越界则整轮作废
	if remaining.LessThan(min) || remaining.GreaterThan(max) {
		return nil, false
	}
	amounts = append(amounts, remaining)
	return amounts, true
}
