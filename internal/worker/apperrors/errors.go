package apperrors

import "errors"

// 核心错误分类，调用方通过 errors.Is 判断错误种类。
// 前置条件类错误不产生任何链上或账本副作用。
var (
	ErrNotFound                 = errors.New("record not found")
	ErrAllocationInfeasible     = errors.New("allocation infeasible for configured total/min/max/count")
	ErrMasterWalletInactive     = errors.New("master wallet is not active")
	ErrInvalidPoolConfiguration = errors.New("invalid pool configuration")
	ErrNoEligibleWallet         = errors.New("no eligible wallet for trade")
	ErrUnsupportedProtocol      = errors.New("unsupported protocol")
	ErrOnChainFailure           = errors.New("on-chain operation failed")
	ErrLedgerInconsistent       = errors.New("ledger inconsistent with on-chain state")
)
