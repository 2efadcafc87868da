package engine

import (
	"context"

	"web3-treasury/internal/worker/dao"
	"web3-treasury/internal/worker/model"

	"go.uber.org/zap"
)

// Recorder 交易账本记录器，镜像链上交易生命周期：
// 提交前 PENDING，提交后写入hash转 INPROCESS，回执后终态 SUCCESS/FAILED。
// 写入是尽力而为：链上已发出的操作不因账本写失败而回滚，失败只记日志。
type Recorder struct {
	store  dao.Store
	logger *zap.Logger
}

func NewRecorder(store dao.Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Pending 创建PENDING记录并返回；创建失败时返回ID为0的记录，后续更新会跳过
func (r *Recorder) Pending(ctx context.Context, txn *model.Transaction) *model.Transaction {
	txn.Status = model.TXN_STATUS_PENDING
	if err := r.store.Transactions().Create(ctx, txn); err != nil {
		r.logger.Error("record transaction failed",
			zap.Int64("wallet_id", txn.WalletID),
			zap.String("txn_type", txn.TxnType),
			zap.Error(err))
		txn.ID = 0
	}
	return txn
}

// Submitted 写入交易hash并转为INPROCESS
func (r *Recorder) Submitted(ctx context.Context, txn *model.Transaction, hash string) {
	txn.TransactionHash = hash
	txn.Status = model.TXN_STATUS_INPROCESS
	if txn.ID == 0 {
		return
	}
	status := model.TXN_STATUS_INPROCESS
	err := r.store.Transactions().Update(ctx, txn.ID, dao.TxnUpdate{
		TransactionHash: &hash,
		Status:          &status,
	})
	if err != nil {
		r.logger.Error("update transaction hash failed",
			zap.Int64("txn_id", txn.ID), zap.String("hash", hash), zap.Error(err))
	}
}

// Finalize 将交易置为终态
func (r *Recorder) Finalize(ctx context.Context, txn *model.Transaction, success bool, message string) {
	status := model.TXN_STATUS_FAILED
	if success {
		status = model.TXN_STATUS_SUCCESS
	}
	txn.Status = status
	txn.Message = message
	if txn.ID == 0 {
		return
	}
	update := dao.TxnUpdate{Status: &status}
	if message != "" {
		update.Message = &message
	}
	if err := r.store.Transactions().Update(ctx, txn.ID, update); err != nil {
		r.logger.Error("finalize transaction failed",
			zap.Int64("txn_id", txn.ID), zap.String("status", status), zap.Error(err))
	}
}

// WithStore 返回绑定到另一个Store（通常是数据库事务）的记录器
func (r *Recorder) WithStore(store dao.Store) *Recorder {
	return &Recorder{store: store, logger: r.logger}
}
