package batch

import "errors"

var (
	// ErrBatchClosed indicates an operation on a batch after Close.
	ErrBatchClosed = errors.New("batch: batch closed")

	// ErrTxnOpen indicates TxnBegin while this batch already has a
	// transaction open.
	ErrTxnOpen = errors.New("batch: transaction already open")

	// ErrNoTxnOpen indicates TxnCommit or TxnAbort with no open
	// transaction.
	ErrNoTxnOpen = errors.New("batch: no open transaction")
)
