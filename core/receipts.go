package core

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Receipt records one committed operation.
type Receipt struct {
	ID        string
	Operation string
	Caller    common.Address
	Details   map[string]string
	CreatedAt time.Time
}

// ReceiptFilter narrows a receipt listing. Zero values match everything.
type ReceiptFilter struct {
	Caller    *common.Address
	Operation string
	Limit     int
}

// Journal stores receipts outside the state store. Receipts are written after
// the state commit, so a journal failure never rolls back an operation.
type Journal interface {
	Record(ctx context.Context, receipt Receipt) error
	List(ctx context.Context, filter ReceiptFilter) ([]Receipt, error)
}

func (e *Engine) newReceipt(operation string, caller common.Address, details map[string]string) Receipt {
	return Receipt{
		ID:        uuid.NewString(),
		Operation: operation,
		Caller:    caller,
		Details:   details,
		CreatedAt: e.clock().UTC(),
	}
}

// record journals a receipt, logging rather than returning failures.
func (e *Engine) record(ctx context.Context, operation string, caller common.Address, details map[string]string) {
	if e.journal == nil {
		return
	}
	receipt := e.newReceipt(operation, caller, details)
	if err := e.journal.Record(ctx, receipt); err != nil {
		e.logger.ErrorContext(ctx, "journal write failed", "operation", operation, "receipt", receipt.ID, "error", err)
	}
}

// Receipts lists journaled receipts, newest first.
func (e *Engine) Receipts(ctx context.Context, filter ReceiptFilter) ([]Receipt, error) {
	if e == nil || e.journal == nil {
		return nil, nil
	}
	return e.journal.List(ctx, filter)
}
