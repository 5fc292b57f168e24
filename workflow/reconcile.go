package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/agasretail/erpsync_backend/config"
	"bitbucket.org/agasretail/erpsync_backend/models"
	"gorm.io/gorm"
)

// ErrNoSaleLines marks an order code with no sale lines to reconcile.
// Handlers treat it as permanent and ack instead of retrying.
var ErrNoSaleLines = errors.New("no sale lines for order")

// ReconcileOrder runs the full pipeline for one order: load both
// snapshots, prefetch catalog and warehouse data, explode sale lines
// against movements. Read-only; the caller decides where the invoice
// lines go.
func ReconcileOrder(ctx context.Context, orderCode string, employees EmployeeDirectory) ([]*models.InvoiceLine, error) {
	logger := config.GetLogger()

	lines, err := models.GetSaleLinesByOrderCode(ctx, orderCode)
	if err != nil {
		config.LogError(logger, "Reconcile.go", "ReconcileOrder", "GetSaleLinesByOrderCode", orderCode, err)
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSaleLines, orderCode)
	}

	movements, err := models.GetStockMovementsForOrder(ctx, orderCode)
	if err != nil {
		config.LogError(logger, "Reconcile.go", "ReconcileOrder", "GetStockMovementsForOrder", orderCode, err)
		return nil, err
	}

	rc, err := BuildReconcileContext(ctx, orderCode, lines, movements, employees)
	if err != nil {
		return nil, err
	}

	return ExplodeOrder(rc, lines, movements), nil
}

// ProcessReconcileJob is the shared push/pull job handler: serialize on
// the order, dedupe by message, reconcile, submit downstream.
// handlerName scopes the idempotency row to the calling transport.
// Transport-level redis locks are best-effort only; correctness comes
// from the advisory lock and the idempotency row here.
func ProcessReconcileJob(ctx context.Context, job config.ReconcileJob, messageId, handlerName string, submitter ErpSubmitter, employees EmployeeDirectory) error {
	db := config.GetDB()
	return db.Transaction(func(tx *gorm.DB) error {
		// Enforce strict per-order serialization across instances.
		if err := AcquireOrderReconcileLock(tx.WithContext(ctx), job.OrderCode); err != nil {
			return err
		}
		defer ReleaseOrderReconcileLock(tx.WithContext(ctx), job.OrderCode)

		// IMPORTANT: do not call tx.Commit()/tx.Rollback() inside db.Transaction.
		// Returning error triggers rollback; returning nil commits.
		skip, err := BeginIdempotency(tx.WithContext(ctx), job.OrderCode, handlerName, messageId)
		if err != nil {
			return err
		}
		if skip {
			return nil
		}

		invoiceLines, err := ReconcileOrder(ctx, job.OrderCode, employees)
		if err != nil {
			if errors.Is(err, ErrNoSaleLines) {
				// Permanent: the order never synced sale lines. Record
				// the failure and commit so the message is not retried.
				_ = MarkIdempotencyFailed(tx.WithContext(ctx), job.OrderCode, handlerName, messageId, err)
				return nil
			}
			// Transient: the rollback removes the STARTED row with the
			// rest of the transaction, so the redelivery starts fresh.
			return err
		}

		if err := submitter.SubmitInvoiceLines(ctx, job.OrderCode, invoiceLines); err != nil {
			return err
		}

		return MarkIdempotencySucceeded(tx.WithContext(ctx), job.OrderCode, handlerName, messageId)
	})
}
