package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/template-studio/internal/domain"
)

// Sentinel errors surfaced to the service layer, which maps them onto the
// API error taxonomy.
var (
	ErrNoPendingItems   = errors.New("no active pending items for payee")
	ErrInvoiceReverted  = errors.New("invoice already reverted")
	ErrDuplicatePending = errors.New("active pending item already exists for template")
)

// LedgerRepository persists invoice items and invoices. Invoice generation
// and reversal run in a single transaction; pending rows are locked while
// selected so two racing generate calls for one payee cannot share an item.
type LedgerRepository interface {
	CreatePendingItem(ctx context.Context, item *domain.InvoiceItem) error
	ActivePendingForTemplate(ctx context.Context, templateID string) (*domain.InvoiceItem, error)
	ListPendingByPayee(ctx context.Context, payeeID string) ([]domain.InvoiceItem, error)
	ListItemsByInvoice(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoicesByPayee(ctx context.Context, payeeID string) ([]domain.Invoice, error)
	GenerateInvoice(ctx context.Context, payeeID string, periodEnd time.Time) (*domain.Invoice, []domain.InvoiceItem, error)
	RevertInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, []domain.InvoiceItem, error)
}

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository instantiates repository.
func NewLedgerRepository(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepository{pool: pool}
}

const itemColumns = `id, payee_id, template_id, description, amount_cents, completed_at, is_manual, state, invoice_id, reverted_invoice_id, created_at, updated_at`

func (r *ledgerRepository) CreatePendingItem(ctx context.Context, item *domain.InvoiceItem) error {
	const query = `
        INSERT INTO invoice_items (payee_id, template_id, description, amount_cents, completed_at, is_manual, state)
        VALUES ($1,$2,$3,$4,$5,$6,'PENDING')
        RETURNING id, created_at, updated_at`
	item.State = domain.ItemStatePending
	return r.pool.QueryRow(ctx, query,
		item.PayeeID,
		item.TemplateID,
		item.Description,
		item.AmountCents,
		item.CompletedAt,
		item.IsManual,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (r *ledgerRepository) ActivePendingForTemplate(ctx context.Context, templateID string) (*domain.InvoiceItem, error) {
	const query = `
        SELECT ` + itemColumns + `
        FROM invoice_items WHERE template_id=$1 AND state='PENDING'`
	var item domain.InvoiceItem
	if err := r.pool.QueryRow(ctx, query, templateID).Scan(itemFields(&item)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *ledgerRepository) ListPendingByPayee(ctx context.Context, payeeID string) ([]domain.InvoiceItem, error) {
	const query = `
        SELECT ` + itemColumns + `
        FROM invoice_items WHERE payee_id=$1 AND state='PENDING' ORDER BY completed_at ASC`
	rows, err := r.pool.Query(ctx, query, payeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// ListItemsByInvoice returns an invoice's items, including items released
// back to the pool by a revert. Membership survives for audit.
func (r *ledgerRepository) ListItemsByInvoice(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	const query = `
        SELECT ` + itemColumns + `
        FROM invoice_items WHERE invoice_id=$1 OR reverted_invoice_id=$1
        ORDER BY completed_at ASC`
	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *ledgerRepository) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	const query = `
        SELECT id, payee_id, period_end, total_cents, reverted, reverted_at, created_at
        FROM invoices WHERE id=$1`
	var invoice domain.Invoice
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&invoice.ID,
		&invoice.PayeeID,
		&invoice.PeriodEnd,
		&invoice.TotalCents,
		&invoice.Reverted,
		&invoice.RevertedAt,
		&invoice.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *ledgerRepository) ListInvoicesByPayee(ctx context.Context, payeeID string) ([]domain.Invoice, error) {
	const query = `
        SELECT id, payee_id, period_end, total_cents, reverted, reverted_at, created_at
        FROM invoices WHERE payee_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, payeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Invoice
	for rows.Next() {
		var invoice domain.Invoice
		if err := rows.Scan(
			&invoice.ID,
			&invoice.PayeeID,
			&invoice.PeriodEnd,
			&invoice.TotalCents,
			&invoice.Reverted,
			&invoice.RevertedAt,
			&invoice.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, invoice)
	}
	return result, rows.Err()
}

// GenerateInvoice snapshots all active pending items for the payee, creates
// the invoice row and marks the items invoiced, all in one transaction. The
// FOR UPDATE lock serializes concurrent generate calls for the same payee.
func (r *ledgerRepository) GenerateInvoice(ctx context.Context, payeeID string, periodEnd time.Time) (*domain.Invoice, []domain.InvoiceItem, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const lockQuery = `
        SELECT ` + itemColumns + `
        FROM invoice_items WHERE payee_id=$1 AND state='PENDING'
        ORDER BY completed_at ASC
        FOR UPDATE`
	rows, err := tx.Query(ctx, lockQuery, payeeID)
	if err != nil {
		return nil, nil, err
	}
	items, err := scanItems(rows)
	rows.Close()
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, ErrNoPendingItems
	}

	var total int64
	for _, item := range items {
		total += item.AmountCents
	}

	invoice := &domain.Invoice{PayeeID: payeeID, PeriodEnd: periodEnd, TotalCents: total}
	const invoiceQuery = `
        INSERT INTO invoices (payee_id, period_end, total_cents)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, invoiceQuery, payeeID, periodEnd, total).Scan(&invoice.ID, &invoice.CreatedAt); err != nil {
		return nil, nil, err
	}

	// Mark exactly the locked rows. A pending item committed by a
	// concurrent writer after the snapshot must not join this invoice.
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	const markQuery = `
        UPDATE invoice_items SET state='INVOICED', invoice_id=$1, updated_at=NOW()
        WHERE id = ANY($2::uuid[])`
	if _, err := tx.Exec(ctx, markQuery, invoice.ID, ids); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	for i := range items {
		items[i].State = domain.ItemStateInvoiced
		items[i].InvoiceID = &invoice.ID
	}
	return invoice, items, nil
}

// RevertInvoice marks the invoice reverted and returns its items to the
// pending pool unchanged in amount and completion date. An item whose
// template has since accrued a fresh pending line stays attached to the
// reverted invoice; releasing it would put two active pending lines on one
// template. Released items keep their membership in reverted_invoice_id so
// the invoice remains auditable. Reverting twice fails with
// ErrInvoiceReverted.
func (r *ledgerRepository) RevertInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, []domain.InvoiceItem, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var invoice domain.Invoice
	const lockQuery = `
        SELECT id, payee_id, period_end, total_cents, reverted, reverted_at, created_at
        FROM invoices WHERE id=$1
        FOR UPDATE`
	if err := tx.QueryRow(ctx, lockQuery, invoiceID).Scan(
		&invoice.ID,
		&invoice.PayeeID,
		&invoice.PeriodEnd,
		&invoice.TotalCents,
		&invoice.Reverted,
		&invoice.RevertedAt,
		&invoice.CreatedAt,
	); err != nil {
		return nil, nil, err
	}
	if invoice.Reverted {
		return nil, nil, ErrInvoiceReverted
	}

	const releaseQuery = `
        UPDATE invoice_items i
        SET state='PENDING', reverted_invoice_id=i.invoice_id, invoice_id=NULL, updated_at=NOW()
        WHERE i.invoice_id=$1
          AND NOT EXISTS (
              SELECT 1 FROM invoice_items p
              WHERE p.template_id = i.template_id AND p.state='PENDING')`
	if _, err := tx.Exec(ctx, releaseQuery, invoiceID); err != nil {
		return nil, nil, err
	}

	const markQuery = `
        UPDATE invoices SET reverted=TRUE, reverted_at=NOW()
        WHERE id=$1
        RETURNING reverted_at`
	if err := tx.QueryRow(ctx, markQuery, invoiceID).Scan(&invoice.RevertedAt); err != nil {
		return nil, nil, err
	}
	invoice.Reverted = true

	const itemsQuery = `
        SELECT ` + itemColumns + `
        FROM invoice_items WHERE reverted_invoice_id=$1 AND state='PENDING'
        ORDER BY completed_at ASC`
	rows, err := tx.Query(ctx, itemsQuery, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	items, err := scanItems(rows)
	rows.Close()
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &invoice, items, nil
}

func itemFields(item *domain.InvoiceItem) []any {
	return []any{
		&item.ID,
		&item.PayeeID,
		&item.TemplateID,
		&item.Description,
		&item.AmountCents,
		&item.CompletedAt,
		&item.IsManual,
		&item.State,
		&item.InvoiceID,
		&item.RevertedInvoiceID,
		&item.CreatedAt,
		&item.UpdatedAt,
	}
}

func scanItems(rows pgx.Rows) ([]domain.InvoiceItem, error) {
	var result []domain.InvoiceItem
	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(itemFields(&item)...); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
