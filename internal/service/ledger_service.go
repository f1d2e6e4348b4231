package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/repository"
	apperrors "github.com/spec-kit/template-studio/pkg/util/errorutil"
)

// LedgerService reconciles the financial ledger with template lifecycle
// transitions: pending-work accrual, invoice generation and reversal.
type LedgerService struct {
	ledger repository.LedgerRepository
	actors repository.ActorRepository
}

// NewLedgerService constructs the service.
func NewLedgerService(ledger repository.LedgerRepository, actors repository.ActorRepository) *LedgerService {
	return &LedgerService{ledger: ledger, actors: actors}
}

// ManualItemInput describes a manually entered ledger line.
type ManualItemInput struct {
	PayeeID     string
	Description string
	AmountCents int64
	CompletedAt *time.Time
}

// InvoiceExport is the exportable invoice representation handed to external
// renderers (PDF/CSV generation is out of scope).
type InvoiceExport struct {
	Invoice domain.Invoice
	Items   []domain.InvoiceItem
}

// OnTransitionToBillable accrues a pending ledger item when a template
// reaches the billable state. Re-entering the state is a no-op while an
// active pending item exists for the template.
func (s *LedgerService) OnTransitionToBillable(ctx context.Context, template *domain.Template, payeeID string) error {
	existing, err := s.ledger.ActivePendingForTemplate(ctx, template.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if existing != nil {
		return nil
	}

	templateID := template.ID
	item := &domain.InvoiceItem{
		PayeeID:     payeeID,
		TemplateID:  &templateID,
		Description: template.Title,
		AmountCents: template.PriceCents,
		CompletedAt: time.Now(),
	}
	if err := s.ledger.CreatePendingItem(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil
		}
		return apperrors.MapError(err)
	}
	return nil
}

// AddManualItem inserts a manual ledger line straight into the pending pool.
// Admin only; manual items participate in invoicing like derived ones.
func (s *LedgerService) AddManualItem(ctx context.Context, actor *domain.Actor, input ManualItemInput) (*domain.InvoiceItem, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewPermissionDenied("admin role required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	if input.AmountCents < 0 {
		return nil, apperrors.NewValidationError("amount must not be negative", nil)
	}
	if _, err := s.actors.GetByID(ctx, input.PayeeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("actor", map[string]any{"actor_id": input.PayeeID})
		}
		return nil, apperrors.MapError(err)
	}

	completedAt := time.Now()
	if input.CompletedAt != nil {
		completedAt = *input.CompletedAt
	}
	item := &domain.InvoiceItem{
		PayeeID:     input.PayeeID,
		Description: strings.TrimSpace(input.Description),
		AmountCents: input.AmountCents,
		CompletedAt: completedAt,
		IsManual:    true,
	}
	if err := s.ledger.CreatePendingItem(ctx, item); err != nil {
		return nil, apperrors.MapError(err)
	}
	return item, nil
}

// ListPending returns the active pending pool for a payee.
func (s *LedgerService) ListPending(ctx context.Context, actor *domain.Actor, payeeID string) ([]domain.InvoiceItem, error) {
	if actor.Role != domain.RoleAdmin && actor.ID != payeeID {
		return nil, apperrors.NewPermissionDenied("only own pending items are visible")
	}
	items, err := s.ledger.ListPendingByPayee(ctx, payeeID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// GenerateInvoice snapshots all active pending items for the payee into an
// immutable invoice. Fails with NOTHING_TO_INVOICE on an empty pool.
func (s *LedgerService) GenerateInvoice(ctx context.Context, actor *domain.Actor, payeeID string) (*InvoiceExport, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewPermissionDenied("admin role required")
	}
	invoice, items, err := s.ledger.GenerateInvoice(ctx, payeeID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNoPendingItems) {
			return nil, apperrors.NewNothingToInvoice(payeeID)
		}
		return nil, apperrors.MapError(err)
	}
	return &InvoiceExport{Invoice: *invoice, Items: items}, nil
}

// RevertInvoice is the exact inverse of GenerateInvoice: the invoice is
// marked reverted (kept for audit) and its items return to the pending pool
// unchanged. A second revert fails with ALREADY_REVERTED.
func (s *LedgerService) RevertInvoice(ctx context.Context, actor *domain.Actor, invoiceID string) (*InvoiceExport, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewPermissionDenied("admin role required")
	}
	invoice, items, err := s.ledger.RevertInvoice(ctx, invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvoiceReverted):
			return nil, apperrors.NewAlreadyReverted(invoiceID)
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("invoice", map[string]any{"invoice_id": invoiceID})
		}
		return nil, apperrors.MapError(err)
	}
	return &InvoiceExport{Invoice: *invoice, Items: items}, nil
}

// GetInvoice returns the invoice and its items.
func (s *LedgerService) GetInvoice(ctx context.Context, actor *domain.Actor, invoiceID string) (*InvoiceExport, error) {
	invoice, err := s.ledger.GetInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("invoice", map[string]any{"invoice_id": invoiceID})
		}
		return nil, apperrors.MapError(err)
	}
	if actor.Role != domain.RoleAdmin && actor.ID != invoice.PayeeID {
		return nil, apperrors.NewPermissionDenied("only own invoices are visible")
	}
	items, err := s.ledger.ListItemsByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &InvoiceExport{Invoice: *invoice, Items: items}, nil
}

// ListInvoices returns invoices for a payee, reverted ones included.
func (s *LedgerService) ListInvoices(ctx context.Context, actor *domain.Actor, payeeID string) ([]domain.Invoice, error) {
	if actor.Role != domain.RoleAdmin && actor.ID != payeeID {
		return nil, apperrors.NewPermissionDenied("only own invoices are visible")
	}
	invoices, err := s.ledger.ListInvoicesByPayee(ctx, payeeID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return invoices, nil
}
