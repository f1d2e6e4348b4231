package domain

import "time"

// InvoiceItemState tracks whether a ledger line is awaiting invoicing.
type InvoiceItemState string

const (
	ItemStatePending  InvoiceItemState = "PENDING"
	ItemStateInvoiced InvoiceItemState = "INVOICED"
)

// InvoiceItem is a ledger line. Non-manual items reference exactly one
// template; at most one active pending item exists per template.
// RevertedInvoiceID keeps the membership of an item released by an invoice
// revert, so the reverted invoice stays auditable.
type InvoiceItem struct {
	ID                string
	PayeeID           string
	TemplateID        *string
	Description       string
	AmountCents       int64
	CompletedAt       time.Time
	IsManual          bool
	State             InvoiceItemState
	InvoiceID         *string
	RevertedInvoiceID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Invoice is an immutable snapshot of items for one payee and period.
// The only mutation allowed after creation is a single revert, which keeps
// the row for audit.
type Invoice struct {
	ID         string
	PayeeID    string
	PeriodEnd  time.Time
	TotalCents int64
	Reverted   bool
	RevertedAt *time.Time
	CreatedAt  time.Time
}
