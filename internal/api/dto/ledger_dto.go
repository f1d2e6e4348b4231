package dto

import (
	"time"

	"github.com/spec-kit/template-studio/internal/domain"
)

// ManualItemRequest payload for manual ledger lines.
type ManualItemRequest struct {
	PayeeID     string     `json:"payee_id"`
	Description string     `json:"description"`
	AmountCents int64      `json:"amount_cents"`
	CompletedAt *time.Time `json:"completed_at"`
}

// InvoiceItemResponse one ledger line.
type InvoiceItemResponse struct {
	ID                string    `json:"id"`
	PayeeID           string    `json:"payee_id"`
	TemplateID        *string   `json:"template_id,omitempty"`
	Description       string    `json:"description"`
	AmountCents       int64     `json:"amount_cents"`
	CompletedAt       time.Time `json:"completed_at"`
	IsManual          bool      `json:"is_manual"`
	State             string    `json:"state"`
	InvoiceID         *string   `json:"invoice_id,omitempty"`
	RevertedInvoiceID *string   `json:"reverted_invoice_id,omitempty"`
}

// InvoiceResponse one invoice header.
type InvoiceResponse struct {
	ID         string     `json:"id"`
	PayeeID    string     `json:"payee_id"`
	PeriodEnd  time.Time  `json:"period_end"`
	TotalCents int64      `json:"total_cents"`
	Reverted   bool       `json:"reverted"`
	RevertedAt *time.Time `json:"reverted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// InvoiceExportResponse invoice header plus lines.
type InvoiceExportResponse struct {
	Invoice InvoiceResponse       `json:"invoice"`
	Items   []InvoiceItemResponse `json:"items"`
}

// NewInvoiceItemResponse maps one ledger line.
func NewInvoiceItemResponse(item *domain.InvoiceItem) InvoiceItemResponse {
	return InvoiceItemResponse{
		ID:                item.ID,
		PayeeID:           item.PayeeID,
		TemplateID:        item.TemplateID,
		Description:       item.Description,
		AmountCents:       item.AmountCents,
		CompletedAt:       item.CompletedAt,
		IsManual:          item.IsManual,
		State:             string(item.State),
		InvoiceID:         item.InvoiceID,
		RevertedInvoiceID: item.RevertedInvoiceID,
	}
}

// NewInvoiceResponse maps one invoice header.
func NewInvoiceResponse(invoice *domain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:         invoice.ID,
		PayeeID:    invoice.PayeeID,
		PeriodEnd:  invoice.PeriodEnd,
		TotalCents: invoice.TotalCents,
		Reverted:   invoice.Reverted,
		RevertedAt: invoice.RevertedAt,
		CreatedAt:  invoice.CreatedAt,
	}
}

// NewInvoiceItemListResponse maps ledger lines.
func NewInvoiceItemListResponse(items []domain.InvoiceItem) []InvoiceItemResponse {
	out := make([]InvoiceItemResponse, 0, len(items))
	for i := range items {
		out = append(out, NewInvoiceItemResponse(&items[i]))
	}
	return out
}
