package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/template-studio/internal/api/dto"
	"github.com/spec-kit/template-studio/internal/auth"
	"github.com/spec-kit/template-studio/internal/service"
)

// LedgerHandler exposes ledger and invoicing endpoints.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler constructs handler.
func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// AddManualItem handles POST /ledger/items.
func (h *LedgerHandler) AddManualItem(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.ManualItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.PayeeID == "" {
		return fiber.NewError(http.StatusBadRequest, "payee_id required")
	}

	item, err := h.ledger.AddManualItem(c.UserContext(), actor, service.ManualItemInput{
		PayeeID:     req.PayeeID,
		Description: req.Description,
		AmountCents: req.AmountCents,
		CompletedAt: req.CompletedAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewInvoiceItemResponse(item)})
}

// ListPending handles GET /ledger/pending/:payeeId.
func (h *LedgerHandler) ListPending(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	items, err := h.ledger.ListPending(c.UserContext(), actor, c.Params("payeeId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewInvoiceItemListResponse(items)})
}

// GenerateInvoice handles POST /ledger/invoices.
func (h *LedgerHandler) GenerateInvoice(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req struct {
		PayeeID string `json:"payee_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.PayeeID == "" {
		return fiber.NewError(http.StatusBadRequest, "payee_id required")
	}

	export, err := h.ledger.GenerateInvoice(c.UserContext(), actor, req.PayeeID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": exportResponse(export)})
}

// RevertInvoice handles POST /ledger/invoices/:id/revert.
func (h *LedgerHandler) RevertInvoice(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	export, err := h.ledger.RevertInvoice(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": exportResponse(export)})
}

// GetInvoice handles GET /ledger/invoices/:id.
func (h *LedgerHandler) GetInvoice(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	export, err := h.ledger.GetInvoice(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": exportResponse(export)})
}

// ListInvoices handles GET /ledger/invoices/payee/:payeeId.
func (h *LedgerHandler) ListInvoices(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	invoices, err := h.ledger.ListInvoices(c.UserContext(), actor, c.Params("payeeId"))
	if err != nil {
		return err
	}
	out := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, dto.NewInvoiceResponse(&invoices[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

func exportResponse(export *service.InvoiceExport) dto.InvoiceExportResponse {
	return dto.InvoiceExportResponse{
		Invoice: dto.NewInvoiceResponse(&export.Invoice),
		Items:   dto.NewInvoiceItemListResponse(export.Items),
	}
}
