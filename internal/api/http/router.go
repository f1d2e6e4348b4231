package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/template-studio/internal/api/http/handlers"
	"github.com/spec-kit/template-studio/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Templates      *handlers.TemplatesHandler
	Blockers       *handlers.BlockersHandler
	Suggestions    *handlers.SuggestionsHandler
	Ledger         *handlers.LedgerHandler
	Stream         *StreamHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireActor())

	templates := api.Group("/templates")
	templates.Post("", cfg.Templates.Create)
	templates.Get("", cfg.Templates.List)
	templates.Get("/:id", cfg.Templates.Get)
	templates.Delete("/:id", auth.RequireAdmin(), cfg.Templates.Delete)
	templates.Get("/:id/transitions", cfg.Templates.Transitions)
	templates.Patch("/:id/status", cfg.Templates.UpdateStatus)
	templates.Post("/:id/assign", auth.RequireAdmin(), cfg.Templates.Assign)
	templates.Post("/:id/claim", cfg.Templates.SelfAssign)
	templates.Post("/:id/unassign", cfg.Templates.Unassign)
	templates.Post("/:id/artifacts", cfg.Templates.RegisterArtifact)
	templates.Get("/:id/history", cfg.Templates.History)
	templates.Post("/:id/resync", cfg.Templates.Resync)

	templates.Post("/:id/blockers", cfg.Blockers.Create)
	templates.Get("/:id/blockers", cfg.Blockers.List)
	templates.Post("/:id/suggestions", cfg.Suggestions.Create)
	templates.Get("/:id/suggestions", cfg.Suggestions.List)

	blockers := api.Group("/blockers")
	blockers.Patch("/:id", cfg.Blockers.Update)
	blockers.Delete("/:id", cfg.Blockers.Delete)
	blockers.Post("/:id/discussion", cfg.Blockers.AddDiscussion)
	blockers.Get("/:id/discussion", cfg.Blockers.ListDiscussion)

	suggestions := api.Group("/suggestions")
	suggestions.Patch("/:id", cfg.Suggestions.Update)
	suggestions.Delete("/:id", cfg.Suggestions.Delete)

	ledger := api.Group("/ledger")
	ledger.Post("/items", auth.RequireAdmin(), cfg.Ledger.AddManualItem)
	ledger.Get("/pending/:payeeId", cfg.Ledger.ListPending)
	ledger.Post("/invoices", auth.RequireAdmin(), cfg.Ledger.GenerateInvoice)
	ledger.Get("/invoices/payee/:payeeId", cfg.Ledger.ListInvoices)
	ledger.Get("/invoices/:id", cfg.Ledger.GetInvoice)
	ledger.Post("/invoices/:id/revert", auth.RequireAdmin(), cfg.Ledger.RevertInvoice)

	if cfg.Stream != nil {
		cfg.Stream.Register(app)
	}
}
