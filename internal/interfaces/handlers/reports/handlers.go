package reports

import (
	"github.com/gofiber/fiber/v2"

	"shares-backend/internal/application/reconcile"
	"shares-backend/internal/pkg/response"
)

type Handlers struct {
	Service *reconcile.Service
}

// Reconcile GET /api/v1/reports/reconcile runs the ledger check on demand.
func (h *Handlers) Reconcile(c *fiber.Ctx) error {
	report, err := h.Service.Run(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	msg := "Ledger is balanced"
	if !report.OK() {
		msg = "Ledger mismatches found"
	}
	return response.Success(c, msg, report, nil)
}
