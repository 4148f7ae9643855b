package trading

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	tradesvc "shares-backend/internal/application/trading"
	"shares-backend/internal/domain"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/pagination"
	"shares-backend/internal/pkg/request"
	"shares-backend/internal/pkg/response"
)

type Handlers struct {
	Service *tradesvc.Service
}

var updatableFields = []string{
	"requestStatus", "rejectionReason", "paymentStatus", "paymentConfirmationDocument", "description",
}

// investors may only attach proof of payment or reword their own request
var investorUpdatableFields = []string{"paymentConfirmationDocument", "description"}

type createBody struct {
	InvestorID     *uuid.UUID       `json:"investorId"`
	TradeType      string           `json:"tradeType"`
	AssetType      string           `json:"assetType"`
	AssetID        uuid.UUID        `json:"assetId"`
	NumberOfShares int64            `json:"numberOfShares"`
	PricePerShare  *decimal.Decimal `json:"pricePerShare"`
	Description    string           `json:"description"`
}

type updateBody struct {
	RequestStatus               *string `json:"requestStatus"`
	PaymentStatus               *string `json:"paymentStatus"`
	RejectionReason             *string `json:"rejectionReason"`
	PaymentConfirmationDocument *string `json:"paymentConfirmationDocument"`
	Description                 *string `json:"description"`
}

func performer(c *fiber.Ctx) (domain.Performer, error) {
	p, ok := middleware.GetPerformer(c)
	if !ok {
		return domain.Performer{}, apperrors.Forbidden("Session is missing a performer identity")
	}
	return p, nil
}

// ownOnly refuses investors access to another investor's requests. Staff pass.
func ownOnly(p domain.Performer, investorID uuid.UUID) error {
	if p.Type == domain.PerformerInvestor && p.ID != investorID {
		return apperrors.Forbidden("Investors can only access their own trade requests")
	}
	return nil
}

func filterFromQuery(c *fiber.Ctx) (tradesvc.Filter, error) {
	assetID, err := request.UUIDQuery(c, "assetId")
	if err != nil {
		return tradesvc.Filter{}, err
	}
	return tradesvc.Filter{
		TradeType:     c.Query("tradeType"),
		RequestStatus: c.Query("requestStatus"),
		PaymentStatus: c.Query("paymentStatus"),
		AssetType:     c.Query("assetType"),
		AssetID:       assetID,
		Keyword:       c.Query("keyword"),
	}, nil
}

// Create POST /api/v1/trade-requests
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, err := performer(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body createBody
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	investorID := p.ID
	if body.InvestorID != nil {
		investorID = *body.InvestorID
	}
	req, err := h.Service.Create(c.UserContext(), tradesvc.CreateInput{
		InvestorID:     investorID,
		TradeType:      body.TradeType,
		AssetType:      body.AssetType,
		AssetID:        body.AssetID,
		NumberOfShares: body.NumberOfShares,
		PricePerShare:  body.PricePerShare,
		Description:    body.Description,
	}, p)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Trade request created successfully", req, nil)
}

// List GET /api/v1/trade-requests
func (h *Handlers) List(c *fiber.Ctx) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return response.FromError(c, err)
	}
	if f.InvestorID, err = request.UUIDQuery(c, "investorId"); err != nil {
		return response.FromError(c, err)
	}
	page, err := h.Service.List(c.UserContext(), f, pagination.FromQuery(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, "Trade requests fetched successfully", page)
}

// ListByInvestor GET /api/v1/trade-requests/investor/:investorId
func (h *Handlers) ListByInvestor(c *fiber.Ctx) error {
	p, err := performer(c)
	if err != nil {
		return response.FromError(c, err)
	}
	investorID, err := request.UUIDParam(c, "investorId")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := ownOnly(p, investorID); err != nil {
		return response.FromError(c, err)
	}
	f, err := filterFromQuery(c)
	if err != nil {
		return response.FromError(c, err)
	}
	page, err := h.Service.ListByInvestor(c.UserContext(), investorID, f, pagination.FromQuery(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, "Trade requests fetched successfully", page)
}

// Get GET /api/v1/trade-requests/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	p, err := performer(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	d, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := ownOnly(p, d.Request.InvestorID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Trade request fetched successfully", d, nil)
}

// Update PATCH /api/v1/trade-requests/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	p, err := performer(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	allowed := updatableFields
	if p.Type == domain.PerformerInvestor {
		allowed = investorUpdatableFields
	}
	var body updateBody
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	if err := request.OnlyKeys(c, allowed...); err != nil {
		return response.FromError(c, err)
	}
	if p.Type == domain.PerformerInvestor {
		d, err := h.Service.Get(c.UserContext(), id)
		if err != nil {
			return response.FromError(c, err)
		}
		if err := ownOnly(p, d.Request.InvestorID); err != nil {
			return response.FromError(c, err)
		}
	}
	req, err := h.Service.Update(c.UserContext(), id, tradesvc.UpdateInput(body), p)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Trade request updated successfully", req, nil)
}

// Confirm POST /api/v1/trade-requests/:id/confirm
func (h *Handlers) Confirm(c *fiber.Ctx) error {
	p, err := performer(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	res, err := h.Service.Confirm(c.UserContext(), id, p)
	if err != nil {
		return response.FromError(c, err)
	}
	msg := "Confirmed and transferred successfully"
	if res.AlreadyConfirmed {
		msg = "Trade request already confirmed"
	}
	return response.Success(c, msg, fiber.Map{
		"request": res.Request,
		"transactions": fiber.Map{
			"sellTx": res.SellTx,
			"buyTx":  res.BuyTx,
		},
	}, fiber.Map{"alreadyConfirmed": res.AlreadyConfirmed})
}

// Delete DELETE /api/v1/trade-requests/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Service.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Trade request deleted successfully", fiber.Map{"id": id}, nil)
}
