package issuance

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	issuancesvc "shares-backend/internal/application/issuance"
	"shares-backend/internal/domain"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/pagination"
	"shares-backend/internal/pkg/request"
	"shares-backend/internal/pkg/response"
)

type Handlers struct {
	Service *issuancesvc.Service
}

type termsBody struct {
	SharePrice     decimal.Decimal               `json:"sharePrice"`
	InitialShares  int64                         `json:"initialShares"`
	MinInvestShare int64                         `json:"minInvestShare"`
	MaxInvestShare int64                         `json:"maxInvestShare"`
	Owners         []issuancesvc.OwnerAllocation `json:"owners"`
}

func (b termsBody) terms() domain.InvestTerms {
	return domain.InvestTerms{
		SharePrice:     b.SharePrice,
		InitialShares:  b.InitialShares,
		MinInvestShare: b.MinInvestShare,
		MaxInvestShare: b.MaxInvestShare,
	}
}

type createFundBody struct {
	termsBody
	Name        string `json:"name"`
	Description string `json:"description"`
	Manager     string `json:"manager"`
	Currency    string `json:"currency"`
}

type createCompanyBody struct {
	Name               string  `json:"name"`
	RegistrationNumber *string `json:"registrationNumber"`
	Industry           string  `json:"industry"`
	CountryCode        string  `json:"countryCode"`
	Email              *string `json:"email"`
	LogoURL            *string `json:"logoUrl"`
}

type investInfoBody struct {
	SharePrice     *decimal.Decimal `json:"sharePrice"`
	MinInvestShare *int64           `json:"minInvestShare"`
	MaxInvestShare *int64           `json:"maxInvestShare"`
}

func actor(c *fiber.Ctx) (domain.Performer, error) {
	p, ok := middleware.GetPerformer(c)
	if !ok {
		return domain.Performer{}, apperrors.Forbidden("Session is missing a performer identity")
	}
	return p, nil
}

// CreateFund POST /api/v1/funds
func (h *Handlers) CreateFund(c *fiber.Ctx) error {
	p, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body createFundBody
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	fund, res, err := h.Service.CreateFund(c.UserContext(), issuancesvc.CreateFundInput{
		Name:        body.Name,
		Description: body.Description,
		Manager:     body.Manager,
		Currency:    body.Currency,
		Terms:       body.terms(),
		Owners:      body.Owners,
	}, p)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Fund created and shares issued successfully", fiber.Map{
		"fund":        fund,
		"allocations": res.Allocations,
	}, nil)
}

// ListFunds GET /api/v1/funds?keyword=
func (h *Handlers) ListFunds(c *fiber.Ctx) error {
	page, err := h.Service.ListFunds(c.UserContext(), c.Query("keyword"), pagination.FromQuery(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, "Funds fetched successfully", page)
}

// GetFund GET /api/v1/funds/:id
func (h *Handlers) GetFund(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	view, err := h.Service.GetFund(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Fund fetched successfully", view, nil)
}

// UpdateFund PATCH /api/v1/funds/:id
func (h *Handlers) UpdateFund(c *fiber.Ctx) error {
	return h.updateInvestInfo(c, domain.AssetFund, "Fund")
}

// CreateCompany POST /api/v1/companies
func (h *Handlers) CreateCompany(c *fiber.Ctx) error {
	p, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body createCompanyBody
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	company, err := h.Service.CreateCompany(c.UserContext(), issuancesvc.CreateCompanyInput(body), p)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Company created successfully", company, nil)
}

// IssueCompany POST /api/v1/companies/:id/issue
func (h *Handlers) IssueCompany(c *fiber.Ctx) error {
	p, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body termsBody
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	company, res, err := h.Service.IssueCompany(c.UserContext(), id, body.terms(), body.Owners, p)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Company shares issued successfully", fiber.Map{
		"company":     company,
		"allocations": res.Allocations,
	}, nil)
}

// ListCompanies GET /api/v1/companies?keyword=
func (h *Handlers) ListCompanies(c *fiber.Ctx) error {
	page, err := h.Service.ListCompanies(c.UserContext(), c.Query("keyword"), pagination.FromQuery(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, "Companies fetched successfully", page)
}

// GetCompany GET /api/v1/companies/:id
func (h *Handlers) GetCompany(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	view, err := h.Service.GetCompany(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Company fetched successfully", view, nil)
}

// UpdateCompany PATCH /api/v1/companies/:id
func (h *Handlers) UpdateCompany(c *fiber.Ctx) error {
	return h.updateInvestInfo(c, domain.AssetCompany, "Company")
}

func (h *Handlers) updateInvestInfo(c *fiber.Ctx, t domain.AssetType, label string) error {
	p, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body investInfoBody
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	if err := request.OnlyKeys(c, "sharePrice", "minInvestShare", "maxInvestShare"); err != nil {
		return response.FromError(c, err)
	}
	issuer, err := h.Service.UpdateInvestInfo(c.UserContext(), domain.Asset{Type: t, ID: id}, issuancesvc.InvestInfoPatch(body), p)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, label+" invest info updated successfully", issuer, nil)
}

// ListEntityLogs GET /api/v1/entity-logs?entityType=&entityId=&actorId=&action=
func (h *Handlers) ListEntityLogs(c *fiber.Ctx) error {
	var f issuancesvc.EntityLogFilter
	var err error
	if f.EntityType, err = request.AssetTypeQuery(c, "entityType"); err != nil {
		return response.FromError(c, err)
	}
	if f.EntityID, err = request.UUIDQuery(c, "entityId"); err != nil {
		return response.FromError(c, err)
	}
	if f.ActorID, err = request.UUIDQuery(c, "actorId"); err != nil {
		return response.FromError(c, err)
	}
	f.Action = c.Query("action")
	page, err := h.Service.ListEntityLogs(c.UserContext(), f, pagination.FromQuery(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, "Entity logs fetched successfully", page)
}
