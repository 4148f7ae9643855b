package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	authsvc "shares-backend/internal/application/auth"
	emailsvc "shares-backend/internal/application/emails"
	holdsvc "shares-backend/internal/application/holdings"
	issuancesvc "shares-backend/internal/application/issuance"
	investorsvc "shares-backend/internal/application/investors"
	notifysvc "shares-backend/internal/application/notifications"
	paysvc "shares-backend/internal/application/payments"
	"shares-backend/internal/application/reconcile"
	tradesvc "shares-backend/internal/application/trading"
	txsvc "shares-backend/internal/application/transactions"
	uploadsvc "shares-backend/internal/application/uploads"
	"shares-backend/internal/config"
	"shares-backend/internal/infrastructure/database"
	authhandler "shares-backend/internal/interfaces/handlers/auth"
	healthhandler "shares-backend/internal/interfaces/handlers/health"
	holdhandler "shares-backend/internal/interfaces/handlers/holdings"
	investorhandler "shares-backend/internal/interfaces/handlers/investors"
	issuancehandler "shares-backend/internal/interfaces/handlers/issuance"
	notifyhandler "shares-backend/internal/interfaces/handlers/notifications"
	payhandler "shares-backend/internal/interfaces/handlers/payments"
	reporthandler "shares-backend/internal/interfaces/handlers/reports"
	tradehandler "shares-backend/internal/interfaces/handlers/trading"
	txhandler "shares-backend/internal/interfaces/handlers/transactions"
	uploadhandler "shares-backend/internal/interfaces/handlers/uploads"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/constants"
)

// Deps are the connections every service shares.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// Connect opens the database and Redis named in cfg and migrates when AUTO_MIGRATE is set.
func Connect(ctx context.Context, cfg *config.Config) (Deps, error) {
	if cfg.DatabaseURL == "" {
		return Deps{}, fmt.Errorf("no database URL configured for APP_ENV=%s", cfg.Env)
	}
	if cfg.RedisURL == "" {
		return Deps{}, fmt.Errorf("REDIS_URL is required for sessions")
	}
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return Deps{}, fmt.Errorf("open database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return Deps{}, fmt.Errorf("migrate: %w", err)
		}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return Deps{}, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis ping failed at startup")
	}
	return Deps{DB: db, Redis: rdb}, nil
}

// Services holds every application service built from Deps.
type Services struct {
	Holdings      *holdsvc.Service
	Transactions  *txsvc.Service
	Issuance      *issuancesvc.Service
	Investors     *investorsvc.Service
	Notifications *notifysvc.Service
	Trading       *tradesvc.Service
	Payments      *paysvc.Service
	Uploads       *uploadsvc.Service
	Reconcile     *reconcile.Service
}

func NewServices(cfg *config.Config, deps Deps) *Services {
	db := deps.DB

	var mailer emailsvc.Sender
	if cfg.SendinblueAPIKey != "" {
		mailer = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}
	notifications := &notifysvc.Service{DB: db, Redis: deps.Redis, Mailer: mailer}
	transactions := &txsvc.Service{DB: db}
	trading := &tradesvc.Service{DB: db, Notifier: notifications}

	var intents paysvc.IntentCreator
	if cfg.StripeSecretKey != "" {
		intents = &paysvc.StripeIntents{SecretKey: cfg.StripeSecretKey}
	}

	return &Services{
		Holdings:      &holdsvc.Service{DB: db},
		Transactions:  transactions,
		Issuance:      &issuancesvc.Service{DB: db},
		Investors:     &investorsvc.Service{DB: db, Redis: deps.Redis, Transactions: transactions},
		Notifications: notifications,
		Trading:       trading,
		Payments: &paysvc.Service{
			DB:            db,
			Trading:       trading,
			Intents:       intents,
			Currency:      cfg.StripeCurrency,
			WebhookSecret: cfg.StripeWebhookSecret,
		},
		Uploads: &uploadsvc.Service{
			Client:      &uploadsvc.SupabaseClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
			SupabaseURL: cfg.SupabaseURL,
			Bucket:      cfg.PaymentDocsBucket,
		},
		Reconcile: &reconcile.Service{DB: db},
	}
}

type sqlPinger struct{ db *gorm.DB }

func (p sqlPinger) PingContext(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func sessionConfig(cfg *config.Config) middleware.SessionConfig {
	return middleware.SessionConfig{
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
}

// CreateApp builds the Fiber app: global middleware, then the /api/v1 route groups.
func CreateApp(cfg *config.Config, deps Deps, svc *Services) *fiber.App {
	rdb := deps.Redis
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler(rdb),
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Stripe needs the untouched body and carries no session.
	ph := &payhandler.Handlers{Service: svc.Payments}
	app.Post("/api/v1/stripe/webhook", ph.Webhook)

	app.Use(middleware.Session(rdb))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Metrics())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{Rdb: rdb, HealthAdminKey: cfg.HealthAdminKey}
	if deps.DB != nil {
		hh.DB = sqlPinger{db: deps.DB}
	}
	app.Get("/", hh.Root)
	app.Get("/health", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Post("/health/reset", hh.Reset)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	ah := &authhandler.Handlers{
		UserFinder: &authsvc.GormUserFinder{DB: deps.DB},
		Rdb:        rdb,
		Config:     sessionConfig(cfg),
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	api := app.Group("/api/v1", middleware.RequireAuth())
	perm := middleware.AuthorizePermission

	// Ledger reads
	holdh := &holdhandler.Handlers{Service: svc.Holdings}
	api.Get("/holdings", perm(constants.ViewLedger), holdh.List)
	txh := &txhandler.Handlers{Service: svc.Transactions}
	api.Get("/transactions", perm(constants.ViewLedger), txh.List)

	// Issuing entities
	ih := &issuancehandler.Handlers{Service: svc.Issuance}
	funds := api.Group("/funds")
	funds.Post("/", perm(constants.IssueShares), ih.CreateFund)
	funds.Get("/", perm(constants.ViewLedger), ih.ListFunds)
	funds.Get("/:id", perm(constants.ViewLedger), ih.GetFund)
	funds.Patch("/:id", perm(constants.IssueShares), ih.UpdateFund)
	companies := api.Group("/companies")
	companies.Post("/", perm(constants.IssueShares), ih.CreateCompany)
	companies.Post("/:id/issue", perm(constants.IssueShares), ih.IssueCompany)
	companies.Get("/", perm(constants.ViewLedger), ih.ListCompanies)
	companies.Get("/:id", perm(constants.ViewLedger), ih.GetCompany)
	companies.Patch("/:id", perm(constants.IssueShares), ih.UpdateCompany)
	api.Get("/entity-logs", perm(constants.ViewAuditLogs), ih.ListEntityLogs)

	// Investors
	invh := &investorhandler.Handlers{Service: svc.Investors}
	investors := api.Group("/investors")
	investors.Post("/", perm(constants.ManageInvestors), invh.Create)
	investors.Get("/", perm(constants.ManageInvestors), invh.List)
	investors.Get("/:id", perm(constants.ViewLedger), invh.Get)
	investors.Get("/:id/portfolio", perm(constants.ViewLedger), invh.Portfolio)
	investors.Patch("/:id/status", perm(constants.ManageInvestors), invh.SetStatus)

	// Trade requests
	th := &tradehandler.Handlers{Service: svc.Trading}
	trades := api.Group("/trade-requests")
	trades.Post("/", perm(constants.CreateTradeRequest), th.Create)
	trades.Get("/", perm(constants.ManageTradeRequests), th.List)
	trades.Get("/investor/:investorId", perm(constants.ViewLedger), th.ListByInvestor)
	trades.Get("/:id", perm(constants.ViewLedger), th.Get)
	trades.Patch("/:id", perm(constants.ViewLedger), th.Update)
	trades.Post("/:id/confirm", perm(constants.ConfirmTradeRequest), th.Confirm)
	trades.Post("/:id/payment-intent", perm(constants.CreateTradeRequest), ph.CreateIntent)
	trades.Delete("/:id", perm(constants.DeleteTradeRequest), th.Delete)

	uph := &uploadhandler.Handlers{Service: svc.Uploads, Trading: svc.Trading}
	api.Post("/uploads/payment-doc", perm(constants.ViewLedger), uph.PaymentDoc)

	// Notifications are always the caller's own
	nh := &notifyhandler.Handlers{Service: svc.Notifications}
	api.Get("/notifications", nh.List)
	api.Patch("/notifications/read-all", nh.MarkAllRead)
	api.Patch("/notifications/:id/read", nh.MarkRead)

	rh := &reporthandler.Handlers{Service: svc.Reconcile}
	api.Get("/reports/reconcile", perm(constants.ViewReports), rh.Reconcile)

	return app
}

// Handler exposes the app to net/http callers such as serverless runtimes.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
