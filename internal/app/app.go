// Package app assembles the marketplace from configuration: store, ledger gateway,
// event publisher, services and the HTTP router.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"

	"wingyshop/internal/config"
	"wingyshop/internal/handlers"
	"wingyshop/internal/middleware"
	"wingyshop/internal/repositories"
	"wingyshop/internal/services"
	"wingyshop/pkg/logger"
	"wingyshop/pkg/metrics"
	"wingyshop/pkg/rabbitmq"
	"wingyshop/pkg/wingycoin"
)

// App holds the wired components of a running marketplace.
type App struct {
	Fiber        *fiber.App
	Store        repositories.Store
	Auth         *services.AuthService
	Users        *services.UserService
	Products     *services.ProductService
	Transactions *services.TransactionService
	// Ledger is set when no remote Wingy Coin URL is configured.
	Ledger *wingycoin.Ledger
	Events *rabbitmq.Client

	cfg *config.Config
	db  *gorm.DB
	log logger.Logger
}

// New builds the App described by cfg.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	if err := a.openStore(); err != nil {
		return nil, err
	}

	var gateway services.BalanceGateway
	if cfg.Wingy.BaseURL == "" {
		a.Ledger = wingycoin.NewLedger()
		gateway = a.Ledger
		log.Warn("WINGY_API_URL is empty, using the in-process ledger", nil)
	} else {
		gateway = wingycoin.NewClient(cfg.Wingy.BaseURL, cfg.Wingy.Timeout)
	}

	var events services.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL}, log)
		if err != nil {
			log.Error("event publishing disabled", map[string]interface{}{"error": err})
		} else {
			a.Events = client
			events = client
		}
	}

	a.Auth = services.NewAuthService(a.Store, gateway, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)
	a.Users = services.NewUserService(a.Store, gateway, log)
	a.Products = services.NewProductService(a.Store, a.Auth, events, cfg.Market.MaxProductStock, log)
	a.Transactions = services.NewTransactionService(a.Store, a.Auth, events, log)

	if cfg.SeedDemo {
		if err := a.Seed(); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Fiber = a.router()
	return a, nil
}

func (a *App) openStore() error {
	if a.cfg.Database.Driver == "memory" {
		a.Store = repositories.NewMemoryStore()
		return nil
	}

	db, err := repositories.OpenDatabase(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := repositories.Migrate(db); err != nil {
		return err
	}
	a.db = db
	a.Store = repositories.NewGORMStore(db)
	return nil
}

func (a *App) router() *fiber.App {
	f := fiber.New(fiber.Config{
		AppName:      "Wingy Shop",
		ErrorHandler: a.errorHandler,
	})

	f.Use(recover.New())
	f.Use(requestid.New())
	if a.cfg.IsDevelopment() {
		f.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
			Output: os.Stdout,
		}))
	}
	f.Use(metrics.Middleware())

	f.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": a.Events != nil,
		})
	})
	f.Get("/metrics", metrics.Handler())

	api := f.Group("/api")
	authRequired := middleware.AuthRequired(a.Auth, a.log)
	adminRequired := middleware.AdminRequired(a.Auth, a.log)

	handlers.NewAuthHandler(a.Auth, a.log).RegisterRoutes(api)
	handlers.NewUserHandler(a.Users, a.log).RegisterRoutes(api, authRequired)
	handlers.NewProductHandler(a.Products, a.log).RegisterRoutes(api, authRequired)
	handlers.NewTransactionHandler(a.Transactions, a.log).RegisterRoutes(api, authRequired)
	handlers.NewAdminHandler(a.Products, a.Transactions, a.log).RegisterRoutes(api, authRequired, adminRequired)

	return f
}

// errorHandler answers unmatched routes and panics recovered by fiber.
func (a *App) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Server error"
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		a.log.Error("unhandled error", map[string]interface{}{"path": c.Path(), "error": err})
	}
	return c.Status(code).JSON(fiber.Map{"message": message})
}

// ConsumeEvents starts logging published events when a broker is configured.
func (a *App) ConsumeEvents() error {
	if a.Events == nil {
		return nil
	}
	return a.Events.ConsumeEvents(rabbitmq.LogEvent(a.log.WithFields(map[string]interface{}{"component": "events"})))
}

// Close releases the broker connection and the database.
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close app: %v", errs)
	}
	return nil
}
