package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/storeforge/access-plane/auth"
	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/config"
	"github.com/storeforge/access-plane/handlers"
	"github.com/storeforge/access-plane/middleware"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/repositories/postgres"
	"github.com/storeforge/access-plane/services/access"
	"github.com/storeforge/access-plane/services/audit"
	"github.com/storeforge/access-plane/token"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Stores    repositories.StoreRepository
	Users     repositories.UserRepository
	Grants    repositories.GrantRepository
	AuditLogs repositories.AuditRepository
	TxManager repositories.TransactionManager

	// Services
	TokenIssuer   *token.Issuer
	AccessService *access.Service
	AuditService  *audit.AuditService

	// HTTP layer
	AuthMiddleware *middleware.AuthMiddleware
	Guard          *middleware.Guard
	AuthHandler    *auth.Handler
	AccessHandler  *handlers.AccessHandler
	GrantHandler   *handlers.GrantHandler
	UserHandler    *handlers.UserHandler
	StoreHandler   *handlers.StoreHandler
	AuditHandler   *handlers.AuditHandler
	HealthHandler  *handlers.HealthHandler

	cacheStop chan struct{}
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		cacheStop: make(chan struct{}),
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices(cfg)
	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Stores = repos.Stores
	d.Users = repos.Users
	d.Grants = repos.Grants
	d.AuditLogs = repos.AuditLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initServices wires the token issuer, permission resolution, and the
// audit trail
func (d *Dependencies) initServices(cfg *config.Config) {
	d.TokenIssuer = token.NewIssuer(token.Config{
		Secret:   cfg.Auth.TokenSecret,
		Issuer:   cfg.Auth.TokenIssuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})

	cache := access.NewPermissionCache(cfg.Access.CacheSize, cfg.Access.CacheTTL)
	d.AccessService = access.NewService(d.Grants, d.Users, cache, d.Logger)

	d.AuditService = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})

	d.Logger.Info("services initialized")
}

// initHTTP wires middleware and handlers
func (d *Dependencies) initHTTP(cfg *config.Config) {
	sources := func(claims *token.ParsedClaims) authz.PermissionSource {
		return d.AccessService.SourceFor(claims.Sub, claims.Role)
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.TokenIssuer, sources, d.Logger)
	d.Guard = middleware.NewGuard(d.Logger, d.AuditService)

	d.AuthHandler = auth.NewHandler(cfg, d.Users, d.TokenIssuer, d.AuditService, d.Logger)
	d.AccessHandler = handlers.NewAccessHandler(d.AccessService, d.Logger)
	d.GrantHandler = handlers.NewGrantHandler(d.AccessService, d.Users, d.AuditService, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.Users, d.AuditService, d.Logger)
	d.StoreHandler = handlers.NewStoreHandler(d.Stores, d.Logger)
	d.AuditHandler = handlers.NewAuditHandler(d.AuditLogs, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Logger)
}

// Start launches the background workers: the audit pipeline and the
// permission cache janitor.
func (d *Dependencies) Start() error {
	if err := d.AuditService.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	d.AccessService.StartCacheCleanup(d.Config.Access.CacheTTL, d.cacheStop)

	d.Logger.Info("background workers started")
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	close(d.cacheStop)

	stopTimeout := d.Config.Audit.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	if err := d.AuditService.Stop(stopTimeout); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
