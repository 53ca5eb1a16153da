package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/upb/procurement-agent/auth"
	"github.com/upb/procurement-agent/config"
	"github.com/upb/procurement-agent/internal/observability"
	"github.com/upb/procurement-agent/middleware"
	"github.com/upb/procurement-agent/repositories"
	"github.com/upb/procurement-agent/repositories/catalog"
	"github.com/upb/procurement-agent/repositories/document"
	"github.com/upb/procurement-agent/repositories/memory"
	"github.com/upb/procurement-agent/repositories/postgres"
	"github.com/upb/procurement-agent/repositories/redis"
	"github.com/upb/procurement-agent/services/approval"
	"github.com/upb/procurement-agent/services/intent"
	"github.com/upb/procurement-agent/services/procurement"
	"github.com/upb/procurement-agent/services/providers"
	"github.com/upb/procurement-agent/services/providers/openai"
	"github.com/upb/procurement-agent/services/vendors"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Backing stores, only the configured ones are set
	RepoFactory *postgres.RepositoryFactory
	Redis       *goredis.Client
	SQLite      *document.SQLiteStore

	// Repositories
	Repos repositories.Repositories

	// Services
	Evaluator   *vendors.Evaluator
	Gate        *approval.Gate
	Approvals   *approval.Service
	Procurement *procurement.Service
	Dispatcher  *intent.Dispatcher // nil when no language model is configured

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewMetrics()
	}

	if err := deps.initRuleStore(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize rule store: %w", err)
	}

	if err := deps.initCatalog(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize vendor catalog: %w", err)
	}

	if err := deps.initApprovals(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize approvals store: %w", err)
	}

	deps.initServices(cfg)

	if err := deps.initIntent(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize intent extraction: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("rules_driver", cfg.Rules.Driver),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.String("approvals_store", cfg.Approvals.Store))
	return deps, nil
}

// initRuleStore opens the rule document store and wraps it in the rule repository
func (d *Dependencies) initRuleStore(ctx context.Context, cfg *config.Config) error {
	var store repositories.RuleDocumentStore

	switch cfg.Rules.Driver {
	case config.RulesDriverSQLite:
		s, err := document.NewSQLiteStore(cfg.Rules.Path, d.Logger)
		if err != nil {
			return err
		}
		d.SQLite = s
		store = s
	default:
		s, err := document.NewFileStore(cfg.Rules.Path, d.Logger)
		if err != nil {
			return err
		}
		store = s
	}

	if cfg.Rules.Init {
		if err := store.Init(ctx); err != nil {
			return err
		}
	}

	d.Repos.Documents = store
	d.Repos.Rules = document.NewRuleRepository(store, d.Logger)

	d.Logger.Info("rule store initialized",
		zap.String("driver", cfg.Rules.Driver),
		zap.String("path", cfg.Rules.Path))
	return nil
}

// initCatalog sets up the vendor catalog source
func (d *Dependencies) initCatalog(ctx context.Context, cfg *config.Config) error {
	switch cfg.Catalog.Source {
	case config.CatalogSourceS3:
		c, err := catalog.NewS3Catalog(ctx, cfg.Catalog.S3)
		if err != nil {
			return err
		}
		d.Repos.Catalog = c
		d.Logger.Info("vendor catalog initialized",
			zap.String("source", "s3"),
			zap.String("bucket", cfg.Catalog.S3.Bucket),
			zap.String("key", cfg.Catalog.S3.Key))
	default:
		c, err := catalog.NewFileCatalog(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		d.Repos.Catalog = c
		d.Logger.Info("vendor catalog initialized",
			zap.String("source", "file"),
			zap.String("path", cfg.Catalog.Path))
	}
	return nil
}

// initApprovals sets up the store holding orders awaiting review
func (d *Dependencies) initApprovals(ctx context.Context, cfg *config.Config) error {
	switch cfg.Approvals.Store {
	case config.ApprovalsStorePostgres:
		factory, err := postgres.NewRepositoryFactory(cfg.Database, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		if err := factory.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		d.Repos.Approvals = factory.NewApprovalRepository()

	case config.ApprovalsStoreRedis:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		d.Redis = client
		d.Repos.Approvals = redis.NewApprovalRepository(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL, d.Logger)

	default:
		d.Repos.Approvals = memory.NewApprovalRepository(d.Logger)
	}

	d.Logger.Info("approvals store initialized", zap.String("store", cfg.Approvals.Store))
	return nil
}

// initServices wires the deterministic core
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Evaluator = vendors.NewEvaluator(d.Repos.Catalog, d.Metrics, d.Logger)
	d.Gate = approval.NewGate(cfg.CurrencySymbol)
	d.Approvals = approval.NewService(d.Repos.Approvals, d.Metrics, d.Logger)
	d.Procurement = procurement.NewService(d.Repos.Rules, d.Evaluator, d.Gate, d.Approvals, d.Metrics, d.Logger)
}

// initIntent wires the language model collaborator when one is configured
func (d *Dependencies) initIntent(cfg *config.Config) error {
	if cfg.Intent.APIKey == "" {
		d.Logger.Warn("no language model configured, /api/v1/messages disabled")
		return nil
	}

	var provider providers.ChatProvider
	switch cfg.Intent.Provider {
	case "openai":
		provider = openai.NewOpenAIAdapter(providers.ProviderConfig{
			APIKey:  cfg.Intent.APIKey,
			BaseURL: cfg.Intent.BaseURL,
			Timeout: cfg.Intent.Timeout,
		})
	default:
		return fmt.Errorf("unsupported language model provider: %s", cfg.Intent.Provider)
	}

	extractor := intent.NewLLMExtractor(provider, cfg.Intent.Model, d.Logger)
	d.Dispatcher = intent.NewDispatcher(extractor, d.Procurement, cfg.Intent.Timeout, d.Logger)

	d.Logger.Info("intent extraction initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.Intent.Model))
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		// Reject-all validator so approval resolution returns 401
		d.Logger.Warn("AUTH_JWT_SECRET not set, approval resolution disabled")
	}
	validator := auth.NewValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.SQLite != nil {
		if err := d.SQLite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sqlite: %w", err))
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
