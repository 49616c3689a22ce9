package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kirosamy12/otrade-backend/internal/config"
	"github.com/kirosamy12/otrade-backend/internal/infra/expresspay"
	"github.com/kirosamy12/otrade-backend/internal/infra/httpclient"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
	redrepo "github.com/kirosamy12/otrade-backend/internal/repo/redis"
	authsvc "github.com/kirosamy12/otrade-backend/internal/services/auth"
	contentsvc "github.com/kirosamy12/otrade-backend/internal/services/content"
	paymentssvc "github.com/kirosamy12/otrade-backend/internal/services/payments"
	"github.com/kirosamy12/otrade-backend/internal/services/permissions"
	planssvc "github.com/kirosamy12/otrade-backend/internal/services/plans"
	ratesvc "github.com/kirosamy12/otrade-backend/internal/services/rate"
	userssvc "github.com/kirosamy12/otrade-backend/internal/services/users"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	payments   *pgrepo.PaymentRepo
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	planCacheRepo := redrepo.NewPlanCacheRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	adminRepo := pgrepo.NewAdminRepo(pool)
	userRepo := pgrepo.NewUserRepo(pool)
	planRepo := pgrepo.NewPlanRepo(pool)
	paymentRepo := pgrepo.NewPaymentRepo(pool)
	contentRepo := pgrepo.NewContentRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, userRepo, adminRepo, cfg.Auth.RefreshTTL)
	permissionsService := permissions.NewService(adminRepo)
	plansService := planssvc.NewService(planRepo, planCacheRepo, cfg.Billing.PlanCacheTTL)
	usersService := userssvc.NewService(userRepo, plansService)
	contentService := contentsvc.NewService(contentRepo, plansService)

	processor := expresspay.NewClient(expresspay.Config{
		BaseURL:    cfg.ExpressPay.BaseURL,
		MerchantID: cfg.ExpressPay.MerchantID,
		APIKey:     cfg.ExpressPay.APIKey,
	}, httpclient.New(cfg.ExpressPay.Timeout))

	paymentsService := paymentssvc.NewService(paymentssvc.Dependencies{
		Pool:         pool,
		Payments:     paymentRepo,
		Users:        userRepo,
		Entitlements: userRepo,
		Plans:        plansService,
		Processor:    processor,
		AcceptedTags: cfg.ExpressPay.AcceptedTags,
		Currency:     cfg.Billing.DefaultCurrency,
	})

	loginLimiter := ratesvc.NewLimiter(rateRepo, cfg.Auth.LoginPerMinute)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AuthService:        authService,
		PermissionsService: permissionsService,
		PlansService:       plansService,
		ContentService:     contentService,
		UsersService:       usersService,
		PaymentsService:    paymentsService,
		LoginLimiter:       loginLimiter,
		Logger:             log,
		Config:             cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		payments:   paymentRepo,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// PaymentRepo exposes the payment store for the cleanup job wired in cmd/api.
func (a *App) PaymentRepo() *pgrepo.PaymentRepo {
	return a.payments
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
