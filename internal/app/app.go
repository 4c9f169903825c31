package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/config"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/handler"
	"github.com/homeopshq/homeops-api/internal/policy"
	"github.com/homeopshq/homeops-api/internal/repository"
	"github.com/homeopshq/homeops-api/internal/service"
	"github.com/homeopshq/homeops-api/internal/utils"
	"github.com/homeopshq/homeops-api/pkg/llm"
	"github.com/homeopshq/homeops-api/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra   Infrastructure
	config  *config.Config
	repos   *repository.Repositories
	router  *gin.Engine
	server  *http.Server
	sweeper *Sweeper
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.MfaTicketExpiry.Duration,
	)

	secretBox, err := utils.NewSecretBox(cfg.Crypto.EncryptionKey, cfg.Crypto.EncryptionKeyID, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret box: %w", err)
	}

	monthlyCap, err := decimal.NewFromString(cfg.Predict.MonthlyBudget)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICT_MONTHLY_BUDGET: %w", err)
	}

	blacklist := service.NewTokenBlacklistService(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	mfaAttempts := service.NewMfaAttempts(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	authService := service.NewAuthService(repos, repos, jwtManager, blacklist,
		cfg.JWT.RefreshTokenExpiry.Duration, cfg.Security.BCryptCost, logger)
	mfaService := service.NewMfaService(repos, authService, jwtManager, secretBox,
		mfaAttempts, blacklist, cfg.App.Name, cfg.Crypto.EnrollmentTTL.Duration, logger)
	oauthService := service.NewOAuthService(repos, repos, authService, infra.Redis(),
		cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURI,
		cfg.App.WebOrigin, nil, logger)
	invitationService := service.NewInvitationService(repos, repos,
		cfg.Invitation.TTL.Duration, cfg.Security.BCryptCost, logger)
	tenantService := service.NewTenantService(repos, logger)

	usageMeter := service.NewUsageMeter(repos.Usage, monthlyCap)
	chatClient := llm.NewClient(cfg.Predict.LLMBaseURL, cfg.Predict.LLMAPIKey)
	predictService := service.NewPredictService(usageMeter, chatClient, repos.Account, cfg.Predict.Model, logger)
	recipientResolver := service.NewRecipientResolver(repos)

	engine := policy.NewEngine(policy.NewTenantStore(repos))

	authHandler := handler.NewAuthHandler(authService, logger)
	mfaHandler := handler.NewMfaHandler(mfaService, logger)
	oauthHandler := handler.NewOAuthHandler(oauthService, logger)
	invitationHandler := handler.NewInvitationHandler(invitationService, engine, logger)
	userHandler := handler.NewUserHandler(tenantService, logger)
	accountHandler := handler.NewAccountHandler(tenantService, logger)
	propertyHandler := handler.NewPropertyHandler(tenantService, logger)
	broadcastHandler := handler.NewBroadcastHandler(recipientResolver, logger)
	predictHandler := handler.NewPredictHandler(predictService, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))
	router.Use(handler.Authenticate(authService))

	setupRoutes(router, cfg, logger, engine, rateLimiter, healthChecker, infra.MetricsHandler(), routeHandlers{
		auth:       authHandler,
		mfa:        mfaHandler,
		oauth:      oauthHandler,
		invitation: invitationHandler,
		user:       userHandler,
		account:    accountHandler,
		property:   propertyHandler,
		broadcast:  broadcastHandler,
		predict:    predictHandler,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:   infra,
		config:  cfg,
		repos:   repos,
		router:  router,
		server:  srv,
		sweeper: NewSweeper(repos, invitationService, cfg.Invitation.SweepInterval.Duration, logger),
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

type routeHandlers struct {
	auth       *handler.AuthHandler
	mfa        *handler.MfaHandler
	oauth      *handler.OAuthHandler
	invitation *handler.InvitationHandler
	user       *handler.UserHandler
	account    *handler.AccountHandler
	property   *handler.PropertyHandler
	broadcast  *handler.BroadcastHandler
	predict    *handler.PredictHandler
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	engine *policy.Engine,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
	h routeHandlers,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	limited := handler.RateLimited(rateLimiter, logger,
		cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.PathAndIPKey)

	authed := func(g policy.Guard) gin.HandlerFunc { return handler.Guarded(engine, logger, g) }

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", limited, h.auth.Register)
			auth.POST("/token", limited, h.auth.Login)
			auth.POST("/login", limited, h.auth.Login)
			auth.POST("/refresh", h.auth.Refresh)
			auth.POST("/logout", authed(policy.RequireAuthenticated()), h.auth.Logout)
			auth.POST("/logout-all", authed(policy.RequireAuthenticated()), h.auth.LogoutAll)
			auth.POST("/confirm", h.invitation.Confirm)
			auth.POST("/mfa/verify", limited, h.mfa.Verify)

			auth.GET("/google/begin", h.oauth.Begin)
			auth.GET("/google/callback", h.oauth.Callback)
			auth.POST("/google/exchange", h.oauth.Exchange)
		}

		mfa := api.Group("/mfa", authed(policy.RequireAuthenticated()))
		{
			mfa.POST("/setup", h.mfa.Setup)
			mfa.POST("/confirm", h.mfa.Confirm)
			mfa.POST("/disable", h.mfa.Disable)
			mfa.POST("/backup/regenerate", h.mfa.Regenerate)
			mfa.GET("/status", h.mfa.Status)
		}

		invitations := api.Group("/invitations")
		{
			// creation guards read the target from the body; the handler
			// runs the policy check itself
			invitations.POST("/account", authed(policy.RequireAuthenticated()), h.invitation.CreateAccount)
			invitations.POST("/property", authed(policy.RequireAuthenticated()), h.invitation.CreateProperty)
			invitations.GET("/validate", h.invitation.Validate)
			invitations.POST("/accept", h.invitation.Accept)
			invitations.POST("/:invitationId/decline", authed(policy.RequireAuthenticated()), h.invitation.Decline)
			invitations.POST("/:invitationId/revoke", authed(policy.RequireAuthenticated()), h.invitation.Revoke)
		}

		users := api.Group("/users")
		{
			users.GET("/me", authed(policy.RequireAuthenticated()), h.user.Me)
			users.GET("/:userId", authed(policy.RequireSharedAccountToViewUser("userId")), h.user.Get)
			users.PATCH("/:userId", authed(policy.RequireSelfByID("userId")), h.user.UpdateProfile)
			users.DELETE("/:userId", authed(policy.RequireRole(domain.RoleSuperAdmin)), h.user.Delete)
			users.GET("/:userId/accounts", authed(policy.RequireSelfByID("userId")), h.user.Accounts)
		}

		accounts := api.Group("/accounts")
		{
			accounts.GET("/:accountId", authed(policy.RequireAccountMembership("accountId")), h.account.Get)
			accounts.GET("/:accountId/members", authed(policy.RequireAccountMembership("accountId")), h.account.Members)
			accounts.DELETE("/:accountId/members/:userId", authed(policy.RequireAccountMembership("accountId")), h.account.RemoveMember)
		}

		properties := api.Group("/properties")
		{
			properties.GET("/:propertyId", authed(policy.RequirePropertyAccess("propertyId")), h.property.Get)
			properties.GET("/:propertyId/systems", authed(policy.RequirePropertyAccess("propertyId")), h.property.Systems)
		}

		broadcasts := api.Group("/broadcasts", authed(policy.RequireAuthenticated()))
		{
			broadcasts.POST("/recipients", h.broadcast.Recipients)
			broadcasts.POST("/estimate", h.broadcast.Estimate)
		}

		predict := api.Group("/predict", authed(policy.RequireAuthenticated()))
		{
			predict.GET("/usage", h.predict.Usage)
			predict.POST("/property-details", h.predict.PropertyDetails)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	if err := Bootstrap(ctx, a.repos, a.infra.Logger()); err != nil {
		return err
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.sweeper.Run(sweepCtx)

	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
