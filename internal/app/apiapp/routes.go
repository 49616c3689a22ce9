package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kirosamy12/otrade-backend/internal/config"
	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	authsvc "github.com/kirosamy12/otrade-backend/internal/services/auth"
	contentsvc "github.com/kirosamy12/otrade-backend/internal/services/content"
	paymentssvc "github.com/kirosamy12/otrade-backend/internal/services/payments"
	"github.com/kirosamy12/otrade-backend/internal/services/permissions"
	planssvc "github.com/kirosamy12/otrade-backend/internal/services/plans"
	ratesvc "github.com/kirosamy12/otrade-backend/internal/services/rate"
	userssvc "github.com/kirosamy12/otrade-backend/internal/services/users"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService        *authsvc.Service
	PermissionsService *permissions.Service
	PlansService       *planssvc.Service
	ContentService     *contentsvc.Service
	UsersService       *userssvc.Service
	PaymentsService    *paymentssvc.Service
	LoginLimiter       *ratesvc.Limiter
	Logger             *zap.Logger
	Config             config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	plansHandler := handlers.NewPlansHandler(deps.PlansService)
	contentHandler := handlers.NewContentHandler(deps.ContentService, deps.UsersService)
	meHandler := handlers.NewMeHandler(deps.UsersService)
	paymentsHandler := handlers.NewPaymentsHandler(deps.PaymentsService, deps.Logger)
	adminContentHandler := handlers.NewAdminContentHandler(deps.ContentService)
	adminPlansHandler := handlers.NewAdminPlansHandler(deps.PlansService)
	adminAdminsHandler := handlers.NewAdminAdminsHandler(deps.PermissionsService)
	adminUsersHandler := handlers.NewAdminUsersHandler(deps.UsersService)
	adminPaymentsHandler := handlers.NewAdminPaymentsHandler(deps.PaymentsService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	optionalAuthMW := OptionalAuthMiddleware(deps.AuthService)
	loginRateMW := LoginRateLimitMiddleware(deps.LoginLimiter)
	superAdminMW := RequireSuperAdmin()

	r.Get("/healthz", healthHandler.Get)

	r.Route("/auth", func(r chi.Router) {
		r.With(loginRateMW).Post("/register", authHandler.Register)
		r.With(loginRateMW).Post("/login", authHandler.Login)
		r.With(loginRateMW).Post("/admin/login", authHandler.LoginAdmin)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
	})

	r.Get("/plans", plansHandler.List)
	r.Get("/plans/{id}", plansHandler.Get)

	r.With(optionalAuthMW).Get("/{category}", contentHandler.List)
	r.With(optionalAuthMW).Get("/{category}/{id}", contentHandler.Get)

	r.With(authMW).Get("/me/entitlements", meHandler.Entitlements)

	r.Route("/payments", func(r chi.Router) {
		r.With(authMW).Post("/init", paymentsHandler.Init)
		r.With(authMW).Post("/verify", paymentsHandler.Verify)
		r.Post("/callback", paymentsHandler.Callback)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authMW)

		perms := deps.PermissionsService
		r.With(RequirePermission(perms, "plans", enums.ActionView)).Get("/plans", adminPlansHandler.List)
		r.With(RequirePermission(perms, "plans", enums.ActionView)).Get("/plans/{id}", adminPlansHandler.Get)
		r.With(RequirePermission(perms, "plans", enums.ActionCreate)).Post("/plans", adminPlansHandler.Create)
		r.With(RequirePermission(perms, "plans", enums.ActionUpdate)).Put("/plans/{id}", adminPlansHandler.Update)
		r.With(RequirePermission(perms, "plans", enums.ActionDelete)).Delete("/plans/{id}", adminPlansHandler.Delete)

		r.Get("/permissions/catalog", adminAdminsHandler.Catalog)
		r.With(superAdminMW).Get("/admins", adminAdminsHandler.List)
		r.With(superAdminMW).Post("/admins", adminAdminsHandler.Create)
		r.With(superAdminMW).Put("/admins/{id}/permissions", adminAdminsHandler.UpdateGrants)

		r.With(RequirePermission(perms, "users", enums.ActionView)).Get("/users/{id}/entitlements", adminUsersHandler.Entitlements)
		r.With(RequirePermission(perms, "users", enums.ActionUpdate)).Post("/users/{id}/subscription", adminUsersHandler.AssignSubscription)

		r.With(RequirePermission(perms, "payments", enums.ActionView)).Get("/payments", adminPaymentsHandler.ListRecent)

		r.With(RequireCategoryPermission(perms, enums.ActionView)).Get("/{category}", adminContentHandler.List)
		r.With(RequireCategoryPermission(perms, enums.ActionView)).Get("/{category}/{id}", adminContentHandler.Get)
		r.With(RequireCategoryPermission(perms, enums.ActionCreate)).Post("/{category}", adminContentHandler.Create)
		r.With(RequireCategoryPermission(perms, enums.ActionUpdate)).Put("/{category}/{id}", adminContentHandler.Update)
		r.With(RequireCategoryPermission(perms, enums.ActionDelete)).Delete("/{category}/{id}", adminContentHandler.Delete)
	})
}
