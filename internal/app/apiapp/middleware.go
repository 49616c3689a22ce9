package apiapp

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	authsvc "github.com/kirosamy12/otrade-backend/internal/services/auth"
	"github.com/kirosamy12/otrade-backend/internal/services/permissions"
	ratesvc "github.com/kirosamy12/otrade-backend/internal/services/rate"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

func ApplyMiddlewares(r chiRouter, log *zap.Logger) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(log))
}

func AuthMiddleware(authService *authsvc.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authService == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "AUTH_SERVICE_UNAVAILABLE",
					Message: "auth service is unavailable",
				})
				return
			}

			accessToken, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "missing bearer token",
				})
				return
			}

			claims, err := authService.ValidateAccessToken(r.Context(), accessToken)
			if err != nil {
				if log != nil {
					log.Debug("auth middleware validation failed", zap.Error(err))
				}
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "invalid access token",
				})
				return
			}

			ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{
				SubjectID: claims.SubjectID,
				SID:       claims.SID,
				Role:      claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the identity when a valid bearer token is
// present and lets the request through anonymously otherwise. Catalog routes
// use it so logged-out visitors still see the locked listing.
func OptionalAuthMiddleware(authService *authsvc.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authService == nil {
				next.ServeHTTP(w, r)
				return
			}

			accessToken, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authService.ValidateAccessToken(r.Context(), accessToken)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{
				SubjectID: claims.SubjectID,
				SID:       claims.SID,
				Role:      claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a management route on one module/action grant.
// Super admins pass unconditionally, regular users never do.
func RequirePermission(perms *permissions.Service, module string, action enums.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if perms == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "PERMISSIONS_SERVICE_UNAVAILABLE",
					Message: "permissions service is unavailable",
				})
				return
			}

			identity, ok := authsvc.IdentityFromContext(r.Context())
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "authentication required",
				})
				return
			}

			allowed, err := perms.CanActorPerform(r.Context(), identity.SubjectID, enums.Role(identity.Role), module, action)
			if err != nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "INTERNAL_ERROR",
					Message: "permission check failed",
				})
				return
			}
			if !allowed {
				httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
					Code:    "FORBIDDEN",
					Message: fmt.Sprintf("missing %s permission on %s", action, module),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireCategoryPermission is RequirePermission with the module taken from
// the category path segment, for the shared content management routes.
func RequireCategoryPermission(perms *permissions.Service, action enums.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			category, ok := enums.ParseContentCategory(chi.URLParam(r, "category"))
			if !ok {
				httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
					Code:    "NOT_FOUND",
					Message: "unknown content category",
				})
				return
			}
			RequirePermission(perms, string(category), action)(next).ServeHTTP(w, r)
		})
	}
}

func RequireSuperAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := authsvc.IdentityFromContext(r.Context())
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "authentication required",
				})
				return
			}
			if enums.Role(identity.Role) != enums.RoleSuperAdmin {
				httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
					Code:    "FORBIDDEN",
					Message: "super admin role required",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimitMiddleware throttles credential endpoints by client IP.
func LoginRateLimitMiddleware(limiter *ratesvc.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter, allowed, err := limiter.AllowLogin(r.Context(), clientIP(r))
			if err != nil {
				// Throttling is best effort; a broken limiter must not
				// lock everyone out.
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.APIError{
					Code:    "RATE_LIMITED",
					Message: "too many login attempts",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		host = "unknown"
	}
	return host
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("duration", time.Since(start)),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}
