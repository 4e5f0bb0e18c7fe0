package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/enjoysite/friendmap/internal/api/http"
	reqmw "github.com/enjoysite/friendmap/internal/api/http/middleware"
	authhttp "github.com/enjoysite/friendmap/internal/auth/http"
	authmw "github.com/enjoysite/friendmap/internal/auth/middleware"
	authservice "github.com/enjoysite/friendmap/internal/auth/service"
	"github.com/enjoysite/friendmap/internal/notify"
	presencehttp "github.com/enjoysite/friendmap/internal/presence/http"
	presenceservice "github.com/enjoysite/friendmap/internal/presence/service"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	Logger         *zap.Logger

	Sessions  *authservice.SessionService
	Presence  *presenceservice.PresenceService
	Notifier  notify.Notifier
	Verifiers []authmw.TokenVerifier
	Checks    []httpapi.Check
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	logger := dep.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := dep.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqmw.RequestIDMiddleware(logger))
	r.Use(cors.New(corsConfig(dep.AllowedOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Checks...)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	authHandler := authhttp.New(dep.Sessions, logger)
	authHandler.RegisterPublic(api)

	protected := api.Group("")
	protected.Use(authmw.RequireSession(logger, dep.Verifiers...))

	authHandler.Register(protected)
	presencehttp.New(dep.Presence, dep.Sessions, logger).Register(protected)
	notify.NewHandler(notifier, logger).Register(protected)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	cfg.AllowCredentials = true
	cfg.AllowOriginFunc = func(origin string) bool {
		_, ok := allowed[origin]
		return ok
	}
	return cfg
}
