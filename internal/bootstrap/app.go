package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/config"
	httpapi "github.com/enjoysite/friendmap/internal/api/http"
	"github.com/enjoysite/friendmap/internal/auth"
	authmw "github.com/enjoysite/friendmap/internal/auth/middleware"
	authrepo "github.com/enjoysite/friendmap/internal/auth/repository"
	authservice "github.com/enjoysite/friendmap/internal/auth/service"
	"github.com/enjoysite/friendmap/internal/auth/session"
	"github.com/enjoysite/friendmap/internal/identity"
	"github.com/enjoysite/friendmap/internal/notify"
	presencerepo "github.com/enjoysite/friendmap/internal/presence/repository"
	presenceservice "github.com/enjoysite/friendmap/internal/presence/service"
)

const serviceName = "friendmap-api"

// App owns the server's router and the connections behind it.
type App struct {
	Router  *gin.Engine
	closers []func() error
}

// NewApp connects every configured backend and builds the router.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	gate, err := identity.NewAllowList(cfg.Presence.AllowedNames)
	if err != nil {
		return nil, fmt.Errorf("allow-list: %w", err)
	}

	issuer := session.NewIssuer(cfg.Session.Secret, cfg.Session.TTL)
	verifiers := []authmw.TokenVerifier{issuer}
	var checks []httpapi.Check

	var sender notify.Sender
	var store presencerepo.Store

	if cfg.FirebaseEnabled() {
		fb, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			return fail(err)
		}

		authClient, err := fb.Auth(ctx)
		if err != nil {
			return fail(fmt.Errorf("firebase auth: %w", err))
		}
		verifiers = append(verifiers, authmw.NewFirebaseVerifier(authClient))

		if cfg.Push.OnPublish {
			msg, err := fb.Messaging(ctx)
			if err != nil {
				return fail(fmt.Errorf("firebase messaging: %w", err))
			}
			sender = msg
		}

		if cfg.Presence.Backend == config.StoreFirestore {
			fs, err := fb.Firestore(ctx)
			if err != nil {
				return fail(fmt.Errorf("firestore: %w", err))
			}
			app.closers = append(app.closers, fs.Close)
			store = presencerepo.NewFirestoreStore(fs, cfg.App.ID, logger)
		}
		logger.Info("firebase initialized", zap.Bool("push", sender != nil))
	}

	if cfg.Presence.Backend == config.StoreRedis {
		rdb, err := OpenRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return fail(err)
		}
		app.closers = append(app.closers, rdb.Close)
		store = presencerepo.NewRedisStore(rdb, cfg.App.ID, logger)
		checks = append(checks, httpapi.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	if store == nil {
		return fail(fmt.Errorf("store backend %q is not available", cfg.Presence.Backend))
	}

	var directory authservice.Directory
	db, err := OpenDirectoryDB(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if db != nil {
		app.closers = append(app.closers, db.Close)
		members := authrepo.NewMemberRepository(db)
		if err := members.EnsureSchema(ctx); err != nil {
			return fail(fmt.Errorf("member schema: %w", err))
		}
		directory = members
		checks = append(checks, httpapi.Check{Name: "database", Ping: db.PingContext})
	}

	var notifier notify.Notifier = notify.Noop{}
	var announcer presenceservice.Announcer
	if sender != nil {
		fcm := notify.NewFCMNotifier(sender, cfg.Push.Topic, logger)
		notifier = fcm
		announcer = fcm
	}

	sessions := authservice.NewSessionService(gate, issuer, directory, logger)
	presence := presenceservice.NewPresenceService(store, announcer, cfg.Presence.PublishPerMinute, logger)

	app.Router = BuildRouter(RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
		Sessions:       sessions,
		Presence:       presence,
		Notifier:       notifier,
		Verifiers:      verifiers,
		Checks:         checks,
	})

	logger.Info("application wired",
		zap.String("store", cfg.Presence.Backend),
		zap.Bool("directory", directory != nil),
		zap.Int("allowed_names", gate.Len()),
	)
	return app, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
