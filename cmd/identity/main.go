// @title                       Identity Service API
// @version                     1.0
// @description                 Account registration, login by email or tax id, and JWT issuance.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/fx"

	_ "github.com/99minutos/identity-service/docs"
	"github.com/99minutos/identity-service/internal/api"
	"github.com/99minutos/identity-service/internal/api/handler"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/core/service"
	mongostore "github.com/99minutos/identity-service/internal/infrastructure/db/mongo"
	pgstore "github.com/99minutos/identity-service/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/identity-service/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-service/internal/infrastructure/http/handlers"
	"github.com/99minutos/identity-service/internal/infrastructure/security"
	"github.com/99minutos/identity-service/internal/pkg/config"
	"github.com/99minutos/identity-service/pkg/logger"
)

const (
	serviceName     = "identity-service"
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	fx.New(
		injectInfra(),
		injectStore(),
		injectService(),
		injectHTTP(),
		fx.Invoke(
			seedAdmin,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		newConfig,
		newLogger,
		newThrottle,
	)
}

func injectStore() fx.Option {
	return fx.Provide(newStore)
}

func injectService() fx.Option {
	return fx.Provide(
		newHasher,
		newIssuer,
		newAuthService,
	)
}

func injectHTTP() fx.Option {
	return fx.Provide(
		newAuthHandler,
		newRouter,
	)
}

func newConfig() (*config.Config, error) {
	return config.LoadFrom(context.Background(), envconfig.OsLookuper())
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
	})
}

// roleSeeder is implemented by every credential store.
type roleSeeder interface {
	SeedRoles(ctx context.Context, names []string) error
}

type storeResult struct {
	fx.Out

	Store  ports.CredentialStore
	Health ports.StoreHealth
}

// newStore connects the configured driver, prepares its schema and seeds
// the role vocabulary.
func newStore(lc fx.Lifecycle, cfg *config.Config, base zerolog.Logger) (storeResult, error) {
	log := logger.Component(base, "store")
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	var (
		store interface {
			ports.CredentialStore
			ports.StoreHealth
			roleSeeder
		}
		prepare func(context.Context) error
	)

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := pgstore.Connect(ctx, pgstore.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return storeResult{}, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return pgstore.Close(db) }})
		pg := pgstore.NewCredentialStore(db)
		store, prepare = pg, pg.Migrate

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  serviceName,
		})
		if err != nil {
			return storeResult{}, err
		}
		lc.Append(fx.Hook{OnStop: client.Disconnect})
		mg := mongostore.NewCredentialStore(client, db)
		store, prepare = mg, mg.EnsureIndexes
	}

	if err := prepare(ctx); err != nil {
		return storeResult{}, fmt.Errorf("prepare %s store: %w", cfg.StoreDriver, err)
	}
	if err := store.SeedRoles(ctx, domain.BootstrapRoles); err != nil {
		return storeResult{}, err
	}
	log.Info().Str("driver", cfg.StoreDriver).Strs("roles", domain.BootstrapRoles).Msg("credential store ready")

	return storeResult{Store: store, Health: store}, nil
}

type throttleResult struct {
	fx.Out

	Throttle handler.LoginThrottle
	Pinger   handlers.Pinger
}

// newThrottle connects Redis for login throttling. Without Redis the
// service runs unthrottled.
func newThrottle(lc fx.Lifecycle, cfg *config.Config, base zerolog.Logger) throttleResult {
	log := logger.Component(base, "login_limiter")
	if cfg.Redis.Addr == "" {
		log.Info().Msg("login throttling disabled")
		return throttleResult{}
	}

	client, err := redisstore.Connect(context.Background(), redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, login throttling disabled")
		return throttleResult{}
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})

	limiter := redisstore.NewLoginLimiter(client, cfg.Login.MaxAttempts, cfg.Login.LockoutWindow)
	return throttleResult{Throttle: limiter, Pinger: limiter}
}

func newHasher(cfg *config.Config) ports.PasswordHasher {
	return security.NewBcryptHasher(cfg.BcryptCost)
}

func newIssuer(cfg *config.Config) *security.JWTIssuer {
	return security.NewJWTIssuer(security.JWTConfig{
		SigningKey: cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		AccessTTL:  cfg.JWT.AccessTTL,
	})
}

func newAuthService(store ports.CredentialStore, hasher ports.PasswordHasher, issuer *security.JWTIssuer, base zerolog.Logger) ports.AuthService {
	return service.NewAuthService(store, hasher, issuer, logger.Component(base, "auth_service"))
}

func newAuthHandler(svc ports.AuthService, throttle handler.LoginThrottle, base zerolog.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(svc, throttle, logger.Component(base, "auth_handler"))
}

func newRouter(log zerolog.Logger, auth *handler.AuthHandler, issuer *security.JWTIssuer, health ports.StoreHealth, pinger handlers.Pinger) *echo.Echo {
	return api.NewRouter(api.RouterDeps{
		Log:       log,
		Auth:      auth,
		Tokens:    issuer,
		Liveness:  handlers.NewHealthHandler(),
		Readiness: handlers.NewHealthDependenciesHandler(health, pinger),
	})
}

// seedAdmin registers the configured administrator once. An existing
// account with the same email is left untouched.
func seedAdmin(cfg *config.Config, svc ports.AuthService, base zerolog.Logger) error {
	if cfg.Seed.AdminEmail == "" {
		return nil
	}
	log := logger.Component(base, "seed")

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	res := svc.Register(ctx, ports.RegisterInput{
		Email:    cfg.Seed.AdminEmail,
		Password: cfg.Seed.AdminPassword,
		Name:     cfg.Seed.AdminName,
		Role:     domain.RoleAdmin,
	})
	if f := res.Failure(); f != nil {
		if f.Kind == domain.KindValidation && f.Message == domain.MsgEmailInUse {
			log.Info().Str("email", cfg.Seed.AdminEmail).Msg("admin account already present")
			return nil
		}
		return fmt.Errorf("seed admin: %w", f)
	}
	log.Info().Str("account_id", res.Value().ID).Msg("admin account created")
	return nil
}

func startServer(lc fx.Lifecycle, cfg *config.Config, e *echo.Echo, log zerolog.Logger) {
	addr := ":" + cfg.Port
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting HTTP server")
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("HTTP server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			log.Info().Msg("shutting down HTTP server")
			return e.Shutdown(shutdownCtx)
		},
	})
}
