// Package app arma el grafo de dependencias compartido por los binarios.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"multiauth/internal/challenge"
	"multiauth/internal/config"
	"multiauth/internal/db"
	"multiauth/internal/directory"
	"multiauth/internal/handshake"
	"multiauth/internal/identity"
	"multiauth/internal/oauth"
	"multiauth/internal/obs"
	"multiauth/internal/phone"
	"multiauth/internal/service"
)

// Hooks avisan a la interfaz de que hay una interaccion del usuario pendiente.
type Hooks struct {
	Challenge handshake.LaunchFunc
	OAuth     handshake.LaunchFunc
}

type App struct {
	Auth       *service.AuthService
	Tickets    *service.TicketService
	Challenges *challenge.BrokerPresenter
	Browser    *oauth.BrokerBrowser
	Metrics    *obs.Metrics
	Registry   *prometheus.Registry

	closers []func()
}

// Close libera las conexiones abiertas en orden inverso.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, hooks Hooks) (*App, error) {
	a := &App{Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = obs.NewMetrics(a.Registry)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client, err := db.NewRedis(ctx, cfg)
		if err != nil {
			if cfg.DirectoryBackend == config.DirectoryRedis {
				return nil, err
			}
			logger.Warn("redis unavailable, using in-memory phone sessions", zap.Error(err))
		} else {
			redisClient = client
			a.closers = append(a.closers, func() { _ = client.Close() })
		}
	}

	store, err := a.directoryStore(ctx, cfg, redisClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	var sessions phone.SessionStore = phone.NewMemoryStore()
	if redisClient != nil {
		sessions = phone.NewRedisStore(redisClient, cfg.PhoneSessionTTL)
	}

	backend := identity.NewClient(logger, cfg.FirebaseAPIKey, cfg.IdentityBaseURL, cfg.SecureTokenBaseURL, nil)
	recaptcha := challenge.NewVerifier(logger, cfg.RecaptchaSecretKey, cfg.RecaptchaVerifyURL, nil)

	a.Challenges = challenge.NewBrokerPresenter(hooks.Challenge)
	gate := challenge.NewGate(logger, a.Challenges, recaptcha, challenge.GateConfig{
		AuthDomain:     cfg.FirebaseAuthDomain,
		CallbackScheme: cfg.CallbackScheme,
		TimeoutMs:      cfg.ChallengeTimeoutMs,
	})
	a.Browser = oauth.NewBrokerBrowser(hooks.OAuth)

	providers := oauth.NewRegistry(oauth.Config{
		GoogleClientID:      cfg.GoogleClientID,
		GoogleRedirectURI:   cfg.GoogleRedirectURI,
		FacebookEnabled:     cfg.FacebookEnabled,
		FacebookAppID:       cfg.FacebookAppID,
		FacebookRedirectURI: cfg.FacebookRedirectURI,
	})
	if !cfg.FacebookEnabled {
		logger.Info("facebook login disabled by configuration")
	}

	a.Auth = service.NewAuthService(logger, service.AuthDeps{
		Backend:   backend,
		Directory: directory.NewAdapter(logger, store),
		Phone:     phone.NewVerifier(logger, backend, gate, sessions),
		Recaptcha: recaptcha,
		Providers: providers,
		Browser:   a.Browser,
		Metrics:   a.Metrics,
	}, service.AuthConfig{
		Platform:       cfg.Platform,
		CallbackScheme: cfg.CallbackScheme,
	})

	if cfg.TicketSecret == "" {
		logger.Warn("ticket secret not configured, phone endpoints will reject requests")
	}
	a.Tickets = service.NewTicketService(cfg.TicketSecret, cfg.TicketTTL())

	return a, nil
}

func (a *App) directoryStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (directory.Store, error) {
	switch cfg.DirectoryBackend {
	case config.DirectoryRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis directory selected but no redis client")
		}
		return directory.NewRedisStore(redisClient), nil
	case config.DirectoryPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		store := directory.NewPgStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("directory schema: %w", err)
		}
		return store, nil
	default:
		return directory.NewMemoryStore(), nil
	}
}
