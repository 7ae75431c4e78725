package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"git.sr.ht/~jakintosh/ssobridge/internal/api"
	"git.sr.ht/~jakintosh/ssobridge/internal/config"
	"git.sr.ht/~jakintosh/ssobridge/internal/database"
	"git.sr.ht/~jakintosh/ssobridge/internal/metrics"
	"git.sr.ht/~jakintosh/ssobridge/internal/nonce"
	"git.sr.ht/~jakintosh/ssobridge/internal/resources"
	"git.sr.ht/~jakintosh/ssobridge/internal/service"
	"git.sr.ht/~jakintosh/ssobridge/pkg/tokens"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := configureLogger(log, cfg); err != nil {
		log.Fatalf("invalid log config: %v", err)
	}

	if err := run(cfg, log); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// storage
	db, err := database.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// credentials
	signingKey, err := loadSigningKey(cfg.Session.SigningKeyPath, log)
	if err != nil {
		return err
	}
	issuer, validator := tokens.InitServer(signingKey, cfg.Session.IssuerDomain)

	nonces, err := newNonceStore(cfg.Nonce, log)
	if err != nil {
		return err
	}
	nonces.Start()
	defer nonces.Stop()

	svc := service.New(
		db.IdentityStore(),
		db.RoleStore(),
		db.SessionStore(),
		nonces,
		issuer,
		validator,
		service.Options{
			Secret:          cfg.SSO.Secret,
			CPURL:           cfg.SSO.CPURL,
			ProjectPublicID: cfg.SSO.ProjectPublicID,
			SuperAdminRole:  cfg.Admin.SuperAdminRole,
			AdminFirstName:  cfg.Admin.FirstName,
			AdminLastName:   cfg.Admin.LastName,
			RefreshLifetime: cfg.Session.RefreshLifetime,
			AccessLifetime:  cfg.Session.AccessLifetime,
			TokenLifetime:   cfg.SSO.TokenLifetime,
			Clock:           clockwork.NewRealClock(),
		},
		service.PasswordModeProduction,
		log,
	)

	// first start
	if _, err := svc.SeedRoles(service.DefaultRoles(cfg.Admin.SuperAdminRole)); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}
	if _, err := svc.BootstrapAdmin(cfg.Admin.Email); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if !cfg.SSOEnabled() {
		log.Warn("SSO_SECRET or SSO_CP_URL not set, SSO endpoints are disabled")
	}

	// expired session cleanup
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Session.SweepSchedule, func() {
		count, err := svc.SweepSessions()
		if err != nil {
			log.WithError(err).Error("failed to sweep expired sessions")
			return
		}
		if count > 0 {
			log.WithField("deleted", count).Info("swept expired sessions")
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Session.SweepSchedule, err)
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	// pages
	templates, err := resources.NewTemplates(cfg.Templates.Dir, log)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	if err := templates.Watch(); err != nil {
		log.WithError(err).Warn("template reload disabled")
	}
	defer templates.Close()

	// http
	m := metrics.New()
	a := api.New(svc, templates, m, api.Options{
		RefreshCookie: cfg.SSO.RefreshCookie,
		AdminPath:     cfg.SSO.AdminPath,
		StorageKeys:   cfg.SSO.StorageKeys,
		Production:    cfg.IsProduction(),
	}, log)
	router := a.Router()
	if cfg.Server.MetricsEnabled {
		router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Server.Port).WithField("env", cfg.Env).Info("ssobridge listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type nonceStore interface {
	service.NonceStore
	Start()
	Stop()
}

func newNonceStore(cfg config.NonceConfig, log *logrus.Logger) (nonceStore, error) {
	switch cfg.Mode {
	case config.NonceModeInterval:
		return nonce.NewInterval(cfg.ClearInterval, log), nil
	case config.NonceModeRedis:
		store, err := nonce.NewRedis(cfg.RedisURL, cfg.Retention, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nonce.NewMemory(cfg.Retention, log), nil
	}
}

func configureLogger(log *logrus.Logger, cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if cfg.Log.Format == "json" || cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
