package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/didjohn/internal/audit"
	authsvc "github.com/dropDatabas3/didjohn/internal/auth"
	"github.com/dropDatabas3/didjohn/internal/config"
	credsvc "github.com/dropDatabas3/didjohn/internal/credentials"
	didsvc "github.com/dropDatabas3/didjohn/internal/did"
	"github.com/dropDatabas3/didjohn/internal/did/registry"
	httpserver "github.com/dropDatabas3/didjohn/internal/http"
	authctrl "github.com/dropDatabas3/didjohn/internal/http/controllers/auth"
	credctrl "github.com/dropDatabas3/didjohn/internal/http/controllers/credentials"
	didctrl "github.com/dropDatabas3/didjohn/internal/http/controllers/did"
	healthctrl "github.com/dropDatabas3/didjohn/internal/http/controllers/health"
	"github.com/dropDatabas3/didjohn/internal/http/router"
	jwtx "github.com/dropDatabas3/didjohn/internal/jwt"
	"github.com/dropDatabas3/didjohn/internal/metrics"
	"github.com/dropDatabas3/didjohn/internal/observability/logger"
	"github.com/dropDatabas3/didjohn/internal/rate"
	"github.com/dropDatabas3/didjohn/internal/store/core"
	"github.com/dropDatabas3/didjohn/internal/store/janitor"
	"github.com/dropDatabas3/didjohn/internal/store/memory"
	pgstore "github.com/dropDatabas3/didjohn/internal/store/pg"
	"github.com/dropDatabas3/didjohn/internal/store/redischallenge"
	migrations "github.com/dropDatabas3/didjohn/migrations/postgres"
)

var version = "dev"

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()

	if fileExists(*flagEnvFile) {
		_ = godotenv.Load(*flagEnvFile)
	}

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	if cfgPath == "" && fileExists("configs/config.yaml") {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "didjohn",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.L().Fatal("service terminated", logger.Err(err))
	}
}

func run(cfg *config.Config) error {
	log := logger.L()
	ctx := context.Background()

	// ─── Store ───
	var (
		store   core.Repository
		cleanup func()
		sweep   janitor.Sweep
	)
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := pgstore.New(ctx, cfg.Storage.Postgres.DSN, pgstore.Config{
			MaxOpenConns:    cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(ctx, migrations.FS); err != nil {
			pg.Close()
			return fmt.Errorf("migrations: %w", err)
		}
		store, cleanup = pg, pg.Close
		sweep = pg.SweepExpiredChallenges
	default:
		mem := memory.New(cfg.ChallengeTTL())
		store, cleanup = mem, mem.Close
	}
	defer cleanup()

	// Challenges en redis (opcional, para correr varias instancias).
	var (
		challenges core.ChallengeStore
		limiter    rate.Limiter
	)
	if cfg.Storage.Redis.Addr != "" {
		rc := redischallenge.New(cfg.Storage.Redis.Addr, cfg.Storage.Redis.DB, cfg.Storage.Redis.Prefix)
		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		challenges = rc
		if cfg.Auth.RateLimitMax > 0 {
			limiter = rate.NewRedisLimiter(rc.Client(), "didjohn:rl:", cfg.Auth.RateLimitMax, cfg.RateLimitWindow())
		}
		log.Info("challenge store: redis", zap.String("addr", cfg.Storage.Redis.Addr))
	} else if cfg.Auth.RateLimitMax > 0 {
		limiter = rate.NewMemoryLimiter(cfg.Auth.RateLimitMax, cfg.RateLimitWindow())
	}

	// ─── EWC registry ───
	eth, err := ethclient.Dial(cfg.EWC.RPCURL)
	if err != nil {
		return fmt.Errorf("ewc rpc: %w", err)
	}
	defer eth.Close()

	reg, err := registry.New(eth, cfg.EWC.RegistryAddress)
	if err != nil {
		return err
	}

	// ─── Issuer key ───
	issuerKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.EWC.IssuerPrivateKey, "0x"))
	if err != nil {
		return fmt.Errorf("issuer key: %w", err)
	}

	// ─── Services ───
	audits := audit.NewService(store)
	issuer := jwtx.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.AccessTTL())

	dids := didsvc.NewService(didsvc.Deps{
		Store:    store,
		Audit:    audits,
		Registry: reg,
	})
	auth := authsvc.NewService(authsvc.Deps{
		Store:        store,
		Challenges:   challenges,
		Audit:        audits,
		Issuer:       issuer,
		Registry:     dids,
		ChallengeTTL: cfg.ChallengeTTL(),
		ServiceName:  cfg.Auth.ServiceName,
	})
	creds := credsvc.NewService(credsvc.Deps{
		Store:     store,
		Audit:     audits,
		Registry:  dids,
		IssuerKey: issuerKey,
		Validity:  cfg.CredentialValidity(),
	})
	log.Info("credential issuer ready", logger.DID(creds.IssuerDID()))

	// ─── Metrics ───
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler, err = metrics.Register(nil)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	// ─── HTTP ───
	handler := router.New(router.Deps{
		Auth:           authctrl.NewController(auth),
		Credentials:    credctrl.NewController(creds),
		DID:            didctrl.NewController(dids, audits),
		Health: healthctrl.NewController(store, version).WithChainCheck(func(ctx context.Context) error {
			_, err := eth.ChainID(ctx)
			return err
		}),
		TokenParser:    issuer,
		Identity:       auth,
		MetricsHandler: metricsHandler,
		RateLimiter:    limiter,
	})
	srv := httpserver.NewServer(cfg.Server.Addr, handler)

	// ─── Run + graceful shutdown ───
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return httpserver.Shutdown(srv, 10*time.Second)
	})
	// Postgres no evicta challenges vencidos solo; redis y memory sí (TTL).
	if sweep != nil && challenges == nil {
		g.Go(func() error { return janitor.Run(gctx, time.Minute, sweep) })
	}

	return g.Wait()
}
