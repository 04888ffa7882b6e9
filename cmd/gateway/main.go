package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/aretechltd/mospay/internal/auth"
	"github.com/aretechltd/mospay/internal/config"
	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
	"github.com/aretechltd/mospay/internal/core/service"
	"github.com/aretechltd/mospay/internal/infrastructure/persistence"
	"github.com/aretechltd/mospay/internal/infrastructure/persistence/memory"
	"github.com/aretechltd/mospay/internal/infrastructure/persistence/postgres"
	"github.com/aretechltd/mospay/internal/infrastructure/script"
	"github.com/aretechltd/mospay/internal/infrastructure/upstream"
	"github.com/aretechltd/mospay/internal/interfaces/rest/handlers"
	"github.com/aretechltd/mospay/internal/interfaces/rest/middleware"
	"github.com/aretechltd/mospay/internal/metrics"
	"github.com/aretechltd/mospay/internal/worker"
)

func main() {
	devMode := flag.Bool("dev", false, "run against the in-memory store with seeded demo data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting gateway service",
		"port", cfg.Server.Port,
		"env", cfg.Primary.Env,
		"log_level", cfg.Logger.Level,
	)
	if cfg.Primary.Env == "production" && cfg.Auth.JWTSecret == config.DevJWTSecret {
		logger.Warn("auth.jwt_secret is the development default; set MOSPAY_AUTH__JWT_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Script procedures run everywhere; the database-backed adapter joins
	// the registry only when a database is connected.
	adapters := ports.AdapterRegistry{
		domain.ProcedureKindScript: script.NewAdapter(logger),
	}

	var (
		clients  ports.ClientRepository
		bindings ports.BindingRepository
		ledger   ports.TransactionLedger
		audit    ports.AuditRepository
		pinger   handlers.Pinger
	)

	if *devMode {
		store := memory.NewStore()
		if err := seedDevStore(store, cfg); err != nil {
			logger.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		}
		clients, bindings, ledger, audit, pinger = store, store, store, store, store
		logger.Info("running with in-memory store",
			"app_id", "mos1000",
			"username", "demo",
			"password", "demo-password",
		)
	} else {
		db, err := persistence.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		clients = postgres.NewClientRepository(db.Pool)
		bindings = postgres.NewBindingRepository(db.Pool)
		ledger = postgres.NewTransactionLedger(db.Pool)
		audit = postgres.NewAuditRepository(db.Pool)
		adapters[domain.ProcedureKindPostgres] = postgres.NewAdapter(db.Pool)
		pinger = db
	}

	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	identity := service.NewIdentityService(clients, bindings, tokens, logger)
	dispatch := service.NewDispatchService(
		bindings,
		ledger,
		adapters,
		upstream.NewHTTPClient(cfg.Dispatch.UpstreamTimeout),
		service.DispatchTimeouts{
			Procedure: cfg.Dispatch.ProcedureTimeout,
			Upstream:  cfg.Dispatch.UpstreamTimeout,
			Normalize: cfg.Dispatch.NormalizeTimeout,
		},
		logger,
	)
	queries := service.NewClientQueryService(bindings, ledger)

	h := handlers.NewHandlers(identity, dispatch, queries, pinger, logger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSec, cfg.RateLimit.Burst, logger)
	}

	router := http.Handler(h.Router(audit, limiter))

	handler := middleware.Timeout(cfg.Server.WriteTimeout)(router)
	handler = metrics.InstrumentHandler(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	reaper := worker.NewReaper(ledger, cfg.Worker.Interval, cfg.Worker.StaleAge, cfg.Worker.BatchSize, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		reaper.Start(gctx)
		return nil
	})

	if limiter != nil {
		g.Go(func() error {
			limiter.CleanupLoop(gctx, cfg.RateLimit.CleanupInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}

// seedDevStore loads the demo catalog for -dev: the provider services, a
// demo client and a script binding that answers directly, so a dispatch
// completes without any provider container running.
func seedDevStore(store *memory.Store, cfg *config.Config) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	client := &domain.Client{
		AppID:           "mos1000",
		CompanyName:     "Demo Client",
		ContactPerson:   "Demo Contact",
		Email:           "demo@mospay.local",
		APIUsername:     "demo",
		APIPasswordHash: string(hash),
		IsActive:        true,
		CreatedAt:       time.Now(),
	}
	store.AddClient(client)

	services := []*domain.Service{
		{Name: "mtnmomorwa", DisplayName: "MTN MoMo Rwanda", Description: "MTN Mobile Money Rwanda", IsActive: true},
		{Name: "airtelmoney", DisplayName: "Airtel Money", Description: "Airtel Money", IsActive: true},
		{Name: "mpesa", DisplayName: "M-Pesa", Description: "Safaricom M-Pesa", IsActive: true},
	}
	for _, svc := range services {
		store.AddService(svc)
	}

	mtn := services[0]
	store.GrantService(client.ID, mtn.ID)

	binding := &domain.ServiceBinding{
		ClientID:    client.ID,
		ServiceID:   mtn.ID,
		AppID:       client.AppID,
		ServiceName: mtn.Name,
		Route:       "pay",
		EntityName:  "MOSPAY DEMO",
		Country:     "RWA",
		IsActive:    true,
	}
	store.AddBinding(binding)

	store.AddProcedure(&domain.ProcedureBinding{
		BindingID: binding.ID,
		Variant:   domain.VariantForward,
		Kind:      domain.ProcedureKindScript,
		Handle:    "mos1000_mtnmomorwa_pay",
		Source:    devForwardScript,
	})
	store.AddProcedure(&domain.ProcedureBinding{
		BindingID: binding.ID,
		Variant:   domain.VariantResponse,
		Kind:      domain.ProcedureKindScript,
		Handle:    "RESPONSE_mos1000_mtnmomorwa_pay",
		Source:    devResponseScript,
	})

	return nil
}

// devForwardScript answers OUTPUT directly, so demo payments settle
// without an upstream call.
const devForwardScript = `
function process(input) {
	return {
		status: "200",
		type: "object",
		message: "Demo payment accepted",
		version: "1.0.0",
		action: "OUTPUT",
		command: "pay",
		appName: "Demo Client",
		serviceurl: "N/A",
		servicepayload: [
			{i: 0, v: input.payload.f005},
			{i: 1, v: input.payload.f004},
			{i: 2, v: input.unique_id}
		]
	};
}
`

const devResponseScript = `
function process(input) {
	var ok = input.code === 200;
	return {
		status: ok ? "200" : "502",
		type: "object",
		message: ok ? "Demo payment completed" : "Demo provider declined",
		version: "1.0.0",
		action: ok ? "OUTPUT" : "ERROR",
		command: "pay",
		appName: "Demo Client",
		serviceurl: "N/A"
	};
}
`
