package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/paras-lehana/dns-chain/internal/audit"
	"github.com/paras-lehana/dns-chain/internal/classifier"
	"github.com/paras-lehana/dns-chain/internal/dns"
	httpapi "github.com/paras-lehana/dns-chain/internal/http"
	"github.com/paras-lehana/dns-chain/internal/ledger"
	"github.com/paras-lehana/dns-chain/internal/platform/config"
	"github.com/paras-lehana/dns-chain/internal/platform/httpserver"
	"github.com/paras-lehana/dns-chain/internal/platform/logger"
	platformredis "github.com/paras-lehana/dns-chain/internal/platform/redis"
	"github.com/paras-lehana/dns-chain/internal/ratelimit"
	"github.com/paras-lehana/dns-chain/internal/registration"
	reghandler "github.com/paras-lehana/dns-chain/internal/registration/handler"
	regmetrics "github.com/paras-lehana/dns-chain/internal/registration/metrics"
	"github.com/paras-lehana/dns-chain/internal/solana"
	"github.com/paras-lehana/dns-chain/internal/wallet"
)

// registerLimit bounds registrations per client IP per window.
const (
	registerLimit  = 10
	registerWindow = time.Minute
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// The signing identity is required to start: without it no registration
	// can ever be submitted.
	signer, err := wallet.Load(cfg.KeypairPath)
	if err != nil {
		log.Error("load wallet keypair", "path", cfg.KeypairPath, "error", err)
		os.Exit(1)
	}

	programID, err := solana.ParsePublicKey(cfg.ProgramID)
	if err != nil {
		log.Error("invalid program id", "program_id", cfg.ProgramID, "error", err)
		os.Exit(1)
	}

	ledgerClient := ledger.New(cfg.RPCURL,
		ledger.WithLogger(log),
		ledger.WithConfirmTimeout(config.ConfirmationTimeout),
	)
	classifierClient := classifier.New(cfg.ClassifierURL, classifier.WithLogger(log))

	auditStore, closeAudit := buildAuditStore(cfg, log)
	defer closeAudit()
	publisher := audit.NewPublisher(256, log)
	worker := audit.NewWorker(auditStore, publisher, log)

	service := registration.NewService(
		dns.NewDeriver(programID),
		ledgerClient,
		classifierClient,
		signer,
		registration.WithAuditPublisher(publisher),
		registration.WithMetrics(regmetrics.New()),
		registration.WithLogger(log),
	)

	limiter := buildLimiter(cfg, log)

	h := reghandler.New(service, log, cfg.ProgramID, ledgerClient, classifierClient)
	router := httpapi.NewRouter(h, log, limiter, cfg.StaticDir)

	srv := httpserver.New(cfg.Addr, router)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go func() {
		if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	log.Info("starting registration gateway",
		"addr", cfg.Addr,
		"rpc_url", cfg.RPCURL,
		"program_id", cfg.ProgramID,
		"authority", signer.PublicKey().String(),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	stopWorker()
}

func buildAuditStore(cfg config.Server, log *slog.Logger) (audit.Store, func()) {
	if cfg.AuditDBURL == "" {
		return audit.NewMemoryStore(), func() {}
	}
	store, err := audit.OpenPostgres(cfg.AuditDBURL)
	if err != nil {
		log.Warn("audit database unavailable, falling back to memory store", "error", err)
		return audit.NewMemoryStore(), func() {}
	}
	log.Info("audit events persisted to postgres")
	return store, func() { _ = store.Close() }
}

func buildLimiter(cfg config.Server, log *slog.Logger) func(http.Handler) http.Handler {
	memory := ratelimit.NewMemoryLimiter(registerLimit, registerWindow)

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, using in-memory rate limiting", "error", err)
	}
	var mw *ratelimit.Middleware
	if redisClient != nil {
		primary := ratelimit.NewRedisLimiter(redisClient.Client, registerLimit, registerWindow)
		mw = ratelimit.New(primary, memory, log)
	} else {
		mw = ratelimit.New(memory, nil, log)
	}
	return mw.Limit
}
