// Package app wires the coupond server runtime: config, logging, stores,
// and the HTTP surface.
//
// It is intentionally small and deterministic to keep CI gates strict and behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"coupond/cmd/internal/allocation"
	"coupond/cmd/internal/coupon"
	"coupond/cmd/internal/credential"
	"coupond/cmd/internal/document"
	"coupond/cmd/internal/eligibility"
	"coupond/cmd/internal/eventix"

	"github.com/jackc/pgx/v5/pgxpool"
)

// credentialDocStore and credentialVendor name the two vendor identities
// sharing the credential store.
const (
	credentialDocStore = "docstore"
	credentialVendor   = "eventix"
)

// App is the coupond server runtime: it owns the HTTP server wiring and
// the issuance dependencies behind it.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	coupons *coupon.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	ctx := context.Background()

	var (
		dbPool    *pgxpool.Pool
		dbEnabled bool
	)
	if cfg.DatabaseURL != "" {
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dbPool = pool
		dbEnabled = true
		log.Info("db.enabled.postgres_store")
	} else {
		log.Info("db.disabled.inmemory_store")
	}

	credStore, eligStore, err := newStores(cfg, dbPool, dbEnabled)
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	gate, err := eligibility.NewGate(eligStore)
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	docStore, err := newDocumentStore(ctx, cfg, credStore, log)
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	engine, err := allocation.NewEngine(docStore, cfg.DocumentPath,
		allocation.WithMaxAttempts(cfg.AllocationMaxAttempts),
		allocation.WithLogger(log),
	)
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	vendorTokens, err := credential.NewManager(credential.Config{
		TokenURL:     cfg.VendorTokenURL,
		ClientID:     cfg.VendorClientID,
		ClientSecret: cfg.VendorClientSecret,
	}, credStore, credentialVendor, credential.WithLogger(log))
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	vendor, err := eventix.NewClient(eventix.Config{
		BaseURL:   cfg.VendorAPIBase,
		CompanyID: cfg.VendorCompanyID,
	})
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	coupons, err := coupon.NewHandler(log, coupon.Config{
		MaxBodyBytes:  cfg.MaxBodyBytes,
		AllowedOrigin: cfg.AllowedOrigin,
	}, gate, engine, vendorTokens, vendor)
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		coupons:   coupons,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.coupons)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	closePool(a.dbPool)

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

// newStores decides between Postgres-backed persistence and in-memory dev stores.
func newStores(cfg Config, pool *pgxpool.Pool, dbEnabled bool) (credential.Store, eligibility.Store, error) {
	if !dbEnabled {
		return credential.NewMemoryStore(), eligibility.NewMemoryStore(), nil
	}

	credStore, err := credential.NewPostgresStore(pool, credential.WithSchema(cfg.DBSchema))
	if err != nil {
		return nil, nil, err
	}
	eligStore, err := eligibility.NewPostgresStore(pool, eligibility.WithSchema(cfg.DBSchema))
	if err != nil {
		return nil, nil, err
	}
	return credStore, eligStore, nil
}

// newDocumentStore picks the remote content API when configured, or an
// in-memory store (optionally seeded from a local file) for dev setups.
func newDocumentStore(ctx context.Context, cfg Config, credStore credential.Store, log Logger) (document.Store, error) {
	if cfg.DocumentAPIBase == "" {
		mem := document.NewMemoryStore()
		if cfg.DocumentSeedFile != "" {
			content, err := os.ReadFile(cfg.DocumentSeedFile)
			if err != nil {
				return nil, err
			}
			if _, err := mem.Put(ctx, cfg.DocumentPath, content, document.Overwrite()); err != nil {
				return nil, err
			}
			log.Info("document.seeded", "path", cfg.DocumentPath, "file", cfg.DocumentSeedFile)
		}
		log.Info("document.store.memory")
		return mem, nil
	}

	var tokens document.TokenProvider
	if cfg.DocumentAccessToken != "" {
		tokens = document.StaticToken(cfg.DocumentAccessToken)
	} else {
		mgr, err := credential.NewManager(credential.Config{
			TokenURL:     cfg.DocumentTokenURL,
			ClientID:     cfg.DocumentClientID,
			ClientSecret: cfg.DocumentClientSecret,
			Encoding:     credential.EncodingForm,
		}, credStore, credentialDocStore, credential.WithLogger(log))
		if err != nil {
			return nil, err
		}
		tokens = mgr
	}

	log.Info("document.store.http", "base", cfg.DocumentAPIBase)
	return document.NewHTTPStore(cfg.DocumentAPIBase, tokens)
}
