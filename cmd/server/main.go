package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"landguard/internal/claim"
	"landguard/internal/config"
	"landguard/internal/persistence/auditlog"
	"landguard/internal/persistence/claimdb"
	"landguard/internal/rules"
	"landguard/internal/transport/httpadmin"
	"landguard/internal/transport/ws"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath(), "path to server.yaml (empty for built-in defaults)")
	flag.Parse()

	logger := log.New(os.Stdout, "[landguard] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	db, err := claimdb.Open(cfg.DBPath)
	if err != nil {
		logger.Fatalf("open claim db: %v", err)
	}
	defer db.Close()

	store := claim.NewStore(claim.StoreConfig{
		MinClaimWidth: cfg.MinClaimWidth,
		MinClaimArea:  cfg.MinClaimArea,
	})
	store.SetLogger(logger)

	recs, err := db.LoadAllClaims()
	if err != nil {
		logger.Fatalf("load claims: %v", err)
	}
	if err := store.LoadAll(recs); err != nil {
		logger.Fatalf("restore claims: %v", err)
	}
	logger.Printf("restored %d claims from %s", store.Count(), cfg.DBPath)

	// Persistence attaches after the restore so the initial load does not
	// echo every claim back into the database.
	store.SetPersistence(db)
	store.SetBalanceSource(claim.LedgerBalance{
		Store: store,
		Load: func(owner uuid.UUID) (claim.PlayerRecord, bool) {
			rec, ok, err := db.LoadPlayerRecord(owner)
			if err != nil {
				logger.Printf("claimdb: load player %s: %v", owner, err)
				return claim.PlayerRecord{}, false
			}
			return rec, ok
		},
		Default: claim.PlayerRecord{AccruedBlocks: cfg.DefaultAccruedBlocks},
	})

	pistonMode := claim.ParsePistonMode(cfg.PistonMode)
	engine := rules.New(rules.Config{
		PistonMode:             pistonMode,
		ClaimsEnabled:          cfg.ClaimsEnabledByWorld(),
		ClaimsEnabledDefault:   cfg.ClaimsEnabledDefault,
		BlockClaimExplosions:   cfg.BlockClaimExplosions,
		BlockSurfaceExplosions: cfg.BlockSurfaceExplosions,
		SeaLevel:               cfg.SeaLevel,
	}, store)
	engine.SetLogger(logger)

	if cfg.AuditEnabled {
		audit := auditlog.NewAuditLogger(cfg.DataDir)
		defer audit.Close()
		engine.SetAuditLogger(audit)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := engine.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	wsSrv := ws.NewServer(engine, pistonMode, cfg.Rate.MsgsPerSec, cfg.Rate.Burst, logger)
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var adminSrv *http.Server
	if cfg.AdminAddr != "" {
		adminSrv = &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           httpadmin.NewHandler(engine, cfg.CORSOrigins, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Printf("admin listening on %s", cfg.AdminAddr)
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("admin ListenAndServe: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
		if adminSrv != nil {
			_ = adminSrv.Shutdown(ctx2)
		}
	}()

	logger.Printf("listening on %s (piston_mode=%s)", cfg.ListenAddr, pistonMode)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("LANDGUARD_CONFIG"); p != "" {
		return p
	}
	return "./configs/server.yaml"
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
