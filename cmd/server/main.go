package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "modernc.org/sqlite"

	emailPkg "gymdesk/internal/adapters/email"
	web "gymdesk/internal/adapters/http"
	"gymdesk/internal/adapters/http/perf"
	"gymdesk/internal/adapters/storage"
	accountStore "gymdesk/internal/adapters/storage/account"
	auditStore "gymdesk/internal/adapters/storage/audit"
	intervalStore "gymdesk/internal/adapters/storage/interval"
	ledgerStore "gymdesk/internal/adapters/storage/ledger"
	memberStore "gymdesk/internal/adapters/storage/member"
	outboxStore "gymdesk/internal/adapters/storage/outbox"
	studioStore "gymdesk/internal/adapters/storage/studio"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/config"
	"gymdesk/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg := config.Load()

	// Initialize database with WAL mode, foreign keys, and busy timeout
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector)

	acctStore := accountStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:  acctStore,
		MemberStore:   memberStore.NewSQLiteStore(timedDB),
		IntervalStore: intervalStore.NewSQLiteStore(timedDB),
		LedgerStore:   ledgerStore.NewSQLiteStore(timedDB),
		StudioStore:   studioStore.NewSQLiteStore(timedDB),
		AuditStore:    auditStore.NewSQLiteStore(timedDB),
		OutboxStore:   outboxStore.NewSQLiteStore(timedDB),
	}

	ctx := context.Background()

	// Seed default admin account if no accounts exist
	adminPassword := cfg.AdminPassword
	if adminPassword == "" {
		if cfg.IsProduction() {
			log.Fatal("GYMDESK_ADMIN_PASSWORD is required in production")
		}
		adminPassword = "dev-admin-password"
	}
	seedDeps := orchestrators.CreateAccountDeps{AccountStore: acctStore}
	if err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, cfg.AdminEmail, adminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Seed default studios
	if err := orchestrators.ExecuteSeedStudios(ctx, orchestrators.SeedStudiosDeps{StudioStore: stores.StudioStore}); err != nil {
		log.Fatalf("failed to seed studios: %v", err)
	}

	// Seed synthetic demo data for development only
	if !cfg.IsProduction() {
		if err := orchestrators.ExecuteSeedSynthetic(ctx, orchestrators.SyntheticSeedDeps{
			MemberStore:   stores.MemberStore,
			IntervalStore: stores.IntervalStore,
			LedgerStore:   stores.LedgerStore,
			StudioStore:   stores.StudioStore,
		}); err != nil {
			log.Fatalf("failed to seed synthetic data: %v", err)
		}
		log.Println("Synthetic seed data loaded (dev mode)")
	}

	// Configure email sender
	var sender emailPkg.Sender
	if cfg.ResendAPIKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NoopSender{}
		if cfg.IsProduction() {
			log.Println("WARNING: GYMDESK_RESEND_API_KEY is not set — email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop — set GYMDESK_RESEND_API_KEY for real delivery)")
		}
	}
	web.SetEmailSender(sender)

	// Start outbox background worker for reminder delivery
	outboxStopCh := make(chan struct{})
	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeEmail: &orchestrators.EmailExecutor{Sender: sender},
	})
	orchestrators.StartBackgroundWorker(processor, time.Duration(cfg.OutboxIntervalSeconds)*time.Second, outboxStopCh)
	defer close(outboxStopCh)

	mux := web.NewMux(stores, collector)

	addr := ":" + cfg.Port
	log.Printf("GymDesk %s starting on %s (env=%s, schema=%d)", version, addr, cfg.Env, storage.LatestSchemaVersion())

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
