package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/manara-erp/manara/internal/app"
	"github.com/manara-erp/manara/internal/auth"
	"github.com/manara-erp/manara/internal/store"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.StoreDriver == app.DriverMemory {
		log.Fatalf("seeding an in-memory store has no effect; set STORE_DRIVER")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer func() { _ = storage.Close() }()

	ledger := store.New(storage.Repository, logger)
	if err := ledger.Load(ctx); err != nil {
		log.Fatalf("load ledger: %v", err)
	}

	fmt.Println("→ Seeding users...")
	users, err := auth.SeedUsers(ctx, ledger, auth.SeedPasswords{Admin: cfg.SeedAdminPassword, Staff: cfg.SeedUserPassword})
	if err != nil {
		log.Fatalf("seed users: %v", err)
	}
	fmt.Printf("  %d user(s) added\n", users)

	fmt.Println("→ Seeding starter records...")
	records, err := app.SeedStarterData(ctx, ledger)
	if err != nil {
		log.Fatalf("seed starter data: %v", err)
	}
	fmt.Printf("  %d record(s) added\n", records)

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}
