package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/config"
	"github.com/DoSvEinTe/proyecto-flota/internal/database"
	"github.com/DoSvEinTe/proyecto-flota/internal/services"
)

// reconcile-trips repairs the round trip links between trips: orphaned
// legs become single trips and one-sided links are made mutual.
func main() {
	var (
		dbURLFlag string
		dryRun    bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&dryRun, "dry-run", false, "report the repairs without writing them")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	linking := services.NewTripLinkingService(
		database.NewTxManager(db),
		database.NewTripRepository(db),
		database.NewPlaceRepository(db),
		database.NewBusRepository(db),
		database.NewDriverRepository(db),
		nil,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := linking.ReconcileLinks(ctx, dryRun)
	if err != nil {
		logger.Fatalf("Reconciliation failed: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"examined": report.Examined,
		"updated":  report.Updated,
		"dry_run":  report.DryRun,
	}).Info("Trip links reconciled")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report.Changes); err != nil {
		logger.Fatalf("Failed to print changes: %v", err)
	}
}
