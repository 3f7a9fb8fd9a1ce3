package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/config"
	"github.com/DoSvEinTe/proyecto-flota/internal/database"
	"github.com/DoSvEinTe/proyecto-flota/internal/services"
)

// sync-trip-status marks trips whose cost record is completed as completed
func main() {
	var dbURLFlag string
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
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

	status := services.NewTripStatusService(database.NewTxManager(db), database.NewTripRepository(db), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ids, err := status.CompleteCostedTrips(ctx)
	if err != nil {
		logger.Fatalf("Status sync failed: %v", err)
	}

	logger.WithField("updated", len(ids)).Info("Trip statuses synchronized")
	for _, id := range ids {
		fmt.Println(id)
	}
}
