package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/DoSvEinTe/proyecto-flota/internal/config"
	"github.com/DoSvEinTe/proyecto-flota/internal/database"
)

// child tables first so the row counts printed afterwards read top-down
var fleetTables = []string{
	"cost_record_maintenance",
	"fuel_stops",
	"tolls",
	"cost_records",
	"maintenance",
	"trip_passengers",
	"trips",
	"vehicle_documents",
	"passengers",
	"drivers",
	"buses",
	"places",
}

func main() {
	var (
		dbURLFlag string
		confirm   bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&confirm, "yes", false, "confirm that every fleet table should be emptied")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}
	if !confirm {
		log.Fatal("refusing to clear data without -yes")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("Connected to database. Truncating fleet tables...")

	truncateSQL := "TRUNCATE TABLE "
	for i, t := range fleetTables {
		if i > 0 {
			truncateSQL += ", "
		}
		truncateSQL += t
	}
	truncateSQL += " RESTART IDENTITY CASCADE"

	if _, err := db.Exec(truncateSQL); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	fmt.Println("All fleet data cleared.")

	fmt.Println("Post-clear row counts:")
	for _, t := range fleetTables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
