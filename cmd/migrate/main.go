package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/DoSvEinTe/proyecto-flota/internal/config"
	"github.com/DoSvEinTe/proyecto-flota/internal/database"
)

const usage = `Usage: migrate [-database-url URL] <command> [version]

Commands:
  up            apply all pending migrations
  up-to N       apply migrations up to version N
  down          roll back the most recent migration
  down-to N     roll back to version N
  status        print the state of every migration
  version       print the current schema version`

func main() {
	var dbURLFlag string
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	provider, err := database.NewMigrationProvider(db.SQL())
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		for _, r := range results {
			fmt.Printf("OK   %s (%s)\n", r.Source.Path, r.Duration)
		}
		if len(results) == 0 {
			fmt.Println("no pending migrations")
		}
	case "up-to", "down-to":
		version, err := versionArg()
		if err != nil {
			log.Fatal(err)
		}
		if cmd == "up-to" {
			_, err = provider.UpTo(ctx, version)
		} else {
			_, err = provider.DownTo(ctx, version)
		}
		if err != nil {
			log.Fatalf("migrate %s %d: %v", cmd, version, err)
		}
		fmt.Printf("schema at version %d\n", version)
	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		fmt.Printf("rolled back %s\n", result.Source.Path)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			log.Fatalf("migrate status: %v", err)
		}
		for _, s := range statuses {
			applied := "pending"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-8d %-40s %s\n", s.Source.Version, s.Source.Path, applied)
		}
	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			log.Fatalf("migrate version: %v", err)
		}
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

func versionArg() (int64, error) {
	if flag.NArg() < 2 {
		return 0, fmt.Errorf("%s needs a target version", flag.Arg(0))
	}
	version, err := strconv.ParseInt(flag.Arg(1), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
	}
	return version, nil
}
