package main

import (
	"context"
	"log"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/incident-hub/internal/config"
	"github.com/fdg312/incident-hub/internal/dbmigrate"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: go run ./cmd/migrate [up|status|down|version]")
	}

	command := os.Args[1]
	if err := dbmigrate.ValidateCommand(command); err != nil {
		log.Fatal(err)
	}

	cfg := config.Load()
	sel, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	if sel.Warning != "" {
		log.Printf("WARN migrate: %s", sel.Warning)
	}
	log.Printf("migrate: command=%s using=%s", command, sel.Source)

	if err := dbmigrate.Run(context.Background(), command, sel.URL, dbmigrate.DefaultMigrationsDir); err != nil {
		log.Fatal(err)
	}

	log.Printf("migrate: %s completed successfully", command)
}
