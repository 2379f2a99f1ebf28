package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/config"
	"github.com/nazm-contest-api/internal/database"
	"github.com/nazm-contest-api/internal/repository"
	"github.com/nazm-contest-api/internal/service"
	"github.com/nazm-contest-api/pkg/logger"
)

// seeder is the principal recorded in the logs for seeded verses
var seeder = auth.Principal{UserID: "seedverses", Name: "Verse seeder", Role: auth.RoleAdmin}

func main() {
	file := flag.String("file", "seeds/verses.toml", "verse file to import (.toml or .ndjson)")
	format := flag.String("format", "", "file format: toml|ndjson (defaults to the file extension)")
	migrate := flag.Bool("migrate", false, "run database migrations before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info", "pretty")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, "pretty")

	if *format == "" {
		switch strings.ToLower(filepath.Ext(*file)) {
		case ".ndjson", ".jsonl":
			*format = service.ImportFormatNDJSON
		default:
			*format = service.ImportFormatTOML
		}
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *migrate {
		if err := db.RunMigrations(cfg.Server.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to open verse file")
	}
	defer f.Close()

	// the catalog never touches blob storage
	services := service.NewServices(repository.New(db), nil, cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := services.Catalog.ImportVerses(ctx, seeder, f, *format)
	if err != nil {
		inserted := 0
		if result != nil {
			inserted = result.Inserted
		}
		log.Fatal().Err(err).Int("inserted", inserted).Msg("Verse import failed")
	}

	for _, e := range result.Errors {
		log.Warn().Int("line", e.Line).Str("field", e.Field).Msg(e.Message)
	}
	event := log.Info()
	if result.Failed > 0 {
		event = log.Warn()
	}
	event.
		Int("total", result.Total).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Msg("Seeding finished")
}
