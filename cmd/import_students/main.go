package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/MahirRamani/consumer-store/internal/config"
	"github.com/MahirRamani/consumer-store/internal/db"
	"github.com/MahirRamani/consumer-store/internal/domain"
	"github.com/MahirRamani/consumer-store/internal/excel"
	"github.com/MahirRamani/consumer-store/internal/logger"
	"github.com/MahirRamani/consumer-store/internal/repository"
)

type options struct {
	rosterPath string
	dryRun     bool
}

func main() {
	opts := parseFlags()
	log := logger.New(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	rows, err := readRosterRows(opts.rosterPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read roster file")
	}
	if opts.dryRun {
		for _, row := range rows {
			log.Info().
				Str("name", row.Name).
				Str("roll_number", row.RollNumber).
				Str("balance", row.Balance.String()).
				Msg("parsed roster row")
		}
		log.Info().Int("rows", len(rows)).Msg("dry run complete, nothing written")
		return
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database error")
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migration error")
	}

	repo := repository.New(pool)
	created, updated, err := repo.UpsertStudentRows(ctx, rows)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}

	log.Info().
		Int("rows", len(rows)).
		Int("created", created).
		Int("updated", updated).
		Msg("import complete")
}

func parseFlags() options {
	var opts options
	flag.StringVar(
		&opts.rosterPath,
		"roster",
		"roster.xlsx",
		"path to the student roster workbook",
	)
	flag.BoolVar(
		&opts.dryRun,
		"dry-run",
		false,
		"parse and report rows without writing to the database",
	)
	flag.Parse()
	return opts
}

func readRosterRows(path string) ([]domain.StudentImportRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	rows, err := excel.ParseStudentRoster(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}
