package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/config"
	"github.com/campussafety/safety-dashboard/internal/database"
	"github.com/campussafety/safety-dashboard/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.DBDriver != "postgres" {
		log.Fatal("the migrate command only targets postgres; other drivers are migrated by the server on start", zap.String("driver", cfg.DBDriver))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, database.PostgresDSN(cfg))
	if err != nil {
		log.Fatal("failed to open pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}
	log.Info("connected to database", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	schema, err := database.SchemaSQL()
	if err != nil {
		log.Fatal("failed to read schema", zap.Error(err))
	}

	log.Info("applying schema", zap.String("file", database.SchemaFile))
	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatal("failed to apply schema", zap.Error(err))
	}

	rows, err := pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_name IN ('admin_settings', 'analytics_snapshots', 'job_runs')
		ORDER BY table_name
	`)
	if err != nil {
		log.Fatal("failed to list tables", zap.Error(err))
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			log.Warn("failed to scan table name", zap.Error(err))
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		log.Fatal("failed to read tables", zap.Error(err))
	}
	if len(tables) != len(database.LocalModels()) {
		log.Fatal("schema incomplete", zap.Strings("tables", tables))
	}
	log.Info("migration complete", zap.Strings("tables", tables))
}
