package database

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/config"
	"github.com/campussafety/safety-dashboard/internal/models"
)

func TestPostgresDSN_FromParts(t *testing.T) {
	cfg := &config.Config{DBHost: "db.example.co", DBUser: "postgres", DBPassword: "pw", DBName: "app", DBPort: "5432", DBSSLMode: "require", DBTimezone: "UTC"}
	dsn := PostgresDSN(cfg)
	for _, part := range []string{"host=db.example.co", "dbname=app", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("expected %q in dsn %q", part, dsn)
		}
	}
}

func TestPostgresDSN_SourceWins(t *testing.T) {
	cfg := &config.Config{DBSource: "postgres://u:p@h/db", DBHost: "ignored"}
	if got := PostgresDSN(cfg); got != "postgres://u:p@h/db" {
		t.Errorf("expected DB_SOURCE to be used, got %q", got)
	}
}

func TestDialector_Unsupported(t *testing.T) {
	if _, err := Dialector(&config.Config{DBDriver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestConnect_SQLiteMigratesAllTables(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", DBSource: ":memory:"}
	db, err := Connect(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := MigrateLocal(db, cfg.DBDriver); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	for _, m := range []interface{}{&models.AdminSettings{}, &models.AnalyticsSnapshot{}, &models.JobRun{}, &models.Report{}, &models.News{}} {
		if !db.Migrator().HasTable(m) {
			t.Errorf("expected table for %T", m)
		}
	}
}

func TestMigrationFileEmbedded(t *testing.T) {
	data, err := SchemaSQL()
	if err != nil {
		t.Fatalf("expected embedded schema, got: %v", err)
	}
	if !strings.Contains(data, "CREATE TABLE IF NOT EXISTS job_runs") {
		t.Errorf("schema does not create job_runs")
	}
}
