package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestLocalArchive_Put(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLocal(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	loc, err := a.Put(context.Background(), "snapshots/Analytics_2025-01.csv", "text/csv", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.HasPrefix(loc, "file://") || !strings.HasSuffix(loc, "_Analytics_2025-01.csv") {
		t.Errorf("unexpected location %q", loc)
	}
	data, err := os.ReadFile(strings.TrimPrefix(loc, "file://"))
	if err != nil {
		t.Fatalf("archived file not readable: %v", err)
	}
	if string(data) != "a,b\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestLocalArchive_UniqueNames(t *testing.T) {
	a, err := NewLocal(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	first, _ := a.Put(context.Background(), "Full_Export.csv", "text/csv", []byte("1"))
	second, _ := a.Put(context.Background(), "Full_Export.csv", "text/csv", []byte("2"))
	if first == second {
		t.Errorf("expected distinct locations, both were %q", first)
	}
}

func TestOpen_NothingConfigured(t *testing.T) {
	a, err := Open(context.Background(), "", "", "", zap.NewNop())
	if err != nil || a != nil {
		t.Errorf("expected no archive and no error, got %v, %v", a, err)
	}
}
