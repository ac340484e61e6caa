package cron

import (
	"context"
	"testing"
	"time"

	"github.com/bher20/gpumarketwatch/internal/config"
)

func TestNextRunAfterSeconds(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := nextRunAfter("300", last)
	want := last.Add(5 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("nextRunAfter(300) = %v, want %v", got, want)
	}
}

func TestNextRunAfterCronExpression(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	got := nextRunAfter("0 * * * *", last)
	want := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("nextRunAfter(hourly) = %v, want %v", got, want)
	}
}

func TestNextRunAfterInvalidFallsBack(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, setting := range []string{"", "0", "-5", "not a schedule"} {
		got := nextRunAfter(setting, last)
		want := last.Add(time.Hour)
		if !got.Equal(want) {
			t.Errorf("nextRunAfter(%q) = %v, want fallback %v", setting, got, want)
		}
	}
}

func TestWorkerRejectsNonPoolDriver(t *testing.T) {
	// memory and gorm drivers cannot provide cross-instance advisory locks
	err := Run(context.Background(), config.ServiceConfig{StorageDriver: "memory"})
	if err == nil {
		t.Fatal("expected error for non-postgrespool driver")
	}
}
