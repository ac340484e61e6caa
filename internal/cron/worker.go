// Package cron runs the periodic price refresh job against a Postgres
// backend, using advisory locks so that in a multi-instance deployment only
// one worker executes each cycle.
package cron

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bher20/gpumarketwatch/internal/alerting"
	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/metrics"
	"github.com/bher20/gpumarketwatch/internal/pipeline"
	"github.com/bher20/gpumarketwatch/internal/storage"
)

const (
	jobName          = "refresh_prices"
	lockKey    int64 = 42
	controlTick      = 10 * time.Second
)

// nextRunAfter calculates the next run time from the interval setting, which
// is either integer seconds or a standard cron expression.
func nextRunAfter(setting string, lastRun time.Time) time.Time {
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return lastRun.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(lastRun)
	}
	return lastRun.Add(time.Hour)
}

// Run starts the refresh worker. It requires the postgrespool storage driver
// because the single-runner guarantee rests on PostgreSQL advisory locks.
// The interval comes from the service configuration and can be overridden at
// runtime through the refresh_interval_seconds setting in the database.
func Run(ctx context.Context, svc config.ServiceConfig) error {
	driver := svc.StorageDriver
	if driver == "" {
		driver = "postgrespool"
	}
	if driver != "postgrespool" {
		return fmt.Errorf("worker requires GPU_MARKET_STORAGE_DRIVER=postgrespool (got %q)", driver)
	}

	stGeneric, err := storage.Open(ctx, storage.Config{Driver: driver, DSN: svc.StorageDSN})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stGeneric.Close()

	pg, ok := stGeneric.(*storage.PostgresPoolStorage)
	if !ok {
		return fmt.Errorf("storage driver %q is not PostgresPoolStorage", driver)
	}

	opts := pipeline.Options{
		ConfigDir:  svc.ConfigDir,
		DataDir:    svc.DataDir,
		ReportsDir: svc.ReportsDir,
		SiteDir:    svc.SiteDir,
		Store:      stGeneric,
		Alerter:    alerting.NewAlerter(alerting.DefaultAlertConfig()),
	}

	intervalSetting := svc.WorkerInterval
	if intervalSetting == "" {
		intervalSetting = "3600"
	}
	if val, err := stGeneric.GetSetting(ctx, "refresh_interval_seconds"); err == nil && val != "" {
		intervalSetting = val
	}

	ticker := time.NewTicker(controlTick)
	defer ticker.Stop()

	// Run immediately on a fresh start, then follow the schedule.
	nextRun := time.Now()

	log.Printf("cron: worker starting, interval=%q driver=%s", intervalSetting, driver)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if val, err := stGeneric.GetSetting(ctx, "refresh_interval_seconds"); err == nil && val != "" {
				if val != intervalSetting {
					log.Printf("cron: interval updated from %q to %q", intervalSetting, val)
					intervalSetting = val
					nextRun = nextRunAfter(intervalSetting, time.Now())
				}
			}

			stats := pg.Pool().Stat()
			metrics.UpdateDBPoolMetrics(driver,
				float64(stats.TotalConns()),
				float64(stats.IdleConns()),
				float64(stats.AcquiredConns()))

			if time.Now().Before(nextRun) {
				continue
			}

			started := time.Now()

			gotLock, err := pg.AcquireAdvisoryLock(ctx, lockKey)
			if err != nil {
				log.Printf("cron: acquire advisory lock failed: %v", err)
				metrics.UpdateJobMetrics(jobName, started, err)
				nextRun = nextRunAfter(intervalSetting, time.Now())
				continue
			}
			if !gotLock {
				log.Printf("cron: advisory lock held by another worker, skipping run")
				nextRun = nextRunAfter(intervalSetting, time.Now())
				continue
			}

			var runErr error
			func() {
				defer func() {
					if _, err := pg.ReleaseAdvisoryLock(ctx, lockKey); err != nil {
						log.Printf("cron: release advisory lock failed: %v", err)
					}
				}()
				_, runErr = pipeline.Run(ctx, opts)
			}()

			metrics.UpdateJobMetrics(jobName, started, runErr)
			dur := time.Since(started)
			errMsg := ""
			success := runErr == nil
			if runErr != nil {
				errMsg = runErr.Error()
			}
			if err := pg.UpdateScheduledJob(ctx, jobName, started, dur, success, errMsg); err != nil {
				log.Printf("cron: update scheduled_jobs failed: %v", err)
			}

			if runErr != nil {
				log.Printf("cron: job %s completed with error: %v (duration=%s)", jobName, runErr, dur)
			} else {
				log.Printf("cron: job %s completed successfully (duration=%s)", jobName, dur)
			}

			nextRun = nextRunAfter(intervalSetting, time.Now())
		}
	}
}
