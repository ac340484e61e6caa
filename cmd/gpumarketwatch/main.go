package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bher20/gpumarketwatch/internal/alerting"
	"github.com/bher20/gpumarketwatch/internal/api"
	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/cron"
	"github.com/bher20/gpumarketwatch/internal/migrate"
	"github.com/bher20/gpumarketwatch/internal/notification"
	"github.com/bher20/gpumarketwatch/internal/pipeline"
	"github.com/bher20/gpumarketwatch/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("gpumarketwatch: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gpumarketwatch",
		Short:         "Collects and publishes GPU rental prices across cloud marketplaces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newServeCmd(), newWorkerCmd(), newMigrateCmd())
	return root
}

// openStorage opens the configured backend, seeding the in-memory one with
// the providers from providers.yaml.
func openStorage(ctx context.Context, svc config.ServiceConfig) (storage.Storage, error) {
	var seed []storage.ProviderInfo
	if svc.StorageDriver == "" || svc.StorageDriver == "memory" {
		for _, pcfg := range config.Load(svc.ConfigDir).Providers {
			seed = append(seed, storage.ProviderInfo{
				Key:     pcfg.ID,
				Name:    pcfg.ID,
				Enabled: pcfg.Enabled,
			})
		}
	}
	return storage.Open(ctx, storage.Config{
		Driver:    svc.StorageDriver,
		DSN:       svc.StorageDSN,
		Providers: seed,
	})
}

func newRunCmd() *cobra.Command {
	var archive bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one collection run and write the artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := config.FromEnv()

			opts := pipeline.Options{
				ConfigDir:  svc.ConfigDir,
				DataDir:    svc.DataDir,
				ReportsDir: svc.ReportsDir,
				SiteDir:    svc.SiteDir,
				Alerter:    alerting.NewAlerter(alerting.DefaultAlertConfig()),
			}
			if archive {
				st, err := openStorage(ctx, svc)
				if err != nil {
					return err
				}
				defer st.Close()
				opts.Store = st
				opts.Notifier = notification.NewService(st)
			}

			res, err := pipeline.Run(ctx, opts)
			if err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"changed": res.Changed,
				"records": len(res.Records),
			})
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "archive the run to the configured storage backend")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the price API, dashboard and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := config.FromEnv()
			st, err := openStorage(ctx, svc)
			if err != nil {
				return err
			}
			defer st.Close()

			mux := api.NewMux(svc, st, notification.NewService(st))
			addr := ":" + svc.Port

			server := &http.Server{Addr: addr, Handler: mux}
			go func() {
				<-ctx.Done()
				_ = server.Shutdown(context.Background())
			}()

			log.Printf("gpumarketwatch listening on %s", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the periodic refresh worker (requires postgrespool storage)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := cron.Run(ctx, config.FromEnv())
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var driver, dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&driver, "driver", "", "storage driver (defaults to GPU_MARKET_STORAGE_DRIVER)")
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "database DSN (defaults to GPU_MARKET_STORAGE_DSN)")

	resolve := func() (string, string) {
		svc := config.FromEnv()
		d, s := driver, dsn
		if d == "" {
			d = svc.StorageDriver
		}
		if s == "" {
			s = svc.StorageDSN
		}
		return d, s
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				d, s := resolve()
				return migrate.Up(cmd.Context(), d, s)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				d, s := resolve()
				return migrate.Down(cmd.Context(), d, s)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				d, s := resolve()
				return migrate.Status(cmd.Context(), d, s)
			},
		},
	)

	return cmd
}
