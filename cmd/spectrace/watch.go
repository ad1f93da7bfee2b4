package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/spectrace/config"
	"github.com/c360studio/spectrace/watch"
)

func watchCmd(configPath *string) *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the traceability pass when watched files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEffectiveConfig(*configPath, flags.overrides())
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			// First pass before watching; a broken setup aborts here
			if err := scanOnce(ctx, cfg); err != nil {
				return err
			}

			roots := append(append([]string(nil), cfg.Spec.Roots...), cfg.Code.Roots...)
			watcher, err := watch.NewWatcher(watch.Config{
				Roots:    roots,
				Debounce: cfg.Watch.Debounce,
				Logger:   slog.Default(),
			})
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer watcher.Stop()

			for {
				select {
				case <-ctx.Done():
					slog.Info("Watch stopped")
					return nil
				case trigger, ok := <-watcher.Triggers():
					if !ok {
						return nil
					}
					slog.Info("Files changed, re-running scan",
						slog.Int("changed", len(trigger.Paths)))
					if err := scanOnce(ctx, cfg); err != nil && ctx.Err() == nil {
						slog.Error("Scan failed", slog.String("error", err.Error()))
					}
				}
			}
		},
	}

	flags.register(cmd)
	return cmd
}

// scanOnce runs one pass and renders it. Watch mode keeps running when a
// later pass fails; only the initial pass aborts.
func scanOnce(ctx context.Context, cfg *config.Config) error {
	report, err := runPass(ctx, cfg)
	if err != nil {
		return err
	}
	return writeReport(cfg, report)
}
