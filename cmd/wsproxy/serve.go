// File: cmd/wsproxy/serve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/momentics/wsproxy/control"
	"github.com/momentics/wsproxy/facade"
)

type serveFlags struct {
	config   string
	strategy string
	capacity int
	listen   string
	consumer string
}

func serveCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proxy",
		Long: `Run the proxy with the given configuration. Flags override the file.
SIGHUP reloads the file; only log_level is applied to a running proxy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			b, err := facade.New(cfg)
			if err != nil {
				return err
			}
			defer b.Logger().Sync() //nolint:errcheck

			consume, err := facade.ConsumerByName(f.consumer, b.Clock(), cfg.PollInterval, b.Logger().Named("consumer"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if f.config != "" {
				go reloadOnHangup(ctx, b, f.config)
			}
			return b.Run(ctx, consume)
		},
	}

	cmd.Flags().StringVarP(&f.config, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "buffering strategy (see 'wsproxy strategies')")
	cmd.Flags().IntVar(&f.capacity, "capacity", 0, "per-connection buffer capacity in bytes")
	cmd.Flags().StringVarP(&f.listen, "listen", "l", "", "listen address")
	cmd.Flags().StringVar(&f.consumer, "consumer", "echo", "stream consumer: "+strings.Join(facade.ConsumerNames(), ", "))
	return cmd
}

// resolve loads the configuration file, if any, and applies flags that
// were set explicitly.
func (f *serveFlags) resolve(cmd *cobra.Command) (*control.Config, error) {
	cfg := control.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = control.Load(f.config); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Strategy = f.strategy
	}
	if flags.Changed("capacity") {
		cfg.Capacity = f.capacity
	}
	if flags.Changed("listen") {
		cfg.ListenAddr = f.listen
	}
	return cfg, cfg.Validate()
}

func reloadOnHangup(ctx context.Context, b *facade.Bridge, path string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	log := b.Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}
		if err := b.Store().Reload(path); err != nil {
			log.Warn("config reload failed", zap.String("path", path), zap.Error(err))
			continue
		}
		log.Info("config reloaded", zap.String("path", path), zap.String("log_level", b.Store().Current().LogLevel))
	}
}
