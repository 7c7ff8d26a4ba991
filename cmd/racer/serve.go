package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/racer/internal/core/observability/log"
	"github.com/zeusync/racer/internal/injector"
)

func newServeCommand(configPath *string) *cobra.Command {
	var addr, quicAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve environments to external trainers over websocket and QUIC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				s.Server.ListenAddr = addr
			}
			if quicAddr != "" {
				s.Server.QUICAddr = quicAddr
			}

			rt, cleanup, err := injector.InitializeRuntime(s)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := rt.Server.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := rt.Server.Stop(shutdownCtx); err != nil {
				rt.Logger.Warn("Graceful shutdown failed", log.Error(err))
			}
			return rt.Server.Close()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.listen_addr")
	cmd.Flags().StringVar(&quicAddr, "quic-addr", "", "QUIC listen address, overrides server.quic_addr")
	return cmd
}
