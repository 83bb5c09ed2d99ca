package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pocket-poker/history"
	"pocket-poker/netsync"
	"pocket-poker/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listenAddr string
		tcpAddr    string
		noHistory  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the room server (HTTP API, websocket tables and control port)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.ListenAddr = listenAddr
			}
			if cmd.Flags().Changed("tcp") {
				a.cfg.TCPAddr = tcpAddr
			}
			return a.serve(cmd.Context(), noHistory)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&tcpAddr, "tcp", "", "control port address; empty disables it")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record hands")
	return cmd
}

func (a *app) serve(ctx context.Context, noHistory bool) error {
	logger := a.logger
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *history.Store
	if !noHistory {
		var err error
		store, err = history.Open(a.cfg.HistoryDriver, a.cfg.HistoryDSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	rooms := server.NewRoomManager(server.ManagerConfig{
		CheckOrigin:  server.CheckOrigin(a.cfg.AllowedOrigins),
		Store:        store,
		InviteSecret: a.cfg.InviteSecret,
		InviteTTL:    a.cfg.InviteTTL,
		HostOptions: []netsync.HostOption{
			netsync.WithHostLogger(logger),
			netsync.WithRunnerOptions(a.runnerOptions(logger)...),
		},
	}, logger)
	defer rooms.Close()

	srv := server.New(server.Config{
		ListenAddr:     a.cfg.ListenAddr,
		AllowedOrigins: a.cfg.AllowedOrigins,
		Production:     a.cfg.IsProduction(),
	}, rooms, logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start()
	}()

	if a.cfg.TCPAddr != "" {
		control := server.NewControlServer(a.cfg.TCPAddr, rooms, logger)
		if err := control.Listen(); err != nil {
			return err
		}
		defer control.Stop()
		go func() {
			if err := control.Serve(); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server stopped")
			return err
		}
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
