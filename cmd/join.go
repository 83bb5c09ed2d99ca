package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pocket-poker/models"
	"pocket-poker/netsync"
	"pocket-poker/transport"
)

func newJoinCmd(a *app) *cobra.Command {
	var (
		name   string
		via    string
		invite string
	)
	cmd := &cobra.Command{
		Use:   "join <address|url|room>",
		Short: "Join a table hosted elsewhere",
		Long: "Join a table. The target is host:port for tcp, a ws:// url such as " +
			"ws://server:8080/ws/<room> for websocket, or the room name for redis.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.join(cmd.Context(), a.tableLogger(cmd), via, args[0], name, invite)
		},
	}
	cmd.Flags().StringVar(&name, "name", "Player", "your name at the table")
	cmd.Flags().StringVar(&via, "transport", "tcp", "tcp, ws or redis")
	cmd.Flags().StringVar(&invite, "invite", "", "invite token from the host")
	return cmd
}

func (a *app) dialTransport(ctx context.Context, via, target string, logger zerolog.Logger) (netsync.Transport, func(), error) {
	id := uuid.NewString()
	switch via {
	case "tcp":
		hub, err := transport.DialTCP(ctx, target, id, logger)
		if err != nil {
			return nil, nil, err
		}
		return hub, func() { hub.Close() }, nil
	case "ws", "websocket":
		hub, err := transport.DialWebsocket(ctx, target, id, logger)
		if err != nil {
			return nil, nil, err
		}
		return hub, func() { hub.Close() }, nil
	case "redis":
		if a.cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("REDIS_ADDR is not set")
		}
		rdb, err := transport.NewRedisClient(ctx, transport.RedisConfig{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		relay, err := transport.DialRedis(ctx, rdb, target, id, logger)
		if err != nil {
			rdb.Close()
			return nil, nil, err
		}
		return relay, func() {
			relay.Close()
			rdb.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown transport %q", via)
}

func (a *app) join(ctx context.Context, logger zerolog.Logger, via, target, name, invite string) error {
	spinner, _ := pterm.DefaultSpinner.Start("Connecting to ", target, "...")
	t, cleanup, err := a.dialTransport(ctx, via, target, logger)
	if err != nil {
		spinner.Fail(err)
		return err
	}
	defer cleanup()
	spinner.Success("Connected")

	var client *netsync.Client
	tbl := newTable(func() string { return client.PeerID() }, nil)
	client = netsync.NewClient(t, name,
		netsync.WithClientLogger(logger),
		netsync.WithInviteToken(invite),
		netsync.OnState(tbl.offer),
		netsync.OnLobby(func(peers []models.LobbyPeer) {
			if out, err := renderLobby(peers, 0); err == nil {
				pterm.Print("\n" + out)
			}
		}),
		netsync.OnServerError(func(msg string) {
			pterm.Warning.Println(msg)
		}),
	)
	tbl.player = client

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- client.Run(ctx)
		cancel()
	}()

	pterm.Info.Println("Waiting for the host to start the match...")
	playErr := tbl.play(ctx)
	cancel()

	err = <-runErr
	if errors.Is(err, netsync.ErrHostDisconnected) {
		pterm.Info.Println("The host closed the table.")
		return nil
	}
	_ = client.Leave()
	if playErr != nil && !errors.Is(playErr, context.Canceled) {
		return playErr
	}
	return nil
}
