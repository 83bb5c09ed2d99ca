package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pocket-poker/history"
	"pocket-poker/netsync"
	"pocket-poker/transport"
)

type hostFlags struct {
	table    tableFlags
	name     string
	via      string
	listen   string
	room     string
	autoNext time.Duration
	invite   bool
	record   bool
}

func newHostCmd(a *app) *cobra.Command {
	f := &hostFlags{}
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a table on this machine and play at it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.host(cmd.Context(), a.tableLogger(cmd), f)
		},
	}
	f.table.register(cmd, 0)
	cmd.Flags().StringVar(&f.name, "name", "Host", "your name at the table")
	cmd.Flags().StringVar(&f.via, "transport", "tcp", "how peers reach you: tcp or redis")
	cmd.Flags().StringVar(&f.listen, "listen", ":9000", "tcp listen address")
	cmd.Flags().StringVar(&f.room, "room", "", "redis room name; random when empty")
	cmd.Flags().DurationVar(&f.autoNext, "auto-next", 0, "deal the next hand after this pause instead of asking")
	cmd.Flags().BoolVar(&f.invite, "invite", false, "require an invite token to join (needs INVITE_SECRET)")
	cmd.Flags().BoolVar(&f.record, "record", false, "record hands to the history database")
	return cmd
}

// openHostTransport starts listening and returns the transport, a hint for
// joiners and a cleanup func.
func (a *app) openHostTransport(ctx context.Context, f *hostFlags, logger zerolog.Logger) (netsync.Transport, string, func(), error) {
	switch f.via {
	case "tcp":
		hub, err := transport.ListenTCP(f.listen, transport.HostPeerID, logger)
		if err != nil {
			return nil, "", nil, err
		}
		hint := fmt.Sprintf("pocket-poker join %s", hub.Addr())
		return hub, hint, func() { hub.Close() }, nil
	case "redis":
		if a.cfg.RedisAddr == "" {
			return nil, "", nil, fmt.Errorf("REDIS_ADDR is not set")
		}
		rdb, err := transport.NewRedisClient(ctx, transport.RedisConfig{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, "", nil, err
		}
		relay, err := transport.ListenRedis(ctx, rdb, f.room, transport.HostPeerID, logger)
		if err != nil {
			rdb.Close()
			return nil, "", nil, err
		}
		hint := fmt.Sprintf("pocket-poker join --transport redis %s", f.room)
		return relay, hint, func() {
			relay.Close()
			rdb.Close()
		}, nil
	}
	return nil, "", nil, fmt.Errorf("unknown transport %q", f.via)
}

func (a *app) host(ctx context.Context, logger zerolog.Logger, f *hostFlags) error {
	settings, err := f.table.settings()
	if err != nil {
		return err
	}
	bots, err := f.table.botSpecs()
	if err != nil {
		return err
	}
	if f.room == "" {
		f.room = uuid.NewString()[:8]
	}

	t, hint, cleanup, err := a.openHostTransport(ctx, f, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	tbl := newTable(t.ID, nil)
	opts := []netsync.HostOption{
		netsync.WithHostLogger(logger),
		netsync.WithRunnerOptions(a.runnerOptions(logger)...),
		netsync.WithLocalView(tbl.offer),
	}

	if f.invite {
		if a.cfg.InviteSecret == "" {
			return fmt.Errorf("INVITE_SECRET is not set")
		}
		invites := netsync.NewInviteService(a.cfg.InviteSecret, f.room)
		token, err := invites.Issue(a.cfg.InviteTTL)
		if err != nil {
			return err
		}
		opts = append(opts, netsync.WithInvites(invites))
		hint += " --invite " + token
	}

	if f.record {
		store, err := history.Open(a.cfg.HistoryDriver, a.cfg.HistoryDSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, netsync.WithStateObserver(history.NewRecorder(store, f.room).Observe))
	}

	host := netsync.NewHost(t, netsync.HostConfig{
		Name:         f.name,
		Settings:     settings,
		Bots:         bots,
		AutoNextHand: f.autoNext,
	}, opts...)
	defer host.Close()
	tbl.player = host
	if f.autoNext <= 0 {
		tbl.nextHand = host.NextHand
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := host.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("host stopped")
		}
		cancel()
	}()

	printBanner()
	pterm.Info.Printfln("Players join with: %s", hint)
	if err := waitInLobby(host, len(bots)); err != nil {
		return err
	}
	return tbl.play(ctx)
}

// waitInLobby shows who has joined until the host starts the match.
func waitInLobby(host *netsync.Host, bots int) error {
	for {
		out, err := renderLobby(host.Roster(), bots)
		if err != nil {
			return err
		}
		pterm.Print("\n" + out)

		start, err := pterm.DefaultInteractiveConfirm.
			WithDefaultValue(false).
			Show("Start the match? (no refreshes the lobby)")
		if err != nil {
			return err
		}
		if !start {
			continue
		}
		if err := host.StartMatch(); err != nil {
			pterm.Warning.Println(err)
			continue
		}
		return nil
	}
}
