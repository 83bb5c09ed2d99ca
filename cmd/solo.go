package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pocket-poker/netsync"
)

func newSoloCmd(a *app) *cobra.Command {
	var (
		table tableFlags
		name  string
	)
	cmd := &cobra.Command{
		Use:   "solo",
		Short: "Play against bots, offline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.solo(cmd.Context(), a.tableLogger(cmd), table, name)
		},
	}
	table.register(cmd, 3)
	cmd.Flags().StringVar(&name, "name", "You", "your name at the table")
	return cmd
}

// solo hosts a private table on an in-process network nobody else can reach.
func (a *app) solo(ctx context.Context, logger zerolog.Logger, f tableFlags, name string) error {
	settings, err := f.settings()
	if err != nil {
		return err
	}
	bots, err := f.botSpecs()
	if err != nil {
		return err
	}
	if len(bots) == 0 {
		return errNoOpponents
	}

	t, err := netsync.NewMemoryNetwork().Listen("you")
	if err != nil {
		return err
	}
	defer t.Close()

	tbl := newTable(t.ID, nil)
	host := netsync.NewHost(t, netsync.HostConfig{
		Name:     name,
		Settings: settings,
		Bots:     bots,
	},
		netsync.WithHostLogger(logger),
		netsync.WithRunnerOptions(a.runnerOptions(logger)...),
		netsync.WithLocalView(tbl.offer),
	)
	defer host.Close()
	tbl.player = host
	tbl.nextHand = host.NextHand

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = host.Run(ctx) }()

	printBanner()
	pterm.Info.Printfln("%s sits down with %d bots.", name, len(bots))
	if err := host.StartMatch(); err != nil {
		return err
	}
	return tbl.play(ctx)
}
