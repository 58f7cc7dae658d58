package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli"
)

var repairCommand = cli.Command{
	Name:  "repair",
	Usage: "offline recovery utilities",
	Subcommands: []cli.Command{
		truncateWalletCommand,
	},
}

var truncateWalletCommand = cli.Command{
	Name:      "truncate-wallet",
	Usage:     "rewind wallet state to at most the given height",
	ArgsUsage: "<height>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowCommandHelp(c, "truncate-wallet")
		}
		return truncateWallet(c)
	},
}

func truncateWallet(c *cli.Context) error {
	var height int64
	if _, err := fmt.Sscanf(c.Args().Get(0), "%d", &height); err != nil {
		return fmt.Errorf("zallet: invalid height %q", c.Args().Get(0))
	}

	w, err := openAdminWallet(c)
	if err != nil {
		return err
	}
	defer w.Close()

	actual, err := w.DB.TruncateToHeight(context.Background(), height)
	if err != nil {
		return fmt.Errorf("zallet: truncate: %w", err)
	}
	fmt.Printf("truncated wallet state to height %d\n", actual)
	return nil
}
