// Command zallet is the wallet server's command-line entry point: start
// the background services, administer keystore material, and drive the
// repair and migration utilities.
package main

import (
	"fmt"
	"os"

	"github.com/decred/slog"
	"github.com/urfave/cli"

	"github.com/zallet-core/zallet/internal/build"
)

func main() {
	app := cli.NewApp()
	app.Name = "zallet"
	app.Usage = "a Zcash wallet server"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "datadir, d",
			Usage: "data directory containing the wallet database, lock file, and identity file",
			Value: defaultDataDir(),
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to zallet.toml",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "enable debug-level logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		level := slog.LevelInfo
		if c.GlobalBool("verbose") {
			level = slog.LevelDebug
		}
		writer, err := build.NewRotatingLogWriter(logFilePath(c), 10)
		if err != nil {
			return fmt.Errorf("zallet: open log file: %w", err)
		}
		build.SetupLoggers(writer, level)
		return nil
	}
	app.Commands = []cli.Command{
		startCommand,
		exampleConfigCommand,
		migrateZcashConfCommand,
		migrateZcashdWalletCommand,
		initWalletEncryptionCommand,
		generateMnemonicCommand,
		importMnemonicCommand,
		exportMnemonicCommand,
		addRPCUserCommand,
		rpcCommand,
		repairCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "zallet:", err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zallet"
	}
	return home + "/.zallet"
}

func logFilePath(c *cli.Context) string {
	return c.GlobalString("datadir") + "/zallet.log"
}
