package main

import (
	"fmt"

	"github.com/urfave/cli"
)

// migrateZcashdWalletCommand is the CLI entry for the zcashd wallet
// importer. The core's side of that collaboration is internal/migrate:
// a reader of zcashd BDB wallet dumps implements migrate.Source, and
// migrate.Run applies its records through the public keystore and
// data-store contracts, enforcing well-formed derivation records,
// preserved seed fingerprints, and the network-mismatch rule. The BDB
// reader itself is outside the core, so this command can only report
// that no reader is linked in.
var migrateZcashdWalletCommand = cli.Command{
	Name:      "migrate-zcashd-wallet",
	Usage:     "import accounts and keys from a zcashd wallet.dat (requires an external dump reader)",
	ArgsUsage: "<path-to-wallet.dat>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowCommandHelp(c, "migrate-zcashd-wallet")
		}
		return fmt.Errorf("zallet: no BDB wallet-dump reader is linked into this build; " +
			"an importer must implement internal/migrate.Source and be applied with migrate.Run")
	},
}
