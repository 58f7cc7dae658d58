package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"
)

var exampleConfigTOML = `# zallet.toml - generated by "zallet example-config"

network = "main"
wallet_db = "wallet.sqlite"
broadcast = true
require_backup = true

[builder]
spend_zeroconf_change = false
orchard_actions_limit = 50

[indexer]
validator = "http://127.0.0.1:8232"
validator_cookie = ""
request_timeout_ms = 30000

[keystore]
identity_file = "identity.txt"

[limits]
max_concurrent_connections = 4
historical_batch_size = 1000

[rpc]
bind = ["127.0.0.1:8137"]
user = ""
`

var exampleConfigCommand = cli.Command{
	Name:  "example-config",
	Usage: "print an annotated zallet.toml to stdout",
	Action: func(c *cli.Context) error {
		fmt.Print(exampleConfigTOML)
		return nil
	},
}

// zcashConfKeyMap translates the subset of zcash.conf keys that have a
// direct zallet.toml analogue. Keys with no analogue (mining, consensus,
// peer-networking flags) are intentionally dropped: consensus and mining
// are not wallet concerns.
var zcashConfKeyMap = map[string]string{
	"rpcuser": "rpc.user",
}

var migrateZcashConfCommand = cli.Command{
	Name:      "migrate-zcash-conf",
	Usage:     "translate a zcashd zcash.conf into a starter zallet.toml",
	ArgsUsage: "<path-to-zcash.conf>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowCommandHelp(c, "migrate-zcash-conf")
		}
		return migrateZcashConf(c.Args().Get(0))
	},
}

func migrateZcashConf(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("zallet: read %s: %w", path, err)
	}
	defer f.Close()

	var rpcPort, rpcBind string
	overrides := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := ""
		if len(parts) == 2 {
			value = strings.TrimSpace(parts[1])
		}
		switch key {
		case "rpcport":
			rpcPort = value
		case "rpcbind":
			rpcBind = value
		case "testnet":
			if value == "1" {
				overrides["network"] = "test"
			}
		case "regtest":
			if value == "1" {
				overrides["network"] = "regtest"
			}
		default:
			if target, ok := zcashConfKeyMap[key]; ok && target != "" {
				overrides[target] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("# zallet.toml - generated by \"zallet migrate-zcash-conf\" from " + path + "\n\n")
	if network, ok := overrides["network"]; ok {
		fmt.Fprintf(&sb, "network = %q\n", network)
	} else {
		sb.WriteString("network = \"main\"\n")
	}
	sb.WriteString("\n[rpc]\n")
	bind := rpcBind
	if bind == "" {
		bind = "127.0.0.1"
	}
	if rpcPort != "" {
		bind = bind + ":" + rpcPort
	}
	fmt.Fprintf(&sb, "bind = [%q]\n", bind)
	if user, ok := overrides["rpc.user"]; ok {
		fmt.Fprintf(&sb, "user = %q\n", user)
	}

	fmt.Print(sb.String())
	return nil
}
