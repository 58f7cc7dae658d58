// Package config loads the wallet's single TOML configuration file, layered
// as defaults < file < environment (ZALLET_ prefixed, double-underscore
// path separator), and enforces the sensitive-key deny-list on environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// sensitiveKeySuffixes lists the leaf-name suffixes that may never be
// supplied via environment variable, regardless of which section they live
// under (indexer.validator_password being the notable instance).
var sensitiveKeySuffixes = []string{"VALIDATOR_PASSWORD", "PASSWORD", "SECRET"}

// Network selects the Zcash network this wallet instance operates on.
type Network string

const (
	NetworkMain    Network = "main"
	NetworkTest    Network = "test"
	NetworkRegtest Network = "regtest"
)

// Builder holds settings affecting transactions the wallet creates.
type Builder struct {
	SpendZeroconfChange *bool `toml:"spend_zeroconf_change"`
	OrchardActionsLimit *int  `toml:"orchard_actions_limit"`
}

// Indexer holds settings for reaching the external chain-view service.
type Indexer struct {
	Validator        string `toml:"validator"`
	ValidatorCookie  string `toml:"validator_cookie"`
	ValidatorPassword string `toml:"validator_password"`
	RequestTimeoutMS int    `toml:"request_timeout_ms"`
}

// KeyStore holds settings for locating the identity file.
type KeyStore struct {
	IdentityFile string `toml:"identity_file"`
	AgeFile      string `toml:"age_file"`
}

// Limits holds resource-exhaustion guards.
type Limits struct {
	MaxConcurrentConnections *int `toml:"max_concurrent_connections"`
	HistoricalBatchSize      *int `toml:"historical_batch_size"`
}

// RPC holds settings for the JSON-RPC surface.
type RPC struct {
	Bind []string `toml:"bind"`
	User string   `toml:"user"`
}

// Config is the full, deserialized zallet.toml plus layered overrides.
type Config struct {
	Broadcast      *bool    `toml:"broadcast"`
	ExportDir      string   `toml:"export_dir"`
	Network        Network  `toml:"network"`
	Notify         string   `toml:"notify"`
	RequireBackup  *bool    `toml:"require_backup"`
	WalletDB       string   `toml:"wallet_db"`
	DataDir        string   `toml:"-"`
	Builder        Builder  `toml:"builder"`
	Indexer        Indexer  `toml:"indexer"`
	KeyStore       KeyStore `toml:"keystore"`
	Limits         Limits   `toml:"limits"`
	RPC            RPC      `toml:"rpc"`
}

// Default returns the zero-value configuration with network set to
// mainnet.
func Default() Config {
	return Config{Network: NetworkMain}
}

// BroadcastEnabled reports whether the wallet should submit signed
// transactions to the chain view, defaulting to true.
func (c Config) BroadcastEnabled() bool {
	return c.Broadcast == nil || *c.Broadcast
}

// RequireBackupConfirmed reports whether new spending keys/addresses are
// withheld until a seed backup has been confirmed, defaulting to true.
func (c Config) RequireBackupConfirmed() bool {
	return c.RequireBackup == nil || *c.RequireBackup
}

// OrchardActionsLimit returns the configured Orchard-actions cap, defaulting
// to 50 if unset.
func (c Config) OrchardActionsLimit() int {
	if c.Builder.OrchardActionsLimit == nil {
		return 50
	}
	return *c.Builder.OrchardActionsLimit
}

// Load reads path (a TOML file) into defaults, then applies ZALLET_-prefixed
// environment variables on top, rejecting any that target a
// sensitive-suffix key.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.Environ()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays ZALLET_-prefixed variables onto cfg. A key's path is
// derived by splitting on "__" after the prefix (e.g.
// ZALLET_INDEXER__VALIDATOR_PASSWORD -> indexer.validator_password);
// splitting on "__" also yields the bare leaf name checked against
// sensitiveKeySuffixes, so a match at any depth is rejected.
func applyEnv(cfg *Config, environ []string) error {
	const prefix = "ZALLET_"
	for _, kv := range environ {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		key, value := strings.TrimPrefix(parts[0], prefix), ""
		if len(parts) == 2 {
			value = parts[1]
		}
		segments := strings.Split(key, "__")
		leaf := segments[len(segments)-1]
		for _, forbidden := range sensitiveKeySuffixes {
			if strings.HasSuffix(strings.ToUpper(leaf), forbidden) {
				return fmt.Errorf("config: environment may not set sensitive key %q", parts[0])
			}
		}
		if err := setByPath(cfg, segments, value); err != nil {
			return err
		}
	}
	return nil
}

// setByPath applies a small, explicit set of known override paths. Unknown
// paths are rejected rather than silently ignored.
func setByPath(cfg *Config, segments []string, value string) error {
	join := strings.ToUpper(strings.Join(segments, "__"))
	switch join {
	case "BROADCAST":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: BROADCAST: %w", err)
		}
		cfg.Broadcast = &b
	case "EXPORT_DIR":
		cfg.ExportDir = value
	case "NETWORK":
		cfg.Network = Network(value)
	case "NOTIFY":
		cfg.Notify = value
	case "REQUIRE_BACKUP":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: REQUIRE_BACKUP: %w", err)
		}
		cfg.RequireBackup = &b
	case "WALLET_DB":
		cfg.WalletDB = value
	case "BUILDER__SPEND_ZEROCONF_CHANGE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: BUILDER__SPEND_ZEROCONF_CHANGE: %w", err)
		}
		cfg.Builder.SpendZeroconfChange = &b
	case "BUILDER__ORCHARD_ACTIONS_LIMIT":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: BUILDER__ORCHARD_ACTIONS_LIMIT: %w", err)
		}
		cfg.Builder.OrchardActionsLimit = &n
	case "INDEXER__VALIDATOR":
		cfg.Indexer.Validator = value
	case "INDEXER__VALIDATOR_COOKIE":
		cfg.Indexer.ValidatorCookie = value
	case "INDEXER__REQUEST_TIMEOUT_MS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: INDEXER__REQUEST_TIMEOUT_MS: %w", err)
		}
		cfg.Indexer.RequestTimeoutMS = n
	case "KEYSTORE__IDENTITY_FILE":
		cfg.KeyStore.IdentityFile = value
	case "KEYSTORE__AGE_FILE":
		cfg.KeyStore.AgeFile = value
	case "RPC__USER":
		cfg.RPC.User = value
	default:
		return fmt.Errorf("config: unknown environment override %q", join)
	}
	return nil
}
