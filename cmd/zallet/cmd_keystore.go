package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tyler-smith/go-bip39"
	"github.com/urfave/cli"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/zallet-core/zallet/internal/config"
	"github.com/zallet-core/zallet/internal/keystore"
	"github.com/zallet-core/zallet/internal/wallet"
)

var initWalletEncryptionCommand = cli.Command{
	Name:  "init-wallet-encryption",
	Usage: "generate an identity file and initialize the keystore's recipient set",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "encrypt", Usage: "passphrase-protect the generated identity file"},
	},
	Action: func(c *cli.Context) error {
		return initWalletEncryption(c)
	},
}

func initWalletEncryption(c *cli.Context) error {
	dataDir := c.GlobalString("datadir")
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return err
	}
	identityPath := dataDir + "/identity.txt"
	if _, err := os.Stat(identityPath); err == nil {
		return fmt.Errorf("zallet: identity file already exists at %s", identityPath)
	}

	var recipient keystore.Recipient
	var err error
	if c.Bool("encrypt") {
		passphrase, promptErr := promptPassphrase("Set a passphrase for the identity file: ")
		if promptErr != nil {
			return promptErr
		}
		recipient, err = keystore.GenerateEncryptedIdentityFile(identityPath, passphrase)
	} else {
		recipient, err = keystore.GenerateUnencryptedIdentityFile(identityPath)
	}
	if err != nil {
		return fmt.Errorf("zallet: generate identity file: %w", err)
	}

	w, err := openAdminWallet(c)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Keystore.InitializeRecipients(context.Background(), []keystore.Recipient{recipient}); err != nil {
		return fmt.Errorf("zallet: initialize recipients: %w", err)
	}

	fmt.Printf("identity file written to %s\n", identityPath)
	return nil
}

var generateMnemonicCommand = cli.Command{
	Name:  "generate-mnemonic",
	Usage: "generate a fresh BIP-39 mnemonic and store it encrypted to the recipient set",
	Action: func(c *cli.Context) error {
		return generateMnemonic(c)
	},
}

func generateMnemonic(c *cli.Context) error {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return err
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return err
	}

	w, err := openUnlockedAdminWallet(c)
	if err != nil {
		return err
	}
	defer w.Close()

	fp, err := w.Keystore.EncryptAndStoreMnemonic(context.Background(), phrase)
	if err != nil {
		return fmt.Errorf("zallet: store mnemonic: %w", err)
	}

	fmt.Println(phrase)
	fmt.Printf("seed fingerprint: %s\n", base64.RawStdEncoding.EncodeToString(fp[:]))
	return nil
}

var importMnemonicCommand = cli.Command{
	Name:      "import-mnemonic",
	Usage:     "import an existing BIP-39 mnemonic, reading it from stdin",
	ArgsUsage: " ",
	Action: func(c *cli.Context) error {
		return importMnemonic(c)
	},
}

func importMnemonic(c *cli.Context) error {
	fmt.Fprint(os.Stderr, "Enter mnemonic: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("zallet: read mnemonic: %w", err)
	}
	phrase := strings.TrimSpace(line)
	if !bip39.IsMnemonicValid(phrase) {
		return fmt.Errorf("zallet: not a valid BIP-39 mnemonic")
	}

	w, err := openUnlockedAdminWallet(c)
	if err != nil {
		return err
	}
	defer w.Close()

	fp, err := w.Keystore.EncryptAndStoreMnemonic(context.Background(), phrase)
	if err != nil {
		return fmt.Errorf("zallet: store mnemonic: %w", err)
	}
	fmt.Printf("seed fingerprint: %s\n", base64.RawStdEncoding.EncodeToString(fp[:]))
	return nil
}

var exportMnemonicCommand = cli.Command{
	Name:      "export-mnemonic",
	Usage:     "re-encrypt and export a stored mnemonic to the current recipient set",
	ArgsUsage: "<seed-fingerprint-base64>",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "armor", Usage: "ASCII-armor the exported ciphertext"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowCommandHelp(c, "export-mnemonic")
		}
		return exportMnemonic(c)
	},
}

func exportMnemonic(c *cli.Context) error {
	raw, err := base64.RawStdEncoding.DecodeString(c.Args().Get(0))
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("zallet: malformed seed fingerprint")
	}
	var fp [32]byte
	copy(fp[:], raw)

	w, err := openUnlockedAdminWallet(c)
	if err != nil {
		return err
	}
	defer w.Close()

	out, err := w.Keystore.ExportMnemonic(context.Background(), keystore.SeedFingerprint(fp), c.Bool("armor"))
	if err != nil {
		return fmt.Errorf("zallet: export mnemonic: %w", err)
	}
	fmt.Println(out)
	return nil
}

// openAdminWallet opens the wallet database and keystore for commands that
// only need keystore/database access, never the chain view (no sync
// engine is started).
func openAdminWallet(c *cli.Context) (*wallet.Wallet, error) {
	dataDir := c.GlobalString("datadir")
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	identityPath := cfg.KeyStore.IdentityFile
	if identityPath == "" {
		identityPath = dataDir + "/identity.txt"
	}
	identity, err := keystore.LoadIdentityFile(identityPath)
	if err != nil {
		return nil, fmt.Errorf("zallet: load identity file: %w", err)
	}

	return wallet.Open(context.Background(), cfg, dataDir, identity, nil)
}

// openUnlockedAdminWallet opens the wallet as openAdminWallet does and, if
// the keystore uses a passphrase-protected identity file, prompts for the
// passphrase and unlocks it for the lifetime of the process.
func openUnlockedAdminWallet(c *cli.Context) (*wallet.Wallet, error) {
	w, err := openAdminWallet(c)
	if err != nil {
		return nil, err
	}
	if w.Keystore.UsesEncryptedIdentities() && w.Keystore.IsLocked() {
		passphrase, err := promptPassphrase("Identity file passphrase: ")
		if err != nil {
			w.Close()
			return nil, err
		}
		// The command runs to completion and exits; an hour-long relock
		// window is ample without leaving identities installed past the
		// process's own lifetime.
		if err := w.Keystore.Unlock(passphrase, time.Hour); err != nil {
			w.Close()
			return nil, fmt.Errorf("zallet: unlock: %w", err)
		}
	}
	return w, nil
}

func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
