// Command keygen prints fresh secrets for a deployment, or seals a value with
// the configured vault key.
//
//	keygen                  # EBM_VAULT_KEY, EBM_JWT_SECRET, EBM_GATEWAY_WEBHOOK_SECRET
//	keygen -seal sk_live_x  # packed ciphertext for seeding payment_credentials
package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"ebook-marketplace/config"
	"ebook-marketplace/internal/service"

	"github.com/joho/godotenv"
)

type keygenDeps struct {
	random  io.Reader
	loadEnv func() error
	loadCfg func(path string) (*config.Config, error)
	out     io.Writer
}

func defaultKeygenDeps() keygenDeps {
	return keygenDeps{
		random:  rand.Reader,
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		out:     os.Stdout,
	}
}

func randomHex(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func runKeygen(args []string, deps keygenDeps) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	sealFlag := fs.String("seal", "", "seal this value with EBM_VAULT_KEY instead of generating keys")
	cfgFlag := fs.String("config", "", "config file path (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *sealFlag != "" {
		return sealValue(*sealFlag, *cfgFlag, deps)
	}

	for _, secret := range []struct {
		env   string
		bytes int
	}{
		{"EBM_VAULT_KEY", 32},
		{"EBM_JWT_SECRET", 48},
		{"EBM_GATEWAY_WEBHOOK_SECRET", 32},
	} {
		value, err := randomHex(deps.random, secret.bytes)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(deps.out, "%s=%s\n", secret.env, value)
	}
	return nil
}

func sealValue(plaintext, cfgPath string, deps keygenDeps) error {
	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg, err := deps.loadCfg(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Vault.Key == "" {
		return errors.New("EBM_VAULT_KEY is not set")
	}

	vault, err := service.NewAESVault(cfg.Vault.Key)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}
	packed, err := vault.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("sealing value: %w", err)
	}
	_, _ = fmt.Fprintln(deps.out, packed)
	return nil
}

func main() {
	if err := runKeygen(os.Args[1:], defaultKeygenDeps()); err != nil {
		log.Fatal(err)
	}
}
