package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"

	"sigil/internal/config"
	"sigil/internal/domain"
	cryptoinfra "sigil/internal/infra/crypto"
	"sigil/internal/infra/db"
	"sigil/internal/infra/keys/soft"
	"sigil/internal/usecase"
)

type keygenOutput struct {
	KeyID     string `json:"key_id"`
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"public_key"`
	Status    string `json:"status"`
}

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var alg string
	var outPath string
	fs.StringVar(&alg, "alg", "ed25519", "key algorithm (ed25519 or ecdsa-p256)")
	fs.StringVar(&outPath, "out", "", "output JSON path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg := config.FromEnv()
	if cfg.CAPassphrase == "" {
		fmt.Fprintln(os.Stderr, "CA_PASSPHRASE is required")
		return 1
	}

	store, err := db.Open(cfg.PostgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open registry: %v\n", err)
		return 1
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migrate registry: %v\n", err)
		return 1
	}

	signer := &usecase.SigningService{
		Keys:       store.Keys,
		KeyManager: soft.NewManager(),
		Crypto:     cryptoinfra.NewService(),
		Audit:      &usecase.AuditEmitter{Repo: store.Audit},
		Passphrase: cfg.CAPassphrase,
	}
	key, err := signer.GenerateKey(ctx, "cli:keygen", domain.KeyAlgorithm(alg), cfg.CAPassphrase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		return 1
	}

	payload, err := cryptoinfra.CanonicalizeAny(keygenOutput{
		KeyID:     key.ID,
		Algorithm: string(key.Algorithm),
		PublicKey: base64.StdEncoding.EncodeToString(key.PublicKey),
		Status:    string(key.Status),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
