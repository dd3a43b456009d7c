package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"sigil/internal/config"
	cryptoinfra "sigil/internal/infra/crypto"
	"sigil/internal/infra/db"
	"sigil/internal/infra/keys/soft"
	"sigil/internal/usecase"
)

type renewSweepOutput struct {
	Scanned   int `json:"scanned"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func runRenewSweep(args []string) int {
	fs := flag.NewFlagSet("renew-sweep", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var windowDays int
	var outPath string
	fs.IntVar(&windowDays, "window-days", 0, "renewal window in days (default from env)")
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

	window := cfg.RenewalWindow()
	if windowDays > 0 {
		window = time.Duration(windowDays) * 24 * time.Hour
	}
	scheduler := &usecase.RenewalScheduler{
		Certs: store.Certificates,
		Signer: &usecase.SigningService{
			Certs:      store.Certificates,
			Keys:       store.Keys,
			KeyManager: soft.NewManager(),
			Crypto:     cryptoinfra.NewService(),
			Audit:      &usecase.AuditEmitter{Repo: store.Audit},
			Passphrase: cfg.CAPassphrase,
			Validity:   cfg.CertValidity(),
		},
		Window: window,
	}
	report, err := scheduler.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "renew sweep: %v\n", err)
		return 1
	}

	payload, err := cryptoinfra.CanonicalizeAny(renewSweepOutput{
		Scanned:   report.Scanned,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	if report.Failed > 0 {
		return 1
	}
	return 0
}
