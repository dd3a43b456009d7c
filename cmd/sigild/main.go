package main

import (
	"context"
	"log"
	"time"

	"sigil/internal/config"
	"sigil/internal/infra/crypto"
	"sigil/internal/infra/db"
	httpinfra "sigil/internal/infra/http"
	"sigil/internal/infra/keys/soft"
	"sigil/internal/usecase"
)

func main() {
	cfg := config.FromEnv()

	store, err := db.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open registry: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate registry: %v", err)
	}

	srv := httpinfra.NewServer(cfg, store)

	scheduler := &usecase.RenewalScheduler{
		Certs: store.Certificates,
		Signer: &usecase.SigningService{
			Certs:      store.Certificates,
			Keys:       store.Keys,
			KeyManager: soft.NewManager(),
			Crypto:     crypto.NewService(),
			Audit:      &usecase.AuditEmitter{Repo: store.Audit},
			Passphrase: cfg.CAPassphrase,
			Validity:   cfg.CertValidity(),
		},
		Window: cfg.RenewalWindow(),
	}
	go runRenewalLoop(ctx, scheduler, cfg.RenewalCheckInterval())

	log.Printf("sigild listening on %s", cfg.HTTPAddr)
	if err := srv.Run(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func runRenewalLoop(ctx context.Context, scheduler *usecase.RenewalScheduler, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		report, err := scheduler.Run(ctx)
		if err != nil {
			log.Printf("renewal sweep: %v", err)
			continue
		}
		if report.Scanned > 0 {
			log.Printf("renewal sweep: scanned=%d succeeded=%d failed=%d", report.Scanned, report.Succeeded, report.Failed)
		}
	}
}
