// Package credential verifies issued certificate documents offline: given a
// certificate JSON document and the CA public key, it rechecks the golden
// thread hash and the CA signature without talking to a registry.
package credential

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sigil/internal/domain"
	cryptoinfra "sigil/internal/infra/crypto"
)

// Document is the portable form of an issued certificate, as served by the
// API and stored by collaborators.
type Document struct {
	CertificateID  string          `json:"certificate_id"`
	Agent          domain.Agent    `json:"agent"`
	Org            domain.Org      `json:"org"`
	Level          string          `json:"level"`
	GoldenThread   domain.Hash     `json:"golden_thread"`
	IssuedAt       string          `json:"issued_at"`
	ExpiresAt      string          `json:"expires_at"`
	Content        json.RawMessage `json:"content"`
	SignatureAlg   string          `json:"signature_alg"`
	SignatureKeyID string          `json:"signature_key_id"`
	Signature      string          `json:"signature"`
}

type VerifyOptions struct {
	// PublicKey is the PKIX-encoded CA public key for the key id the
	// document names.
	PublicKey []byte
	// Now defaults to the current time; expiry is judged against it.
	Now time.Time
}

type Result struct {
	SignatureValid bool
	HashValid      bool
	Expired        bool
	CertificateID  string
	Level          string
	ExpiresAt      time.Time
}

// Verify recomputes the canonical content bytes, compares the golden thread
// hash, and checks the CA signature over those bytes.
func Verify(doc Document, opts VerifyOptions) (Result, error) {
	if len(doc.Content) == 0 {
		return Result{}, errors.New("document has no content")
	}
	if len(opts.PublicKey) == 0 {
		return Result{}, errors.New("CA public key is required")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var content any
	if err := json.Unmarshal(doc.Content, &content); err != nil {
		return Result{}, fmt.Errorf("decode content: %w", err)
	}
	canonical, err := cryptoinfra.CanonicalizeAny(content)
	if err != nil {
		return Result{}, fmt.Errorf("canonicalize content: %w", err)
	}

	result := Result{CertificateID: doc.CertificateID, Level: doc.Level}

	svc := cryptoinfra.NewService()
	hash := svc.GoldenThreadHash(canonical)
	result.HashValid = hash.Alg == doc.GoldenThread.Alg && hash.Value == doc.GoldenThread.Value

	sig, err := base64.StdEncoding.DecodeString(doc.Signature)
	if err != nil {
		return Result{}, fmt.Errorf("decode signature: %w", err)
	}
	if err := svc.VerifySignature(domain.KeyAlgorithm(doc.SignatureAlg), opts.PublicKey, canonical, sig); err == nil {
		result.SignatureValid = true
	}

	if doc.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, doc.ExpiresAt)
		if err != nil {
			return Result{}, fmt.Errorf("parse expires_at: %w", err)
		}
		result.ExpiresAt = expiresAt.UTC()
		result.Expired = !now.Before(result.ExpiresAt)
	}
	return result, nil
}

// ParsePublicKeyHex decodes a hex-encoded PKIX public key.
func ParsePublicKeyHex(value string) ([]byte, error) {
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode public key hex: %w", err)
	}
	return decoded, nil
}

// ParsePublicKeyBase64 decodes a base64-encoded PKIX public key.
func ParsePublicKeyBase64(value string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode public key base64: %w", err)
	}
	return decoded, nil
}
