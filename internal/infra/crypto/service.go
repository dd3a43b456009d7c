package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"

	"sigil/internal/domain"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// CanonicalizeContent produces the canonical JSON bytes of the attested
// certificate document. These bytes are what gets hashed and signed.
func (s *Service) CanonicalizeContent(content domain.CertificateContent) ([]byte, error) {
	if content.Schema == "" {
		content.Schema = domain.CertificateSchema
	}
	return CanonicalizeAny(content)
}

// CanonicalizeResponses produces the canonical JSON bytes a status-response
// signature covers.
func (s *Service) CanonicalizeResponses(responses []domain.SingleResponse) ([]byte, error) {
	return CanonicalizeAny(responses)
}

// GoldenThreadHash computes the content-integrity anchor over canonical bytes.
func (s *Service) GoldenThreadHash(canonical []byte) domain.Hash {
	sum := sha256.Sum256(canonical)
	return domain.Hash{
		Alg:   domain.HashAlgSHA256,
		Value: hex.EncodeToString(sum[:]),
	}
}

// VerifySignature checks sig over payload using the given public key, which
// must be PKIX-encoded. Supported algorithms: ed25519, ecdsa-p256 (ASN.1 sigs).
func (s *Service) VerifySignature(alg domain.KeyAlgorithm, publicKey, payload, sig []byte) error {
	pub, err := x509.ParsePKIXPublicKey(publicKey)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	switch alg {
	case domain.KeyAlgEd25519:
		edPub, ok := pub.(ed25519.PublicKey)
		if !ok {
			return errors.New("public key is not ed25519")
		}
		if len(sig) != ed25519.SignatureSize {
			return fmt.Errorf("invalid ed25519 signature length: %d", len(sig))
		}
		if !ed25519.Verify(edPub, payload, sig) {
			return errors.New("signature verification failed")
		}
		return nil
	case domain.KeyAlgECDSAP256:
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return errors.New("public key is not ecdsa")
		}
		digest := sha256.Sum256(payload)
		if !ecdsa.VerifyASN1(ecPub, digest[:], sig) {
			return errors.New("signature verification failed")
		}
		return nil
	default:
		return fmt.Errorf("unsupported signature algorithm: %s", alg)
	}
}
