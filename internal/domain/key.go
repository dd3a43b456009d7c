package domain

import (
	"context"
	"time"
)

type KeyAlgorithm string

const (
	KeyAlgEd25519   KeyAlgorithm = "ed25519"
	KeyAlgECDSAP256 KeyAlgorithm = "ecdsa-p256"
)

func (a KeyAlgorithm) Valid() bool {
	return a == KeyAlgEd25519 || a == KeyAlgECDSAP256
}

type KeyStatus string

const (
	KeyStatusActive   KeyStatus = "active"
	KeyStatusInactive KeyStatus = "inactive"
	KeyStatusRotated  KeyStatus = "rotated"
)

// CAKey is a CA signing key. The private key is sealed with a
// passphrase-derived secret and only decrypted inside a signing call.
// Rotated keys are retained forever so historical signatures stay verifiable.
type CAKey struct {
	ID                  string
	Algorithm           KeyAlgorithm
	PublicKey           []byte
	EncryptedPrivateKey []byte
	Status              KeyStatus
	CertificatesSigned  int64
	CreatedAt           time.Time
	ExpiresAt           *time.Time
	RotatedAt           *time.Time
}

// KeyManager performs cryptographic operations with CA keys. Sign unseals the
// private key with the passphrase for the duration of the call only.
type KeyManager interface {
	Generate(ctx context.Context, alg KeyAlgorithm, passphrase string) (publicKey, sealedPrivateKey []byte, err error)
	Sign(ctx context.Context, key CAKey, passphrase string, payload []byte) ([]byte, error)
	Verify(ctx context.Context, key CAKey, payload, sig []byte) error
}
