package soft

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"

	"sigil/internal/domain"
	cryptoinfra "sigil/internal/infra/crypto"
)

// Manager is a software key manager. Generated private keys are sealed with
// the CA passphrase before they leave this package; Sign unseals them for a
// single operation and wipes the plaintext afterwards.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Generate(_ context.Context, alg domain.KeyAlgorithm, passphrase string) ([]byte, []byte, error) {
	var priv any
	var pub any
	switch alg {
	case domain.KeyAlgEd25519:
		edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("generate ed25519 key: %w", err)
		}
		priv, pub = edPriv, edPub
	case domain.KeyAlgECDSAP256:
		ecPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("generate ecdsa key: %w", err)
		}
		priv, pub = ecPriv, &ecPriv.PublicKey
	default:
		return nil, nil, fmt.Errorf("unsupported key algorithm: %s", alg)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	defer cryptoinfra.Wipe(privBytes)

	sealed, err := cryptoinfra.SealPrivateKey(privBytes, passphrase)
	if err != nil {
		return nil, nil, err
	}
	return pubBytes, sealed, nil
}

func (m *Manager) Sign(_ context.Context, key domain.CAKey, passphrase string, payload []byte) ([]byte, error) {
	if len(key.EncryptedPrivateKey) == 0 {
		return nil, errors.New("key has no sealed private key")
	}
	privBytes, err := cryptoinfra.OpenPrivateKey(key.EncryptedPrivateKey, passphrase)
	if err != nil {
		return nil, err
	}
	defer cryptoinfra.Wipe(privBytes)

	priv, err := x509.ParsePKCS8PrivateKey(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	switch k := priv.(type) {
	case ed25519.PrivateKey:
		if key.Algorithm != domain.KeyAlgEd25519 {
			return nil, errors.New("key algorithm mismatch")
		}
		sig := ed25519.Sign(k, payload)
		cryptoinfra.Wipe(k)
		return sig, nil
	case *ecdsa.PrivateKey:
		if key.Algorithm != domain.KeyAlgECDSAP256 {
			return nil, errors.New("key algorithm mismatch")
		}
		digest := sha256.Sum256(payload)
		return ecdsa.SignASN1(rand.Reader, k, digest[:])
	default:
		return nil, fmt.Errorf("unsupported private key type %T", priv)
	}
}

func (m *Manager) Verify(_ context.Context, key domain.CAKey, payload, sig []byte) error {
	svc := cryptoinfra.NewService()
	return svc.VerifySignature(key.Algorithm, key.PublicKey, payload, sig)
}

var _ domain.KeyManager = (*Manager)(nil)
