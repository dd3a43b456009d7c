package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// Private keys rest sealed under AES-256-GCM with a scrypt-derived key.
// Blob layout: version byte, 16-byte salt, 12-byte nonce, ciphertext.
const (
	sealVersion    = 0x01
	sealSaltLen    = 16
	sealScryptN    = 1 << 15
	sealScryptR    = 8
	sealScryptP    = 1
	sealKeyLen     = 32
	sealMinBlobLen = 1 + sealSaltLen + 12 + 16
)

var ErrSealedKeyInvalid = errors.New("sealed key invalid or wrong passphrase")

func SealPrivateKey(privateKey []byte, passphrase string) ([]byte, error) {
	if len(privateKey) == 0 {
		return nil, errors.New("private key is required")
	}
	if passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	salt := make([]byte, sealSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	aead, err := sealAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	blob := make([]byte, 0, 1+len(salt)+len(nonce)+len(privateKey)+aead.Overhead())
	blob = append(blob, sealVersion)
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	return aead.Seal(blob, nonce, privateKey, nil), nil
}

func OpenPrivateKey(blob []byte, passphrase string) ([]byte, error) {
	if len(blob) < sealMinBlobLen {
		return nil, ErrSealedKeyInvalid
	}
	if blob[0] != sealVersion {
		return nil, fmt.Errorf("unsupported sealed key version: %d", blob[0])
	}
	salt := blob[1 : 1+sealSaltLen]
	aead, err := sealAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}
	rest := blob[1+sealSaltLen:]
	if len(rest) < aead.NonceSize() {
		return nil, ErrSealedKeyInvalid
	}
	nonce := rest[:aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, rest[aead.NonceSize():], nil)
	if err != nil {
		return nil, ErrSealedKeyInvalid
	}
	return plaintext, nil
}

func sealAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, sealScryptN, sealScryptR, sealScryptP, sealKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Wipe zeroes key material once a signing call is done with it.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
