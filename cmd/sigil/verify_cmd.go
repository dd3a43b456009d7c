package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	cryptoinfra "sigil/internal/infra/crypto"
	"sigil/pkg/credential"
)

type verifyOutput struct {
	SignatureValid bool   `json:"signature_valid"`
	HashValid      bool   `json:"hash_valid"`
	Expired        bool   `json:"expired"`
	CertificateID  string `json:"certificate_id"`
	Level          string `json:"level,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var pubHex string
	var pubBase64 string
	var outPath string
	fs.StringVar(&inPath, "in", "", "certificate document JSON path")
	fs.StringVar(&pubHex, "pubkey-hex", "", "CA public key hex (PKIX)")
	fs.StringVar(&pubBase64, "pubkey-base64", "", "CA public key base64 (PKIX)")
	fs.StringVar(&outPath, "out", "", "output JSON path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "verify requires --in")
		return 1
	}
	if (pubHex == "" && pubBase64 == "") || (pubHex != "" && pubBase64 != "") {
		fmt.Fprintln(os.Stderr, "verify requires exactly one of --pubkey-hex or --pubkey-base64")
		return 1
	}

	docBytes, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read document: %v\n", err)
		return 1
	}
	var doc credential.Document
	if err := json.Unmarshal(docBytes, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "decode document: %v\n", err)
		return 1
	}

	pubKey, err := parsePublicKey(pubHex, pubBase64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse public key: %v\n", err)
		return 1
	}

	result, err := credential.Verify(doc, credential.VerifyOptions{PublicKey: pubKey})
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify document: %v\n", err)
		return 1
	}

	output := verifyOutput{
		SignatureValid: result.SignatureValid,
		HashValid:      result.HashValid,
		Expired:        result.Expired,
		CertificateID:  result.CertificateID,
		Level:          result.Level,
	}
	if !result.ExpiresAt.IsZero() {
		output.ExpiresAt = result.ExpiresAt.Format(time.RFC3339)
	}

	payload, err := cryptoinfra.CanonicalizeAny(output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	if !result.SignatureValid || !result.HashValid {
		return 2
	}
	return 0
}

func parsePublicKey(hexValue, b64Value string) ([]byte, error) {
	if hexValue != "" {
		return credential.ParsePublicKeyHex(hexValue)
	}
	if b64Value != "" {
		return credential.ParsePublicKeyBase64(b64Value)
	}
	return nil, errors.New("public key is required")
}
