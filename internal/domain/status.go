package domain

import "time"

// CertStatus is the answer to an OCSP-style query. Precedence when several
// apply: revoked > expired > unknown > good.
type CertStatus string

const (
	CertGood    CertStatus = "good"
	CertRevoked CertStatus = "revoked"
	CertExpired CertStatus = "expired"
	CertUnknown CertStatus = "unknown"
)

type SingleResponse struct {
	CertificateID    string     `json:"certificate_id"`
	Status           CertStatus `json:"status"`
	ThisUpdate       time.Time  `json:"this_update"`
	NextUpdate       time.Time  `json:"next_update"`
	RevocationTime   *time.Time `json:"revocation_time,omitempty"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
}

// StatusResponse is a signed batch of single responses. Wire framing belongs
// to the transport layer; the signature covers the canonical JSON encoding of
// the responses slice.
type StatusResponse struct {
	Responses      []SingleResponse `json:"responses"`
	ProducedAt     time.Time        `json:"produced_at"`
	SignatureAlg   string           `json:"signature_alg"`
	SignatureKeyID string           `json:"signature_key_id"`
	Signature      []byte           `json:"signature"`
}

// OCSPCacheEntry is the single live cache row for a certificate, valid only
// within [ThisUpdate, NextUpdate).
type OCSPCacheEntry struct {
	CertificateID string
	Response      SingleResponse
	ProducedAt    time.Time
	ThisUpdate    time.Time
	NextUpdate    time.Time
}

func (e OCSPCacheEntry) ValidAt(now time.Time) bool {
	return !now.Before(e.ThisUpdate) && now.Before(e.NextUpdate)
}
