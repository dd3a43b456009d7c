package domain

import "time"

type Revocation struct {
	ID            string
	CertificateID string
	Reason        string
	RevokedBy     string
	IncidentID    string
	RevokedAt     time.Time
	CreatedAt     time.Time
}
