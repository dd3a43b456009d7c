package domain

import "time"

type VerificationResult string

const (
	VerificationValid    VerificationResult = "valid"
	VerificationInvalid  VerificationResult = "invalid"
	VerificationRevoked  VerificationResult = "revoked"
	VerificationExpired  VerificationResult = "expired"
	VerificationMismatch VerificationResult = "mismatch"
	VerificationUnknown  VerificationResult = "unknown"
)

// VerificationRecord is an append-only trace of a live verification attempt.
// One is written per attempt regardless of outcome.
type VerificationRecord struct {
	ID            string
	CertificateID string
	AgentID       string
	OrgID         string
	Context       map[string]any
	Result        VerificationResult
	Detail        string
	DurationMs    int64
	CreatedAt     time.Time
}

// ProbeTarget names the claimed identity a live verification checks.
type ProbeTarget struct {
	AgentID      string
	AgentVersion string
	OrgID        string
	Context      map[string]any
}

// LiveState is what the external probe reports about a running agent.
type LiveState struct {
	AgentID          string `json:"agent_id"`
	AgentVersion     string `json:"agent_version"`
	GoldenThreadAlg  string `json:"golden_thread_alg"`
	GoldenThreadHash string `json:"golden_thread_hash"`
	Runtime          string `json:"runtime,omitempty"`
}
