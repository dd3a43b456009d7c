package domain

// PolicyInput is the document handed to the issuance policy engine for a
// signing request.
type PolicyInput struct {
	Agent Agent           `json:"agent"`
	Org   Org             `json:"org"`
	Level ComplianceLevel `json:"level"`
}

type PolicyResult struct {
	Allow bool     `json:"allow"`
	Deny  []string `json:"deny"`
}

type PolicyEvaluation struct {
	BundleID   string
	BundleHash string
	Result     PolicyResult
}
