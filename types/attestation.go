package types

import (
	"strings"
	"time"
)

// {
// "id": "5f0e6b5c1a9f6a7bcf2d1a4b1e2b0c4d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b",
// "type": "github",
// "name": "Contributor",
// "issuer": "0xabc0000000000000000000000000000000000001",
// "recipient": "0xABC0000000000000000000000000000000000001",
// "timestamp": "2026-10-17T09:12:44Z",
// "status": "pending",
// "metadata": { "username": "octocat" },
// "proof": "0x6a1f...e93c"
// }

type AttestationType string

const (
	TypeGitHub  AttestationType = "github"
	TypeTwitter AttestationType = "twitter"
	TypeDiscord AttestationType = "discord"
	TypeCustom  AttestationType = "custom"
)

// AttestationTypes lists every supported attestation type.
var AttestationTypes = []AttestationType{TypeGitHub, TypeTwitter, TypeDiscord, TypeCustom}

// ParseAttestationType returns the type for tag, or false when tag is not
// one of the supported types.
func ParseAttestationType(tag string) (AttestationType, bool) {
	for _, t := range AttestationTypes {
		if string(t) == tag {
			return t, true
		}
	}
	return "", false
}

func (t AttestationType) Valid() bool {
	_, ok := ParseAttestationType(string(t))
	return ok
}

type AttestationStatus string

const (
	StatusPending  AttestationStatus = "pending"
	StatusVerified AttestationStatus = "verified"
	StatusRejected AttestationStatus = "rejected"
)

// Terminal reports whether no further status transition is allowed.
func (s AttestationStatus) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

type Attestation struct {
	Id        string                 `json:"id" bson:"_id"`
	Type      AttestationType        `json:"type" bson:"type"`
	Name      string                 `json:"name" bson:"name"`
	Issuer    string                 `json:"issuer" bson:"issuer"`
	Recipient string                 `json:"recipient" bson:"recipient"`
	Timestamp time.Time              `json:"timestamp" bson:"timestamp"`
	Status    AttestationStatus      `json:"status" bson:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Proof     string                 `json:"proof,omitempty" bson:"proof,omitempty"`
}

// Involves reports whether address is the issuer or the recipient, ignoring case.
func (a *Attestation) Involves(address string) bool {
	if address == "" {
		return false
	}
	return strings.EqualFold(a.Issuer, address) || strings.EqualFold(a.Recipient, address)
}

// Clone returns a copy that shares no mutable state with a.
func (a Attestation) Clone() Attestation {
	a.Metadata = CloneMetadata(a.Metadata)
	return a
}

type CreateAttestationParams struct {
	Type      AttestationType        `json:"type"`
	Name      string                 `json:"name"`
	Recipient string                 `json:"recipient"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AttestationStats summarises the attestations that involve an address.
type AttestationStats struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
}

// CloneMetadata deep copies nested maps and slices so callers cannot reach
// into stored records.
func CloneMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return CloneMetadata(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// MetadataString returns metadata[key] when it is a non-blank string.
func MetadataString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
