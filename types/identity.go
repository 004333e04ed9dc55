package types

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// {
//     "address": "0xabc0000000000000000000000000000000000001",
//     "commitment": "0x1f0c5e...",
//     "boundAt": "2026-10-17T09:12:40Z"
// }

// Identity is the zero-knowledge identity handle bound to a wallet address.
type Identity struct {
	Address    string    `json:"address" bson:"address"`
	Commitment string    `json:"commitment" bson:"commitment"`
	BoundAt    time.Time `json:"boundAt" bson:"boundAt"`
}

// Signer is the wallet that holds a ledger session.
type Signer struct {
	Address     string    `json:"address" bson:"address"`
	ConnectedAt time.Time `json:"connectedAt" bson:"connectedAt"`
}

// NormalizeAddress lower-cases and trims an address for comparison and hashing.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// SameAddress compares two identities case-insensitively.
func SameAddress(a, b string) bool {
	return a != "" && NormalizeAddress(a) == NormalizeAddress(b)
}

// IsWalletAddress reports whether address is a 20-byte hex account address.
func IsWalletAddress(address string) bool {
	return common.IsHexAddress(strings.TrimSpace(address))
}
