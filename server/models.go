package server

import (
	"github.com/BitcoinSchema/go-zk-attest/ledger"
	"github.com/BitcoinSchema/go-zk-attest/types"
)

// Response represents the standard API response format
// @Description Standard API response wrapper
type Response struct {
	// Status of the response ("OK" or "ERROR")
	Status string `json:"status" example:"OK"`
	// Optional error message
	Message string `json:"message,omitempty" example:"Operation completed successfully"`
	// Response payload
	Result interface{} `json:"result,omitempty"`
}

// ChallengeRequest asks for a sign-in challenge
// @Description Wallet address requesting a sign-in challenge
type ChallengeRequest struct {
	// Wallet address
	Address string `json:"address" example:"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"`
}

// ChallengeResponse carries the message the wallet must sign
// @Description Message to sign with personal_sign
type ChallengeResponse struct {
	Message string `json:"message"`
}

// SessionRequest completes a sign-in
// @Description Signed challenge
type SessionRequest struct {
	// Wallet address
	Address string `json:"address" example:"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"`
	// personal_sign signature over the challenge message
	Signature string `json:"signature" example:"0x5d1c...1b"`
}

// SessionResponse carries the bearer token for the connected wallet
// @Description Bearer token for the connected wallet
type SessionResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

// @Description Parameters for creating an attestation
type CreateAttestationRequest = types.CreateAttestationParams

// AttestationIDRequest identifies an attestation
// @Description Attestation id
type AttestationIDRequest struct {
	// Attestation id as assigned by the ledger
	Id string `json:"id" example:"9c1b6a0f5e7d4c3b2a190817263544536271809a0b1c2d3e4f5a6b7c8d9e0f1a"`
}

// AnchorResponse is a ledger record with its anchor transaction
// @Description Ledger record behind an attestation
type AnchorResponse struct {
	ledger.Record
	// Raw anchor transaction, hex encoded
	RawTx string `json:"rawTx"`
}
