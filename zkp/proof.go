package zkp

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// ErrMalformedProof is returned when an encoded proof cannot be decoded.
var ErrMalformedProof = errors.New("zkp: malformed proof")

const proofLen = 4 * common.HashLength

// Proof binds a signal and an external nullifier to an identity commitment.
//
//	Digest = keccak256(Commitment ‖ NullifierHash ‖ SignalHash)
type Proof struct {
	Commitment    common.Hash `json:"commitment"`
	NullifierHash common.Hash `json:"nullifierHash"`
	SignalHash    common.Hash `json:"signalHash"`
	Digest        common.Hash `json:"digest"`
}

// Encode returns the opaque 0x-hex artifact stored with attestations.
func (p Proof) Encode() string {
	buf := make([]byte, 0, proofLen)
	buf = append(buf, p.Commitment.Bytes()...)
	buf = append(buf, p.NullifierHash.Bytes()...)
	buf = append(buf, p.SignalHash.Bytes()...)
	buf = append(buf, p.Digest.Bytes()...)
	return "0x" + hex.EncodeToString(buf)
}

func (p Proof) String() string { return p.Encode() }

// Consistent reports whether Digest matches the other three fields.
func (p Proof) Consistent() bool {
	return p.Digest == digest(p.Commitment, p.NullifierHash, p.SignalHash)
}

// DecodeProof parses an artifact produced by Encode.
func DecodeProof(encoded string) (Proof, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(encoded), "0x"))
	if err != nil {
		return Proof{}, errors.Wrap(ErrMalformedProof, err.Error())
	}
	if len(raw) != proofLen {
		return Proof{}, errors.Wrapf(ErrMalformedProof, "length %d", len(raw))
	}
	return Proof{
		Commitment:    common.BytesToHash(raw[0:32]),
		NullifierHash: common.BytesToHash(raw[32:64]),
		SignalHash:    common.BytesToHash(raw[64:96]),
		Digest:        common.BytesToHash(raw[96:128]),
	}, nil
}

// CheckProof decodes encoded and reports whether it is internally consistent.
func CheckProof(encoded string) (bool, error) {
	p, err := DecodeProof(encoded)
	if err != nil {
		return false, err
	}
	return p.Consistent(), nil
}

// HashProof is the ledger fingerprint of an encoded proof.
func HashProof(encoded string) common.Hash {
	return crypto.Keccak256Hash([]byte(encoded))
}

// SignalHash hashes a signal the way GenerateProof does.
func SignalHash(signal string) common.Hash {
	return crypto.Keccak256Hash([]byte(signal))
}

func digest(commitment, nullifierHash, signalHash common.Hash) common.Hash {
	return crypto.Keccak256Hash(commitment.Bytes(), nullifierHash.Bytes(), signalHash.Bytes())
}

func sameHash(a, b common.Hash) bool {
	return bytes.Equal(a.Bytes(), b.Bytes())
}
