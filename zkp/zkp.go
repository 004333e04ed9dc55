// Package zkp issues identity handles for wallet addresses and binds
// claims to them with deterministic proof artifacts.
package zkp

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/ttacon/chalk"

	"github.com/BitcoinSchema/go-zk-attest/types"
)

var (
	// ErrIdentityNotInitialized is returned by GenerateProof before CreateIdentity.
	ErrIdentityNotInitialized = errors.New("zkp: identity not initialized")
	ErrEmptyAddress           = errors.New("zkp: address is required")
)

const identityDomain = "go-zk-attest/identity/v1"

// identity is the secret material behind a handle. The secret never leaves
// the service; only the commitment is published.
type identity struct {
	address    string
	secret     common.Hash
	commitment common.Hash
	boundAt    time.Time
}

func newIdentity(address string) identity {
	secret := crypto.Keccak256Hash([]byte(identityDomain), []byte(types.NormalizeAddress(address)))
	return identity{
		address:    types.NormalizeAddress(address),
		secret:     secret,
		commitment: crypto.Keccak256Hash(secret.Bytes()),
		boundAt:    time.Now().UTC(),
	}
}

func (id identity) nullifierHash(externalNullifier string) common.Hash {
	return crypto.Keccak256Hash(id.secret.Bytes(), crypto.Keccak256([]byte(externalNullifier)))
}

// Service holds at most one bound identity.
type Service struct {
	mu       sync.RWMutex
	identity *identity
}

func NewService() *Service {
	return &Service{}
}

// CreateIdentity binds the service to address, replacing any previous
// binding. Binding the same address twice yields the same handle.
func (s *Service) CreateIdentity(ctx context.Context, address string) (types.Identity, error) {
	if err := ctx.Err(); err != nil {
		return types.Identity{}, err
	}
	if types.NormalizeAddress(address) == "" {
		return types.Identity{}, ErrEmptyAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity != nil && s.identity.address == types.NormalizeAddress(address) {
		return s.identity.public(), nil
	}
	id := newIdentity(address)
	s.identity = &id
	log.Printf("%s[INFO]: zk identity bound to %s%s", chalk.Cyan, id.address, chalk.Reset)
	return id.public(), nil
}

// Identity returns the bound handle, if any.
func (s *Service) Identity() (types.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return types.Identity{}, false
	}
	return s.identity.public(), true
}

// BoundTo reports whether the service is bound to address.
func (s *Service) BoundTo(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.identity.address == types.NormalizeAddress(address)
}

// GenerateProof binds signal and externalNullifier to the current identity.
func (s *Service) GenerateProof(ctx context.Context, signal, externalNullifier string) (Proof, error) {
	if err := ctx.Err(); err != nil {
		return Proof{}, err
	}
	s.mu.RLock()
	id := s.identity
	s.mu.RUnlock()
	if id == nil {
		return Proof{}, ErrIdentityNotInitialized
	}

	p := Proof{
		Commitment:    id.commitment,
		NullifierHash: id.nullifierHash(externalNullifier),
		SignalHash:    SignalHash(signal),
	}
	p.Digest = digest(p.Commitment, p.NullifierHash, p.SignalHash)
	return p, nil
}

// VerifyProof recomputes the binding of encoded to the identity of address
// for signal and externalNullifier. It is the offline check for a holder of
// the claim signal: the ledger only sees the proof hash and checks
// consistency with CheckProof, so it cannot confirm which recipient or
// claim a proof was made for.
func VerifyProof(encoded, address, signal, externalNullifier string) (bool, error) {
	p, err := DecodeProof(encoded)
	if err != nil {
		return false, err
	}
	id := newIdentity(address)
	return p.Consistent() &&
		sameHash(p.Commitment, id.commitment) &&
		sameHash(p.NullifierHash, id.nullifierHash(externalNullifier)) &&
		sameHash(p.SignalHash, SignalHash(signal)), nil
}

func (id identity) public() types.Identity {
	return types.Identity{
		Address:    id.address,
		Commitment: id.commitment.Hex(),
		BoundAt:    id.boundAt,
	}
}
