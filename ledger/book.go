package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/BitcoinSchema/go-zk-attest/types"
)

// ErrDuplicateRecord is returned when a record id is already taken.
var ErrDuplicateRecord = errors.New("ledger: duplicate record")

// {
// "_id": "9c1b...e0",
// "issuer": "0xabc...",
// "recipient": "0xabc...",
// "type": "github",
// "proofHash": "5d2f...",
// "sequence": 3,
// "prevId": "77aa...",
// "rawTx": <binary>,
// "block": 871234,
// "recordedAt": "2026-10-17T09:12:44Z"
// }

// Record is one anchored claim, the equivalent of an AttestationCreated event.
type Record struct {
	Id         string                `json:"id" bson:"_id"`
	Issuer     string                `json:"issuer" bson:"issuer"`
	Recipient  string                `json:"recipient" bson:"recipient"`
	Type       types.AttestationType `json:"type" bson:"type"`
	ProofHash  string                `json:"proofHash" bson:"proofHash"`
	Sequence   uint64                `json:"sequence" bson:"sequence"`
	PrevId     string                `json:"prevId" bson:"prevId"`
	RawTx      []byte                `json:"-" bson:"rawTx"`
	Block      uint32                `json:"block" bson:"block"`
	RecordedAt time.Time             `json:"recordedAt" bson:"recordedAt"`
}

// RecordBook stores anchored records.
type RecordBook interface {
	Insert(ctx context.Context, rec *Record) error
	// Get returns ErrClaimNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Record, error)
	// Last returns the most recently inserted record, or nil when empty.
	Last(ctx context.Context) (*Record, error)
	HasProofHash(ctx context.Context, proofHash string) (bool, error)
	CountByIssuer(ctx context.Context, issuer string) (uint64, error)
}

// MemoryBook keeps records for the lifetime of the process.
type MemoryBook struct {
	mu       sync.RWMutex
	records  map[string]*Record
	order    []string
	proofs   map[string]struct{}
	byIssuer map[string]uint64
}

func NewMemoryBook() *MemoryBook {
	return &MemoryBook{
		records:  map[string]*Record{},
		proofs:   map[string]struct{}{},
		byIssuer: map[string]uint64{},
	}
}

func (b *MemoryBook) Insert(_ context.Context, rec *Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[rec.Id]; ok {
		return errors.Wrap(ErrDuplicateRecord, rec.Id)
	}
	cp := *rec
	cp.RawTx = append([]byte(nil), rec.RawTx...)
	b.records[rec.Id] = &cp
	b.order = append(b.order, rec.Id)
	b.proofs[rec.ProofHash] = struct{}{}
	b.byIssuer[types.NormalizeAddress(rec.Issuer)]++
	return nil
}

func (b *MemoryBook) Get(_ context.Context, id string) (*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.records[id]
	if !ok {
		return nil, errors.Wrap(ErrClaimNotFound, id)
	}
	cp := *rec
	return &cp, nil
}

func (b *MemoryBook) Last(_ context.Context) (*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.order) == 0 {
		return nil, nil
	}
	cp := *b.records[b.order[len(b.order)-1]]
	return &cp, nil
}

func (b *MemoryBook) HasProofHash(_ context.Context, proofHash string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.proofs[proofHash]
	return ok, nil
}

func (b *MemoryBook) CountByIssuer(_ context.Context, issuer string) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.byIssuer[types.NormalizeAddress(issuer)], nil
}
