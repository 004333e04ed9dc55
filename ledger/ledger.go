// Package ledger anchors attestation claims and answers verify queries. It
// assigns attestation ids and is the only component that decides whether a
// proof matches a recorded claim.
package ledger

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/ttacon/chalk"

	"github.com/BitcoinSchema/go-zk-attest/types"
	"github.com/BitcoinSchema/go-zk-attest/zkp"
)

var (
	// ErrNotInitialized is returned when no signer session exists.
	ErrNotInitialized = errors.New("ledger: not initialized")
	ErrClaimNotFound  = errors.New("ledger: claim not found")
	// ErrProofReplayed is returned when a proof is anchored twice.
	ErrProofReplayed = errors.New("ledger: proof already anchored")
	ErrEmptyProof    = errors.New("ledger: proof is required")
)

// ProofChecker validates the internal consistency of an encoded proof.
type ProofChecker func(encoded string) (bool, error)

type Option func(*Service)

// WithTipSource stamps anchors with the chain height reported by tip.
func WithTipSource(tip TipSource) Option {
	return func(s *Service) { s.tip = tip }
}

// WithProofChecker makes VerifyAttestation reject inconsistent proofs.
func WithProofChecker(check ProofChecker) Option {
	return func(s *Service) { s.check = check }
}

// Service is the ledger. Anchors are appended one at a time.
type Service struct {
	book  RecordBook
	tip   TipSource
	check ProofChecker
	now   func() time.Time

	mu     sync.Mutex
	signer *types.Signer
}

func New(book RecordBook, opts ...Option) *Service {
	s := &Service{
		book: book,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWithZKP returns a ledger that checks proofs with the zkp package.
func NewWithZKP(book RecordBook, opts ...Option) *Service {
	return New(book, append([]Option{WithProofChecker(zkp.CheckProof)}, opts...)...)
}

// Connect opens a session for signer, replacing the current one.
func (s *Service) Connect(ctx context.Context, signer string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(signer) == "" {
		return errors.Wrap(ErrNotInitialized, "signer is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signer = &types.Signer{Address: strings.TrimSpace(signer), ConnectedAt: s.now()}
	return nil
}

// Signer returns the connected signer.
func (s *Service) Signer() (types.Signer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signer == nil {
		return types.Signer{}, false
	}
	return *s.signer, true
}

// ConnectedAs reports whether the session belongs to address.
func (s *Service) ConnectedAs(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signer != nil && types.SameAddress(s.signer.Address, address)
}

// CreateAttestation anchors a pending claim by the connected signer and
// returns its id.
func (s *Service) CreateAttestation(ctx context.Context, recipient string, t types.AttestationType, proof string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(proof) == "" {
		return "", ErrEmptyProof
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signer == nil {
		return "", ErrNotInitialized
	}

	proofHash := proofHashHex(zkp.HashProof(proof).Bytes())
	if replayed, err := s.book.HasProofHash(ctx, proofHash); err != nil {
		return "", err
	} else if replayed {
		return "", ErrProofReplayed
	}

	sequence, err := s.book.CountByIssuer(ctx, s.signer.Address)
	if err != nil {
		return "", err
	}
	prevID := ""
	if last, err := s.book.Last(ctx); err != nil {
		return "", err
	} else if last != nil {
		prevID = last.Id
	}

	tx, err := buildAnchor(prevID, anchor{
		ProofHash: proofHash,
		Sequence:  sequence,
		Issuer:    types.NormalizeAddress(s.signer.Address),
		Recipient: recipient,
		Type:      t,
	})
	if err != nil {
		return "", err
	}

	rec := &Record{
		Id:         tx.TxID(),
		Issuer:     s.signer.Address,
		Recipient:  recipient,
		Type:       t,
		ProofHash:  proofHash,
		Sequence:   sequence,
		PrevId:     prevID,
		RawTx:      tx.Bytes(),
		RecordedAt: s.now(),
	}
	if s.tip != nil {
		rec.Block = s.tip.Height()
	}
	if err := s.book.Insert(ctx, rec); err != nil {
		return "", err
	}

	log.Printf("%s[INFO]: anchored %s claim %s for %s (seq %d)%s", chalk.Cyan, t, rec.Id, recipient, sequence, chalk.Reset)
	return rec.Id, nil
}

// VerifyAttestation reports whether proof matches the claim anchored as id.
func (s *Service) VerifyAttestation(ctx context.Context, id, proof string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, ok := s.Signer(); !ok {
		return false, ErrNotInitialized
	}

	rec, err := s.book.Get(ctx, id)
	if err != nil {
		return false, err
	}

	a, err := decodeAnchor(rec.RawTx)
	if err != nil {
		log.Printf("%s[ERROR]: anchor %s: %v%s", chalk.Red, id, err, chalk.Reset)
		return false, nil
	}
	if a.ProofHash != rec.ProofHash || a.Recipient != rec.Recipient || a.Type != rec.Type {
		return false, nil
	}
	if a.ProofHash != proofHashHex(zkp.HashProof(proof).Bytes()) {
		return false, nil
	}
	if s.check != nil {
		ok, err := s.check(proof)
		if err != nil || !ok {
			return false, nil
		}
	}
	return true, nil
}

// Record returns the anchored record for id.
func (s *Service) Record(ctx context.Context, id string) (*Record, error) {
	return s.book.Get(ctx, id)
}
