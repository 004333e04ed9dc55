// Package attestation creates, lists and verifies attestations by composing
// the data-source connectors, the zkp service and the ledger.
package attestation

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/ttacon/chalk"

	"github.com/BitcoinSchema/go-zk-attest/datasource"
	"github.com/BitcoinSchema/go-zk-attest/metrics"
	"github.com/BitcoinSchema/go-zk-attest/types"
	"github.com/BitcoinSchema/go-zk-attest/zkp"
)

// Prover is the zero-knowledge side of attestation creation.
type Prover interface {
	CreateIdentity(ctx context.Context, address string) (types.Identity, error)
	BoundTo(address string) bool
	GenerateProof(ctx context.Context, signal, externalNullifier string) (zkp.Proof, error)
}

// Ledger records claims and decides verification outcomes.
type Ledger interface {
	Connect(ctx context.Context, signer string) error
	ConnectedAs(address string) bool
	CreateAttestation(ctx context.Context, recipient string, t types.AttestationType, proof string) (string, error)
	VerifyAttestation(ctx context.Context, id, proof string) (bool, error)
}

// Service owns the attestation collection.
type Service struct {
	connectors datasource.Registry
	prover     Prover
	ledger     Ledger
	now        func() time.Time
	nonce      func() string

	store *store

	// signerMu serializes identity binding, proving and anchoring, since the
	// prover and ledger each hold a single binding.
	signerMu sync.Mutex

	flightMu  sync.Mutex
	creating  map[string]struct{}
	verifying map[string]struct{}
}

func New(connectors datasource.Registry, prover Prover, ledger Ledger) *Service {
	return &Service{
		connectors: connectors,
		prover:     prover,
		ledger:     ledger,
		now:        func() time.Time { return time.Now().UTC() },
		nonce:      uuid.NewString,
		store:      newStore(),
		creating:   map[string]struct{}{},
		verifying:  map[string]struct{}{},
	}
}

// claim is the serialized statement a proof signs over.
type claim struct {
	Type      types.AttestationType  `json:"type"`
	Name      string                 `json:"name"`
	Issuer    string                 `json:"issuer"`
	Recipient string                 `json:"recipient"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Nonce     string                 `json:"nonce"`
}

// Create verifies, proves and anchors a new claim by issuer. Nothing is
// stored unless every step succeeds.
func (s *Service) Create(ctx context.Context, issuer string, params types.CreateAttestationParams) (types.Attestation, error) {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return types.Attestation{}, ErrNotConnected
	}
	if !params.Type.Valid() {
		return types.Attestation{}, errors.Wrapf(ErrInvalidType, "%q", params.Type)
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return types.Attestation{}, errors.Wrap(ErrInvalidParams, "name is required")
	}
	recipient := strings.TrimSpace(params.Recipient)
	if recipient == "" {
		return types.Attestation{}, errors.Wrap(ErrInvalidParams, "recipient is required")
	}

	key := strings.Join([]string{types.NormalizeAddress(issuer), string(params.Type), types.NormalizeAddress(recipient), name}, "|")
	if !s.begin(s.creating, key) {
		return types.Attestation{}, ErrAlreadyInProgress
	}
	defer s.end(s.creating, key)

	if err := s.checkDataSource(ctx, params.Type, params.Metadata); err != nil {
		metrics.AttestationCreateFailures.WithLabelValues(string(params.Type), "datasource").Inc()
		return types.Attestation{}, err
	}

	a := types.Attestation{
		Type:      params.Type,
		Name:      name,
		Issuer:    issuer,
		Recipient: recipient,
		Timestamp: s.now(),
		Status:    types.StatusPending,
		Metadata:  types.CloneMetadata(params.Metadata),
	}

	id, proof, err := s.proveAndAnchor(ctx, a)
	if err != nil {
		return types.Attestation{}, err
	}
	a.Id = id
	a.Proof = proof

	if !s.store.add(a) {
		metrics.AttestationCreateFailures.WithLabelValues(string(params.Type), "store").Inc()
		return types.Attestation{}, errors.Errorf("attestation: ledger returned duplicate id %s", id)
	}
	metrics.AttestationsCreated.WithLabelValues(string(a.Type)).Inc()
	metrics.AttestationsStored.Set(float64(s.store.len()))
	log.Printf("%s[INFO]: created %s attestation %s (%s -> %s)%s", chalk.Green, a.Type, a.Id, a.Issuer, a.Recipient, chalk.Reset)
	return a.Clone(), nil
}

func (s *Service) checkDataSource(ctx context.Context, t types.AttestationType, metadata map[string]interface{}) error {
	conn, ok := s.connectors.Lookup(t)
	if !ok {
		return nil
	}
	start := time.Now()
	verified, err := conn.Verify(ctx, types.CloneMetadata(metadata))
	metrics.ConnectorVerifyTime.WithLabelValues(conn.Name()).Observe(time.Since(start).Seconds())
	if err != nil || !verified {
		log.Printf("%s[WARN]: %s data source rejected claim: %v%s", chalk.Yellow, t, err, chalk.Reset)
		return &DataSourceVerificationFailedError{Type: t, Err: err}
	}
	return nil
}

func (s *Service) proveAndAnchor(ctx context.Context, a types.Attestation) (string, string, error) {
	signal, err := json.Marshal(claim{
		Type:      a.Type,
		Name:      a.Name,
		Issuer:    types.NormalizeAddress(a.Issuer),
		Recipient: types.NormalizeAddress(a.Recipient),
		Metadata:  a.Metadata,
		Timestamp: a.Timestamp,
		Nonce:     s.nonce(),
	})
	if err != nil {
		metrics.AttestationCreateFailures.WithLabelValues(string(a.Type), "encode").Inc()
		return "", "", errors.Wrap(err, "encoding claim")
	}

	s.signerMu.Lock()
	defer s.signerMu.Unlock()

	if !s.prover.BoundTo(a.Issuer) {
		if _, err := s.prover.CreateIdentity(ctx, a.Issuer); err != nil {
			metrics.AttestationCreateFailures.WithLabelValues(string(a.Type), "identity").Inc()
			return "", "", err
		}
	}
	proof, err := s.prover.GenerateProof(ctx, string(signal), types.NormalizeAddress(a.Recipient))
	if err != nil {
		metrics.AttestationCreateFailures.WithLabelValues(string(a.Type), "proof").Inc()
		return "", "", err
	}
	encoded := proof.Encode()

	if !s.ledger.ConnectedAs(a.Issuer) {
		if err := s.ledger.Connect(ctx, a.Issuer); err != nil {
			metrics.AttestationCreateFailures.WithLabelValues(string(a.Type), "ledger").Inc()
			return "", "", err
		}
	}
	id, err := s.ledger.CreateAttestation(ctx, a.Recipient, a.Type, encoded)
	if err != nil {
		metrics.AttestationCreateFailures.WithLabelValues(string(a.Type), "ledger").Inc()
		return "", "", err
	}
	if id == "" || s.store.has(id) {
		metrics.AttestationCreateFailures.WithLabelValues(string(a.Type), "ledger").Inc()
		return "", "", errors.Errorf("attestation: ledger returned unusable id %q", id)
	}
	return id, encoded, nil
}

// List returns the attestations issued by or to address, oldest first.
func (s *Service) List(address string) []types.Attestation {
	address = strings.TrimSpace(address)
	if address == "" {
		return []types.Attestation{}
	}
	return s.store.filter(func(a *types.Attestation) bool { return a.Involves(address) })
}

// Get returns a single attestation.
func (s *Service) Get(id string) (types.Attestation, error) {
	a, ok := s.store.get(id)
	if !ok {
		return types.Attestation{}, errors.Wrap(ErrNotFound, id)
	}
	return a, nil
}

// Verify asks the ledger to check the stored proof and settles the status.
// Settled attestations are returned unchanged without asking the ledger.
func (s *Service) Verify(ctx context.Context, id string) (types.Attestation, error) {
	a, ok := s.store.get(id)
	if !ok {
		return types.Attestation{}, errors.Wrap(ErrNotFound, id)
	}
	if a.Status.Terminal() {
		return a, nil
	}

	if !s.begin(s.verifying, id) {
		return types.Attestation{}, ErrAlreadyInProgress
	}
	defer s.end(s.verifying, id)

	valid, err := s.ledger.VerifyAttestation(ctx, id, a.Proof)
	if err != nil {
		return types.Attestation{}, err
	}

	status := types.StatusRejected
	if valid {
		status = types.StatusVerified
	}
	settled, _ := s.store.settle(id, status)
	metrics.AttestationsSettled.WithLabelValues(string(settled.Status)).Inc()
	log.Printf("%s[INFO]: attestation %s %s%s", chalk.Cyan, id, settled.Status, chalk.Reset)
	return settled, nil
}

// Stats counts the attestations involving address by status.
func (s *Service) Stats(address string) types.AttestationStats {
	stats := types.AttestationStats{}
	for _, a := range s.List(address) {
		stats.Total++
		switch a.Status {
		case types.StatusVerified:
			stats.Verified++
		case types.StatusPending:
			stats.Pending++
		case types.StatusRejected:
			stats.Rejected++
		}
	}
	return stats
}

// Len is the number of stored attestations.
func (s *Service) Len() int {
	return s.store.len()
}

func (s *Service) begin(set map[string]struct{}, key string) bool {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if _, busy := set[key]; busy {
		return false
	}
	set[key] = struct{}{}
	return true
}

func (s *Service) end(set map[string]struct{}, key string) {
	s.flightMu.Lock()
	delete(set, key)
	s.flightMu.Unlock()
}
