package ledger

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"

	"github.com/BitcoinSchema/go-zk-attest/database"
	"github.com/BitcoinSchema/go-zk-attest/types"
	"github.com/BitcoinSchema/go-zk-attest/zkp"
)

type fixedTip uint32

func (t fixedTip) Height() uint32 { return uint32(t) }

type LedgerTestSuite struct {
	suite.Suite

	newBook func() RecordBook

	ctx    context.Context
	book   RecordBook
	ledger *Service
	prover *zkp.Service
}

func (s *LedgerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.book = s.newBook()
	s.ledger = NewWithZKP(s.book, WithTipSource(fixedTip(871234)))
	s.prover = zkp.NewService()
	_, err := s.prover.CreateIdentity(s.ctx, "0xabc")
	s.Require().NoError(err)
}

func (s *LedgerTestSuite) proof(signal string) string {
	p, err := s.prover.GenerateProof(s.ctx, signal, "0xdef")
	s.Require().NoError(err)
	return p.Encode()
}

func (s *LedgerTestSuite) TestRequiresSession() {
	_, err := s.ledger.CreateAttestation(s.ctx, "0xdef", types.TypeGitHub, s.proof("a"))
	s.Require().True(errors.Is(err, ErrNotInitialized))

	_, err = s.ledger.VerifyAttestation(s.ctx, "missing", s.proof("a"))
	s.Require().True(errors.Is(err, ErrNotInitialized))

	s.Require().True(errors.Is(s.ledger.Connect(s.ctx, " "), ErrNotInitialized))
	_, ok := s.ledger.Signer()
	s.Require().False(ok)
}

func (s *LedgerTestSuite) TestVerifyWithSeparatorRecipient() {
	s.Require().NoError(s.ledger.Connect(s.ctx, "0xabc"))

	proof := s.proof("pipe")
	id, err := s.ledger.CreateAttestation(s.ctx, "|", types.TypeCustom, proof)
	s.Require().NoError(err)

	ok, err := s.ledger.VerifyAttestation(s.ctx, id, proof)
	s.Require().NoError(err)
	s.Require().True(ok)
}

func (s *LedgerTestSuite) TestCreateAndVerify() {
	s.Require().NoError(s.ledger.Connect(s.ctx, "0xABC"))
	s.Require().True(s.ledger.ConnectedAs("0xabc"))

	proof := s.proof("claim-1")
	id, err := s.ledger.CreateAttestation(s.ctx, "0xdef", types.TypeGitHub, proof)
	s.Require().NoError(err)
	s.Require().Len(id, 64)

	ok, err := s.ledger.VerifyAttestation(s.ctx, id, proof)
	s.Require().NoError(err)
	s.Require().True(ok)

	ok, err = s.ledger.VerifyAttestation(s.ctx, id, s.proof("claim-2"))
	s.Require().NoError(err)
	s.Require().False(ok)

	rec, err := s.ledger.Record(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Equal(uint32(871234), rec.Block)
	s.Require().Equal(types.TypeGitHub, rec.Type)
	s.Require().Equal("0xdef", rec.Recipient)
	s.Require().Equal(uint64(0), rec.Sequence)
}

func (s *LedgerTestSuite) TestUnknownClaim() {
	s.Require().NoError(s.ledger.Connect(s.ctx, "0xabc"))
	_, err := s.ledger.VerifyAttestation(s.ctx, "feedface", s.proof("x"))
	s.Require().True(errors.Is(err, ErrClaimNotFound))
}

func (s *LedgerTestSuite) TestIdsAreUniqueAndChained() {
	s.Require().NoError(s.ledger.Connect(s.ctx, "0xabc"))

	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 5; i++ {
		id, err := s.ledger.CreateAttestation(s.ctx, "0xdef", types.TypeCustom, s.proof(time.Now().String()+string(rune('a'+i))))
		s.Require().NoError(err)
		s.Require().False(seen[id])
		seen[id] = true

		rec, err := s.ledger.Record(s.ctx, id)
		s.Require().NoError(err)
		s.Require().Equal(prev, rec.PrevId)
		s.Require().Equal(uint64(i), rec.Sequence)
		prev = id
	}
}

func (s *LedgerTestSuite) TestRejectsReplayedProof() {
	s.Require().NoError(s.ledger.Connect(s.ctx, "0xabc"))
	proof := s.proof("once")

	_, err := s.ledger.CreateAttestation(s.ctx, "0xdef", types.TypeCustom, proof)
	s.Require().NoError(err)
	_, err = s.ledger.CreateAttestation(s.ctx, "0x123", types.TypeCustom, proof)
	s.Require().True(errors.Is(err, ErrProofReplayed))

	_, err = s.ledger.CreateAttestation(s.ctx, "0x123", types.TypeCustom, "")
	s.Require().True(errors.Is(err, ErrEmptyProof))
}

func (s *LedgerTestSuite) TestInconsistentProofIsRejected() {
	s.Require().NoError(s.ledger.Connect(s.ctx, "0xabc"))

	p, err := s.prover.GenerateProof(s.ctx, "claim", "0xdef")
	s.Require().NoError(err)
	p.SignalHash = zkp.SignalHash("forged")
	forged := p.Encode()

	id, err := s.ledger.CreateAttestation(s.ctx, "0xdef", types.TypeCustom, forged)
	s.Require().NoError(err)

	ok, err := s.ledger.VerifyAttestation(s.ctx, id, forged)
	s.Require().NoError(err)
	s.Require().False(ok)
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, &LedgerTestSuite{newBook: func() RecordBook { return NewMemoryBook() }})
}

// Runs the same suite against MongoDB when ATTEST_TEST_MONGO_URL is set.
func TestLedgerMongoTestSuite(t *testing.T) {
	uri := os.Getenv("ATTEST_TEST_MONGO_URL")
	if uri == "" {
		t.Skip("ATTEST_TEST_MONGO_URL not set")
	}
	ctx := context.Background()
	conn, err := database.Connect(ctx, uri)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(ctx)

	db := conn.Database(fmt.Sprintf("attest_test_%d", time.Now().UnixNano()))
	defer db.Drop(ctx)

	n := 0
	suite.Run(t, &LedgerTestSuite{newBook: func() RecordBook {
		n++
		book, err := NewMongoBook(ctx, db.Collection(fmt.Sprintf("records_%d", n)))
		if err != nil {
			t.Fatal(err)
		}
		return book
	}})
}
