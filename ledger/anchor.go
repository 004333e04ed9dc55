package ledger

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/bitcoinschema/go-bap"
	"github.com/bitcoinschema/go-bob"
	"github.com/libsv/go-bt/v2"
	"github.com/libsv/go-bt/v2/bscript"
	"github.com/pkg/errors"

	"github.com/BitcoinSchema/go-zk-attest/types"
)

// RecordPrefix tags the recipient/type record that follows the BAP ATTEST
// record in an anchor output.
const RecordPrefix = "zkattest"

// genesisTxID is referenced by the first anchor of a ledger.
const genesisTxID = "0000000000000000000000000000000000000000000000000000000000000000"

// opFalseOpReturn is the locking script of every anchor output.
const opFalseOpReturn = "006a"

var ErrMalformedAnchor = errors.New("ledger: malformed anchor")

// anchor is what an anchor transaction carries.
type anchor struct {
	ProofHash string
	Sequence  uint64
	Issuer    string
	Recipient string
	Type      types.AttestationType
}

// buildAnchor creates the anchor transaction for a claim. It spends the
// previous anchor output so anchors form a chain, and carries
//
//	OP_FALSE OP_RETURN <BAP prefix> ATTEST <proof hash> <sequence> | zkattest <recipient> <type> <issuer>
//
// Recipient, type and issuer are caller supplied and pushed hex encoded, so
// a value such as "|" cannot split the tape.
//
// The transaction is never broadcast; its txid is the attestation id.
func buildAnchor(prevTxID string, a anchor) (*bt.Tx, error) {
	if prevTxID == "" {
		prevTxID = genesisTxID
	}

	tx := bt.NewTx()
	if err := tx.From(prevTxID, 0, opFalseOpReturn, 0); err != nil {
		return nil, errors.Wrap(err, "anchor input")
	}
	unlocking := &bscript.Script{}
	if err := unlocking.AppendPushData([]byte(a.Issuer)); err != nil {
		return nil, errors.Wrap(err, "anchor unlocking script")
	}
	tx.Inputs[0].UnlockingScript = unlocking

	parts := [][]byte{
		[]byte(bap.Prefix),
		[]byte(bap.ATTEST),
		[]byte(a.ProofHash),
		[]byte(strconv.FormatUint(a.Sequence, 10)),
		[]byte("|"),
		[]byte(RecordPrefix),
		[]byte(hex.EncodeToString([]byte(a.Recipient))),
		[]byte(hex.EncodeToString([]byte(a.Type))),
		[]byte(hex.EncodeToString([]byte(a.Issuer))),
	}
	if err := tx.AddOpReturnPartsOutput(parts); err != nil {
		return nil, errors.Wrap(err, "anchor output")
	}
	return tx, nil
}

// decodeAnchor reads the claim back out of a raw anchor transaction.
func decodeAnchor(rawtx []byte) (*anchor, error) {
	if len(rawtx) == 0 {
		return nil, errors.Wrap(ErrMalformedAnchor, "empty transaction")
	}
	t, err := bt.NewTxFromBytes(rawtx)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedAnchor, err.Error())
	}
	bobTx, err := bob.NewFromTx(t)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedAnchor, err.Error())
	}

	var found *anchor
	for _, out := range bobTx.Out {
		var a *anchor
		for index, tape := range out.Tape {
			if len(tape.Cell) == 0 || tape.Cell[0].S == nil {
				continue
			}
			switch *tape.Cell[0].S {
			case bap.Prefix:
				bapOut, err := bap.NewFromTape(&out.Tape[index])
				if err != nil || bapOut.Type != bap.ATTEST {
					a = nil
					continue
				}
				a = &anchor{ProofHash: bapOut.URNHash, Sequence: bapOut.Sequence}
			case RecordPrefix:
				if a == nil || len(tape.Cell) < 4 {
					a = nil
					continue
				}
				fields := make([]string, 0, 3)
				for _, cell := range tape.Cell[1:4] {
					raw, err := hex.DecodeString(cellString(cell.S))
					if err != nil {
						break
					}
					fields = append(fields, string(raw))
				}
				if len(fields) != 3 {
					a = nil
					continue
				}
				a.Recipient = fields[0]
				a.Type = types.AttestationType(fields[1])
				a.Issuer = fields[2]
				found = a
				a = nil
			default:
				a = nil
			}
		}
	}
	if found == nil {
		return nil, errors.Wrap(ErrMalformedAnchor, "no attestation record")
	}
	return found, nil
}

func cellString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// proofHashHex is the form the proof hash takes inside the BAP record.
func proofHashHex(b []byte) string {
	return strings.ToLower(hex.EncodeToString(b))
}
