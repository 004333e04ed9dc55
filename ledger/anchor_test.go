package ledger

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/BitcoinSchema/go-zk-attest/types"
)

func TestAnchorRoundTrip(t *testing.T) {
	in := anchor{
		ProofHash: "5d2f8c0e1b7a4c6d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d",
		Sequence:  7,
		Issuer:    "0xabc",
		Recipient: "0xDEF",
		Type:      types.TypeDiscord,
	}

	tx, err := buildAnchor("", in)
	require.NoError(t, err)
	require.Len(t, tx.TxID(), 64)
	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.Outputs, 1)

	out, err := decodeAnchor(tx.Bytes())
	require.NoError(t, err)
	require.Equal(t, in, *out)
}

func TestAnchorsChainToPrevious(t *testing.T) {
	a := anchor{ProofHash: "aa", Issuer: "0xabc", Recipient: "0xdef", Type: types.TypeCustom}

	first, err := buildAnchor("", a)
	require.NoError(t, err)
	second, err := buildAnchor(first.TxID(), a)
	require.NoError(t, err)

	require.NotEqual(t, first.TxID(), second.TxID())
	require.Equal(t, first.TxID(), second.Inputs[0].PreviousTxIDStr())
}

func TestDecodeAnchorRejectsGarbage(t *testing.T) {
	_, err := decodeAnchor(nil)
	require.True(t, errors.Is(err, ErrMalformedAnchor))

	_, err = decodeAnchor([]byte{0x01, 0x02})
	require.True(t, errors.Is(err, ErrMalformedAnchor))
}

func TestAnchorFieldsSurviveTapeSeparators(t *testing.T) {
	for _, recipient := range []string{"|", "alice|bob", RecordPrefix, "1BAPSuaPnfGnSBM3GLV9yhxUdYe4vGbdMT"} {
		in := anchor{ProofHash: "aa", Sequence: 1, Issuer: "0xabc", Recipient: recipient, Type: types.TypeCustom}

		tx, err := buildAnchor("", in)
		require.NoError(t, err)

		out, err := decodeAnchor(tx.Bytes())
		require.NoError(t, err, recipient)
		require.Equal(t, in, *out, recipient)
	}
}
