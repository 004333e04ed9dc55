package zkp

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestGenerateProofRequiresIdentity(t *testing.T) {
	s := NewService()
	_, err := s.GenerateProof(context.Background(), "signal", "0xabc")
	require.True(t, errors.Is(err, ErrIdentityNotInitialized))

	_, bound := s.Identity()
	require.False(t, bound)
}

func TestCreateIdentityIsIdempotentPerAddress(t *testing.T) {
	s := NewService()
	ctx := context.Background()

	first, err := s.CreateIdentity(ctx, "0xABC")
	require.NoError(t, err)
	again, err := s.CreateIdentity(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, first, again)
	require.True(t, s.BoundTo("0xAbC"))

	other, err := s.CreateIdentity(ctx, "0xdef")
	require.NoError(t, err)
	require.NotEqual(t, first.Commitment, other.Commitment)
	require.False(t, s.BoundTo("0xabc"))

	_, err = s.CreateIdentity(ctx, "  ")
	require.True(t, errors.Is(err, ErrEmptyAddress))
}

func TestProofBinding(t *testing.T) {
	s := NewService()
	ctx := context.Background()
	_, err := s.CreateIdentity(ctx, "0xabc")
	require.NoError(t, err)

	p, err := s.GenerateProof(ctx, "claim-1", "0xdef")
	require.NoError(t, err)
	require.True(t, p.Consistent())

	same, err := s.GenerateProof(ctx, "claim-1", "0xdef")
	require.NoError(t, err)
	require.Equal(t, p.Encode(), same.Encode())

	otherSignal, err := s.GenerateProof(ctx, "claim-2", "0xdef")
	require.NoError(t, err)
	require.NotEqual(t, p.Encode(), otherSignal.Encode())

	otherNullifier, err := s.GenerateProof(ctx, "claim-1", "0x123")
	require.NoError(t, err)
	require.NotEqual(t, p.NullifierHash, otherNullifier.NullifierHash)

	ok, err := VerifyProof(p.Encode(), "0xABC", "claim-1", "0xdef")
	require.NoError(t, err)
	require.True(t, ok)

	for _, tc := range []struct{ address, signal, nullifier string }{
		{"0xdef", "claim-1", "0xdef"},
		{"0xabc", "claim-2", "0xdef"},
		{"0xabc", "claim-1", "0x123"},
	} {
		ok, err := VerifyProof(p.Encode(), tc.address, tc.signal, tc.nullifier)
		require.NoError(t, err)
		require.False(t, ok, tc)
	}
}

func TestEncodeDecode(t *testing.T) {
	s := NewService()
	ctx := context.Background()
	_, err := s.CreateIdentity(ctx, "0xabc")
	require.NoError(t, err)
	p, err := s.GenerateProof(ctx, "claim", "0xdef")
	require.NoError(t, err)

	decoded, err := DecodeProof(p.Encode())
	require.NoError(t, err)
	require.Equal(t, p, decoded)

	ok, err := CheckProof(p.Encode())
	require.NoError(t, err)
	require.True(t, ok)

	tampered := p
	tampered.SignalHash = SignalHash("forged")
	ok, err = CheckProof(tampered.Encode())
	require.NoError(t, err)
	require.False(t, ok)

	_, err = DecodeProof("0x1234")
	require.True(t, errors.Is(err, ErrMalformedProof))
	_, err = DecodeProof("not-hex")
	require.True(t, errors.Is(err, ErrMalformedProof))
}

func TestHashProof(t *testing.T) {
	require.Equal(t, HashProof("0x01"), HashProof("0x01"))
	require.NotEqual(t, HashProof("0x01"), HashProof("0x02"))
}
