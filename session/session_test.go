package session

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(NewMemoryNonces(), []byte("0123456789abcdef"), time.Minute, time.Hour)
	require.NoError(t, err)
	return m
}

func personalSign(t *testing.T, message string) (address, signature string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27 // wallets return v in {27, 28}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), "0x" + hex.EncodeToString(sig)
}

func TestChallengeVerify(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	message, err := m.Challenge(ctx, address)
	require.NoError(t, err)
	require.Contains(t, message, address)

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)

	token, err := m.Verify(ctx, strings.ToLower(address), hex.EncodeToString(sig))
	require.NoError(t, err)

	got, err := m.Parse(token)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(address), got)

	// challenges are single use
	_, err = m.Verify(ctx, address, hex.EncodeToString(sig))
	require.True(t, errors.Is(err, ErrChallengeExpired))
}

func TestVerifyRejectsOtherSigner(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	message, err := m.Challenge(ctx, address)
	require.NoError(t, err)

	_, forged := personalSign(t, message)
	_, err = m.Verify(ctx, address, forged)
	require.True(t, errors.Is(err, ErrSignerMismatched))
}

func TestVerifySignature(t *testing.T) {
	address, sig := personalSign(t, "hello")

	require.NoError(t, VerifySignature(address, sig, "hello"))
	require.True(t, errors.Is(VerifySignature(address, sig, "bye"), ErrSignerMismatched))
	require.True(t, errors.Is(VerifySignature(address, "0x1234", "hello"), ErrBadSignature))
	require.True(t, errors.Is(VerifySignature(address, "zz", "hello"), ErrBadSignature))
}

func TestChallengeRejectsBadAddress(t *testing.T) {
	m := newManager(t)
	_, err := m.Challenge(context.Background(), "0xABC")
	require.True(t, errors.Is(err, ErrInvalidAddress))
	_, err = m.Verify(context.Background(), "nope", "0x00")
	require.True(t, errors.Is(err, ErrInvalidAddress))
}

func TestParseRejectsBadTokens(t *testing.T) {
	m := newManager(t)

	_, err := m.Parse("not-a-token")
	require.True(t, errors.Is(err, ErrInvalidToken))

	other, err := NewManager(NewMemoryNonces(), []byte("another-secret-value"), time.Minute, time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue("0xabc")
	require.NoError(t, err)
	_, err = m.Parse(foreign)
	require.True(t, errors.Is(err, ErrInvalidToken))

	expired, err := m.Issue("0xabc")
	require.NoError(t, err)
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(expired)
	require.True(t, errors.Is(err, ErrInvalidToken))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"addr": "0xabc"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	m.now = time.Now
	_, err = m.Parse(unsigned)
	require.True(t, errors.Is(err, ErrInvalidToken))
}

func TestMemoryNoncesExpire(t *testing.T) {
	ctx := context.Background()
	n := NewMemoryNonces()
	now := time.Now()
	n.now = func() time.Time { return now }

	require.NoError(t, n.Put(ctx, "0xABC", "nonce-1", time.Minute))
	got, err := n.Take(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, "nonce-1", got)

	require.NoError(t, n.Put(ctx, "0xabc", "nonce-2", time.Minute))
	now = now.Add(2 * time.Minute)
	_, err = n.Take(ctx, "0xabc")
	require.True(t, errors.Is(err, ErrChallengeExpired))
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(NewMemoryNonces(), nil, time.Minute, time.Hour)
	require.True(t, errors.Is(err, ErrMissingSecret))
}
