// Package session turns a wallet signature into a bearer token carrying the
// connected address.
package session

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BitcoinSchema/go-zk-attest/metrics"
	"github.com/BitcoinSchema/go-zk-attest/types"
)

var (
	ErrInvalidAddress   = errors.New("session: invalid wallet address")
	ErrBadSignature     = errors.New("session: bad signature")
	ErrInvalidToken     = errors.New("session: invalid token")
	ErrMissingSecret    = errors.New("session: signing secret is required")
	ErrSignerMismatched = errors.New("session: signature does not match address")
)

// Manager issues challenges and tokens.
type Manager struct {
	nonces   NonceStore
	secret   []byte
	nonceTTL time.Duration
	tokenTTL time.Duration
	now      func() time.Time
}

func NewManager(nonces NonceStore, secret []byte, nonceTTL, tokenTTL time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	return &Manager{
		nonces:   nonces,
		secret:   secret,
		nonceTTL: nonceTTL,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}, nil
}

// ChallengeMessage is the text the wallet signs with personal_sign.
func ChallengeMessage(address, nonce string) string {
	return fmt.Sprintf("Sign in to go-zk-attest\n\nAddress: %s\nNonce: %s", common.HexToAddress(address).Hex(), nonce)
}

// Challenge stores a fresh nonce for address and returns the message to sign.
func (m *Manager) Challenge(ctx context.Context, address string) (string, error) {
	if !types.IsWalletAddress(address) {
		return "", ErrInvalidAddress
	}
	nonce := uuid.NewString()
	if err := m.nonces.Put(ctx, address, nonce, m.nonceTTL); err != nil {
		return "", errors.Wrap(err, "storing challenge")
	}
	return ChallengeMessage(address, nonce), nil
}

// Verify consumes the challenge for address, checks the signature and
// returns a signed token.
func (m *Manager) Verify(ctx context.Context, address, signature string) (string, error) {
	if !types.IsWalletAddress(address) {
		return "", ErrInvalidAddress
	}
	nonce, err := m.nonces.Take(ctx, address)
	if err != nil {
		return "", err
	}
	if err := VerifySignature(address, signature, ChallengeMessage(address, nonce)); err != nil {
		return "", err
	}
	token, err := m.Issue(address)
	if err != nil {
		return "", err
	}
	metrics.SessionsIssued.Inc()
	return token, nil
}

// Issue signs a token for address.
func (m *Manager) Issue(address string) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"addr": types.NormalizeAddress(address),
		"iat":  now.Unix(),
		"exp":  now.Add(m.tokenTTL).Unix(),
	})
	return token.SignedString(m.secret)
}

// Parse validates token and returns the address it carries.
func (m *Manager) Parse(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	addr, _ := claims["addr"].(string)
	if addr == "" {
		return "", ErrInvalidToken
	}
	return addr, nil
}

// VerifySignature checks an EIP-191 personal_sign signature over message.
func VerifySignature(address, sigHex, message string) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(sigHex), "0x"))
	if err != nil {
		return errors.Wrap(ErrBadSignature, err.Error())
	}
	if len(sig) != crypto.SignatureLength {
		return errors.Wrapf(ErrBadSignature, "length %d", len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return errors.Wrap(ErrBadSignature, err.Error())
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return ErrSignerMismatched
	}
	return nil
}
