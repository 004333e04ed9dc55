package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/BitcoinSchema/go-zk-attest/types"
)

// ErrChallengeExpired is returned when no live challenge exists for an address.
var ErrChallengeExpired = errors.New("session: challenge expired")

const noncePrefix = "attest:nonce:"

// NonceStore keeps one outstanding challenge per address. Take consumes it.
type NonceStore interface {
	Put(ctx context.Context, address, nonce string, ttl time.Duration) error
	Take(ctx context.Context, address string) (string, error)
}

// RedisNonces stores challenges in redis.
type RedisNonces struct {
	rdb *redis.Client
}

func NewRedisNonces(rdb *redis.Client) *RedisNonces {
	return &RedisNonces{rdb: rdb}
}

func (r *RedisNonces) Put(ctx context.Context, address, nonce string, ttl time.Duration) error {
	return r.rdb.Set(ctx, noncePrefix+types.NormalizeAddress(address), nonce, ttl).Err()
}

func (r *RedisNonces) Take(ctx context.Context, address string) (string, error) {
	nonce, err := r.rdb.GetDel(ctx, noncePrefix+types.NormalizeAddress(address)).Result()
	if err == redis.Nil {
		return "", ErrChallengeExpired
	}
	return nonce, err
}

type memoryNonce struct {
	nonce   string
	expires time.Time
}

// MemoryNonces stores challenges in process.
type MemoryNonces struct {
	mu     sync.Mutex
	nonces map[string]memoryNonce
	now    func() time.Time
}

func NewMemoryNonces() *MemoryNonces {
	return &MemoryNonces{nonces: map[string]memoryNonce{}, now: time.Now}
}

func (m *MemoryNonces) Put(_ context.Context, address, nonce string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, v := range m.nonces {
		if now.After(v.expires) {
			delete(m.nonces, k)
		}
	}
	m.nonces[types.NormalizeAddress(address)] = memoryNonce{nonce: nonce, expires: now.Add(ttl)}
	return nil
}

func (m *MemoryNonces) Take(_ context.Context, address string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := types.NormalizeAddress(address)
	n, ok := m.nonces[key]
	delete(m.nonces, key)
	if !ok || m.now().After(n.expires) {
		return "", ErrChallengeExpired
	}
	return n.nonce, nil
}
