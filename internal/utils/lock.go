package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another holder owns the lock.
var ErrLocked = errors.New("lock held")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker hands out short-lived exclusive locks keyed by string. With a Redis
// client the lock spans every server instance (SET NX PX); without one it
// falls back to an in-process lock table.
type Locker struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[string]time.Time
}

// NewLocker returns a locker; rdb may be nil.
func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, local: map[string]time.Time{}}
}

// TryLock acquires key for ttl or fails fast with ErrLocked. The returned
// func releases the lock.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.rdb == nil {
		return l.tryLocal(key, ttl)
	}
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Release even if the request context is already cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}

func (l *Locker) tryLocal(key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if exp, held := l.local[key]; held && now.Before(exp) {
		return nil, ErrLocked
	}
	l.local[key] = now.Add(ttl)
	return func() {
		l.mu.Lock()
		delete(l.local, key)
		l.mu.Unlock()
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
