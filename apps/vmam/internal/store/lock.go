package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript はトークンが一致する場合のみロックを削除する。
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// lockStore はLockStoreの実装
type lockStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLockStore は新しいLockStoreを生成する。
// ttlは保持プロセスが異常終了した場合にロックが自然解放されるまでの時間。
func NewLockStore(vc *ValkeyClient, ttl time.Duration) LockStore {
	return &lockStore{client: vc.Client(), ttl: ttl}
}

// TryLock はSET NX PXでロックを取得する。
func (s *lockStore) TryLock(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, KeyPrefixLock+key, token, s.ttl).Result()
	if err != nil {
		return "", false, unavailable("SETNX", KeyPrefixLock+key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock はtokenが一致する場合のみロックを解放する。
func (s *lockStore) Unlock(ctx context.Context, key, token string) error {
	err := releaseScript.Run(ctx, s.client, []string{KeyPrefixLock + key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return unavailable("EVALSHA", KeyPrefixLock+key, err)
	}
	return nil
}
