package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// clientStore はClientStoreの実装
type clientStore struct {
	client *redis.Client
}

// NewClientStore は新しいClientStoreを生成する。
func NewClientStore(vc *ValkeyClient) ClientStore {
	return &clientStore{client: vc.Client()}
}

// GetClientSecret は指定されたIPのShared Secretを取得する。
// 未登録の場合は空文字列とnilを返す。
func (s *clientStore) GetClientSecret(ctx context.Context, ip string) (string, error) {
	key := KeyPrefixClient + ip
	secret, err := s.client.HGet(ctx, key, "secret").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", unavailable("HGET", key, err)
	}
	return secret, nil
}
