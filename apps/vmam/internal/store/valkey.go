// Package store はValkeyへのデータアクセスを提供する。
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/pkg/valkey"
)

// ValkeyClient はValkeyクライアントをラップする。
type ValkeyClient struct {
	client *redis.Client
}

// NewValkeyClient は新しいValkeyClientを生成する。baseがnilの場合はデーモン向けの既定値を使う。
func NewValkeyClient(ctx context.Context, cfg *config.Config, base *valkey.Options) (*ValkeyClient, error) {
	if base == nil {
		base = valkey.DefaultOptions().
			WithTimeouts(config.ValkeyConnectTimeout, config.ValkeyCommandTimeout, config.ValkeyCommandTimeout).
			WithPool(config.ValkeyPoolSize, 2)
	}
	opts := base.WithAddr(cfg.ValkeyAddr()).WithPassword(cfg.RedisPass)

	// 接続確認
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := valkey.Dial(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}
	return &ValkeyClient{client: client}, nil
}

// NewValkeyClientFrom は生成済みのredis.Clientを包む。テスト用。
func NewValkeyClientFrom(client *redis.Client) *ValkeyClient {
	return &ValkeyClient{client: client}
}

// Close は接続を閉じる。
func (v *ValkeyClient) Close() error {
	return v.client.Close()
}

// Client は内部のredis.Clientを返す。
func (v *ValkeyClient) Client() *redis.Client {
	return v.client
}

// Ping は接続を確認する。
func (v *ValkeyClient) Ping(ctx context.Context) error {
	if err := v.client.Ping(ctx).Err(); err != nil {
		return unavailable("PING", "", err)
	}
	return nil
}
