package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/pkg/model"
)

// deviceStore はDeviceStoreの実装
type deviceStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewDeviceStore は新しいDeviceStoreを生成する。
func NewDeviceStore(vc *ValkeyClient) DeviceStore {
	return &deviceStore{
		client: vc.Client(),
		ttl:    config.DeviceTTL,
		now:    time.Now,
	}
}

// Upsert は端末情報を登録・更新する。
// Hashの書き込み、一覧への追加、TTL設定を1つのパイプラインで実行する。
func (s *deviceStore) Upsert(ctx context.Context, d *model.Device) error {
	if d == nil || d.MAC == "" {
		return fmt.Errorf("device: mac required")
	}
	key := KeyPrefixDevice + d.MAC

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, StructToMap(d))
		pipe.Expire(ctx, key, s.ttl)
		pipe.ZAdd(ctx, KeyDeviceIndex, redis.Z{Score: float64(d.LastSeen), Member: d.MAC})
		return nil
	})
	if err != nil {
		return unavailable("HSET", key, err)
	}
	return nil
}

// MarkInactive は端末を非アクティブにする。未登録の場合は何もしない。
func (s *deviceStore) MarkInactive(ctx context.Context, mac string, at time.Time) error {
	key := KeyPrefixDevice + mac

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return unavailable("EXISTS", key, err)
	}
	if n == 0 {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "active", false, "last_seen", at.Unix())
		pipe.ZAdd(ctx, KeyDeviceIndex, redis.Z{Score: float64(at.Unix()), Member: mac})
		return nil
	})
	if err != nil {
		return unavailable("HSET", key, err)
	}
	return nil
}

// Get は端末情報を取得する。
func (s *deviceStore) Get(ctx context.Context, mac string) (*model.Device, error) {
	key := KeyPrefixDevice + mac

	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable("HGETALL", key, err)
	}
	if len(m) == 0 {
		return nil, ErrKeyNotFound
	}

	var d model.Device
	if err := MapToStruct(m, &d); err != nil {
		return nil, fmt.Errorf("device %s: %w", mac, err)
	}
	return &d, nil
}

// List は最終検出時刻の新しい順に端末を返す。
// TTLで消えた端末は一覧からも取り除く。
func (s *deviceStore) List(ctx context.Context, limit int) ([]*model.Device, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	macs, err := s.client.ZRevRange(ctx, KeyDeviceIndex, 0, stop).Result()
	if err != nil {
		return nil, unavailable("ZREVRANGE", KeyDeviceIndex, err)
	}

	devices := make([]*model.Device, 0, len(macs))
	var expired []any
	for _, mac := range macs {
		d, err := s.Get(ctx, mac)
		if errors.Is(err, ErrKeyNotFound) {
			expired = append(expired, mac)
			continue
		}
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}

	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, KeyDeviceIndex, expired...).Err(); err != nil {
			return nil, unavailable("ZREM", KeyDeviceIndex, err)
		}
	}
	return devices, nil
}

// Prune は最終検出がbefore以前の端末を一覧とHashから削除し、削除件数を返す。
func (s *deviceStore) Prune(ctx context.Context, before time.Time) (int, error) {
	max := fmt.Sprintf("%d", before.Unix())
	macs, err := s.client.ZRangeByScore(ctx, KeyDeviceIndex, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return 0, unavailable("ZRANGEBYSCORE", KeyDeviceIndex, err)
	}
	if len(macs) == 0 {
		return 0, nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, mac := range macs {
			pipe.Del(ctx, KeyPrefixDevice+mac)
			pipe.ZRem(ctx, KeyDeviceIndex, mac)
		}
		return nil
	})
	if err != nil {
		return 0, unavailable("DEL", KeyDeviceIndex, err)
	}
	return len(macs), nil
}
