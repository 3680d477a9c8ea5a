package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oyaguma3/vmam/pkg/model"
)

// reportStore はReportStoreの実装
type reportStore struct {
	client *redis.Client
}

// NewReportStore は新しいReportStoreを生成する。
func NewReportStore(vc *ValkeyClient) ReportStore {
	return &reportStore{client: vc.Client()}
}

// SaveLast は直近のレポートとしてJSONで保存する。
func (s *reportStore) SaveLast(ctx context.Context, r *model.BatchReport) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := s.client.Set(ctx, KeyLastReport, b, 0).Err(); err != nil {
		return unavailable("SET", KeyLastReport, err)
	}
	return nil
}

// Last は直近のレポートを返す。
func (s *reportStore) Last(ctx context.Context) (*model.BatchReport, error) {
	b, err := s.client.Get(ctx, KeyLastReport).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, unavailable("GET", KeyLastReport, err)
	}

	var r model.BatchReport
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return &r, nil
}
