package status

import (
	"context"
	"sync"

	"github.com/oyaguma3/vmam/apps/vmam/internal/store"
	"github.com/oyaguma3/vmam/pkg/model"
)

// ReportCache はValkeyを使わない場合のレポート保存先。プロセス内にのみ保持する。
type ReportCache struct {
	mu   sync.RWMutex
	last *model.BatchReport
}

// SaveLast は直近のレポートとして保持する。
func (c *ReportCache) SaveLast(_ context.Context, r *model.BatchReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = r
	return nil
}

// Last は直近のレポートを返す。
func (c *ReportCache) Last(_ context.Context) (*model.BatchReport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil, store.ErrKeyNotFound
	}
	return c.last, nil
}
