package scheduler

import (
	"context"
	"time"

	"github.com/oyaguma3/vmam/pkg/model"
)

// ReportSaver はバッチレポートの保存先。
type ReportSaver interface {
	SaveLast(ctx context.Context, r *model.BatchReport) error
}

// Pruner は長期間検出されていない端末をレジストリから取り除く。
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}
