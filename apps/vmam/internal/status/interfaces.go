package status

import (
	"context"

	"github.com/oyaguma3/vmam/pkg/model"
)

// ReportReader は直近のバッチレポートの取得元。
// 未保存の場合はstore.ErrKeyNotFoundを返す。
type ReportReader interface {
	Last(ctx context.Context) (*model.BatchReport, error)
}
