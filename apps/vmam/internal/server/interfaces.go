package server

import (
	"context"
	"time"

	"github.com/oyaguma3/vmam/pkg/model"
)

// DeviceRecorder はAccountingで検出した端末の記録先。
// store.DeviceStoreが満たす。
type DeviceRecorder interface {
	Upsert(ctx context.Context, d *model.Device) error
	MarkInactive(ctx context.Context, mac string, at time.Time) error
}
