package discovery

import (
	"context"
	"time"

	"github.com/oyaguma3/vmam/apps/vmam/internal/store"
	"github.com/oyaguma3/vmam/pkg/model"
)

// ValkeySource はValkeyの端末レジストリを取得元とする。
// RADIUS Accountingで登録された端末がここに集まる。
type ValkeySource struct {
	devices    store.DeviceStore
	staleAfter time.Duration
	now        func() time.Time
}

// NewValkeySource は新しいValkeySourceを生成する。
// staleAfter以上検出されていない端末は非アクティブとして返す。
func NewValkeySource(devices store.DeviceStore, staleAfter time.Duration) *ValkeySource {
	return &ValkeySource{
		devices:    devices,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Devices は最終検出時刻の新しい順に端末を返す。
func (s *ValkeySource) Devices(ctx context.Context, limit int) ([]model.Device, error) {
	list, err := s.devices.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]model.Device, 0, len(list))
	for _, d := range list {
		dev := *d
		if dev.IsStale(now, s.staleAfter) {
			dev.Active = false
		}
		// User-Nameはuser_match_idの照合に使う
		if dev.UserName != "" {
			dev.Attributes = []string{dev.UserName}
		}
		result = append(result, dev)
	}
	return result, nil
}
