// Package discovery は照合対象となる端末の一覧を上流から取得する。
package discovery

//go:generate mockgen -source=interfaces.go -destination=../mocks/mock_discovery.go -package=mocks

import (
	"context"

	"github.com/oyaguma3/vmam/pkg/model"
)

// Source は検出済み端末の取得元を表すインターフェース。
type Source interface {
	// Devices は最大limit件の端末を返す（0は無制限）
	Devices(ctx context.Context, limit int) ([]model.Device, error)
}
