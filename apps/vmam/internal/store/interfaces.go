package store

import (
	"context"
	"time"

	"github.com/oyaguma3/vmam/pkg/model"
)

// ClientStore はRADIUSクライアントデータへのアクセスを定義する
type ClientStore interface {
	// GetClientSecret は指定されたIPのShared Secretを取得する
	// 未登録の場合は空文字列とnilを返す
	GetClientSecret(ctx context.Context, ip string) (string, error)
}

// DeviceStore は検出済み端末レジストリへのアクセスを定義する
type DeviceStore interface {
	// Upsert は端末情報を登録・更新する
	Upsert(ctx context.Context, d *model.Device) error
	// MarkInactive は端末を非アクティブにする。未登録の場合は何もしない
	MarkInactive(ctx context.Context, mac string, at time.Time) error
	// Get は端末情報を取得する。未登録の場合はErrKeyNotFound
	Get(ctx context.Context, mac string) (*model.Device, error)
	// List は最終検出時刻の新しい順に最大limit件を返す（0は無制限）
	List(ctx context.Context, limit int) ([]*model.Device, error)
	// Prune は最終検出がbefore以前の端末を削除し、削除件数を返す
	Prune(ctx context.Context, before time.Time) (int, error)
}

// LockStore はMAC単位の照合ロックを定義する
type LockStore interface {
	// TryLock はロックを取得する。他で保持中の場合はok=false
	TryLock(ctx context.Context, key string) (token string, ok bool, err error)
	// Unlock はtokenが一致する場合のみ解放する
	Unlock(ctx context.Context, key, token string) error
}

// ReportStore はバッチレポートの保存を定義する
type ReportStore interface {
	// SaveLast は直近のレポートとして保存する
	SaveLast(ctx context.Context, r *model.BatchReport) error
	// Last は直近のレポートを返す。未保存の場合はErrKeyNotFound
	Last(ctx context.Context) (*model.BatchReport, error)
}
