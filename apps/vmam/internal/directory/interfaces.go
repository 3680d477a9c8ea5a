// Package directory はMACユーザーを保持するディレクトリサービスへのアクセスを提供する。
package directory

//go:generate mockgen -source=interfaces.go -destination=../mocks/mock_directory.go -package=mocks

import "context"

// Client はディレクトリ上のIDを操作するインターフェース。
// すべての操作は*apperr.DirectoryErrorで失敗する。
type Client interface {
	// FindByMAC はキーに一致するIDを返す。存在しない場合は(nil, nil)
	FindByMAC(ctx context.Context, key string) (*Identity, error)
	// Create はIDを新規作成する
	Create(ctx context.Context, identity *Identity) error
	// Modify は属性とグループ所属を変更する
	Modify(ctx context.Context, key string, diff *AttributeDiff) error
	// SetEnabled は有効/無効を切り替える
	SetEnabled(ctx context.Context, key string, enabled bool) error
	// Delete はIDを削除する
	Delete(ctx context.Context, key string) error
}

// Prober はディレクトリへの到達性を確認するインターフェース。
type Prober interface {
	Ping(ctx context.Context) error
}
