package scheduler

import "errors"

var (
	// ErrDirectoryUnreachable はバッチ開始前の疎通確認に失敗した場合のエラー
	ErrDirectoryUnreachable = errors.New("directory unreachable")

	// ErrDiscoveryFailed は端末一覧を取得できなかった場合のエラー
	ErrDiscoveryFailed = errors.New("device discovery failed")
)
